// internal/adapters/out/gcs/common/gcs_url.go
package common

import (
	"fmt"
	"net/url"
	"strings"
)

// GCSPublicURL builds a public GCS URL.
// - bucket が空なら defaultBucket を使用
// - objectPath の先頭の "/" は除去
func GCSPublicURL(bucket, objectPath, defaultBucket string) string {
	b := strings.TrimSpace(bucket)
	if b == "" {
		b = strings.TrimSpace(defaultBucket)
	}
	obj := strings.TrimLeft(strings.TrimSpace(objectPath), "/")
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b, obj)
}

// ParseGCSURL parses a GCS-like URL and returns (bucket, objectPath, ok).
// 対応例:
//   - gs://<bucket>/<object>
//   - https://storage.googleapis.com/<bucket>/<object>
//   - https://storage.cloud.google.com/<bucket>/<object>
func ParseGCSURL(u string) (string, string, bool) {
	raw := strings.TrimSpace(u)
	if rest, ok := strings.CutPrefix(raw, "gs://"); ok {
		bucket, obj, found := strings.Cut(rest, "/")
		if !found || bucket == "" || obj == "" {
			return "", "", false
		}
		return bucket, obj, true
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}

	host := strings.ToLower(parsed.Host)
	if host != "storage.googleapis.com" && host != "storage.cloud.google.com" {
		return "", "", false
	}

	p := strings.TrimLeft(parsed.EscapedPath(), "/")
	if p == "" {
		return "", "", false
	}

	parts := strings.SplitN(p, "/", 2)
	if len(parts) < 2 {
		return "", "", false
	}

	objectPath, err := url.PathUnescape(parts[1])
	if err != nil {
		return "", "", false
	}
	return parts[0], objectPath, true
}
