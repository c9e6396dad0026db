// internal/adapters/out/gcs/product_icon_url_resolver.go
package gcs

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	iamcredentials "google.golang.org/api/iamcredentials/v1"

	gcscommon "storefront/internal/adapters/out/gcs/common"
	uc "storefront/internal/application/usecase"
)

// ProductIconURLResolver turns a stored product icon reference into a URL for responses.
//
// stored can be:
// - http(s)://... (returned as-is, unless it is a GCS URL and signing is enabled)
// - gs://bucket/object or https://storage.googleapis.com/... (parsed)
// - objectPath (treated as object path within Bucket)
//
// With SignerEmail set, GCS objects get a V4 signed GET URL (private buckets);
// signing failures fall back to the public URL.
type ProductIconURLResolver struct {
	Bucket      string
	SignerEmail string
	Expiry      time.Duration

	sign func(ctx context.Context, bucket, object string) (string, error)
	log  *zap.Logger
}

func NewProductIconURLResolver(bucket, signerEmail string, logger *zap.Logger) *ProductIconURLResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &ProductIconURLResolver{
		Bucket:      strings.TrimSpace(bucket),
		SignerEmail: strings.TrimSpace(signerEmail),
		Expiry:      15 * time.Minute,
		log:         logger.Named("product_icon_url_resolver"),
	}
	r.sign = r.signedURL
	return r
}

var _ uc.IconURLResolver = (*ProductIconURLResolver)(nil)

func (r *ProductIconURLResolver) ResolveIconURL(ctx context.Context, stored string) string {
	p := strings.TrimSpace(stored)
	if p == "" {
		return ""
	}

	bucket, obj, isGCS := gcscommon.ParseGCSURL(p)
	if !isGCS {
		if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
			return p
		}
		if r.Bucket == "" {
			return p
		}
		bucket, obj = r.Bucket, strings.TrimLeft(p, "/")
	}

	if r.SignerEmail != "" && r.sign != nil {
		u, err := r.sign(ctx, bucket, obj)
		if err == nil {
			return u
		}
		r.log.Warn("sign icon url failed; using public url",
			zap.String("bucket", bucket),
			zap.String("object", obj),
			zap.Error(err),
		)
	}
	return gcscommon.GCSPublicURL(bucket, obj, r.Bucket)
}

// signedURL signs through the IAM credentials API so no key file is needed on Cloud Run.
func (r *ProductIconURLResolver) signedURL(ctx context.Context, bucket, object string) (string, error) {
	svc, err := iamcredentials.NewService(ctx)
	if err != nil {
		return "", fmt.Errorf("iamcredentials init: %w", err)
	}

	signBytes := func(b []byte) ([]byte, error) {
		name := fmt.Sprintf("projects/-/serviceAccounts/%s", r.SignerEmail)
		resp, err := svc.Projects.ServiceAccounts.SignBlob(name, &iamcredentials.SignBlobRequest{
			Payload: base64.StdEncoding.EncodeToString(b),
		}).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return base64.StdEncoding.DecodeString(resp.SignedBlob)
	}

	expiry := r.Expiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	return storage.SignedURL(bucket, object, &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		GoogleAccessID: r.SignerEmail,
		SignBytes:      signBytes,
		Expires:        time.Now().UTC().Add(expiry),
	})
}
