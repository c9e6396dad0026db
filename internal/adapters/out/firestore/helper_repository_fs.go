// internal/adapters/out/firestore/helper_repository_fs.go
package firestore

import (
	"strings"
)

// Firestore "in" は最大 30 要素まで。
const inQueryLimit = 30

// chunkIDs trims, dedups and splits ids into groups usable in an "in" filter.
func chunkIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = inQueryLimit
	}
	seen := make(map[string]struct{}, len(ids))
	uniq := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}

	var out [][]string
	for start := 0; start < len(uniq); start += size {
		end := start + size
		if end > len(uniq) {
			end = len(uniq)
		}
		out = append(out, uniq[start:end])
	}
	return out
}
