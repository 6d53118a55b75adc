package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/foodflow/backend/internal/domain"
)

// imageFingerprint hashes raw image bytes into the cache key for an
// extraction task. Identical bytes always produce the same fingerprint.
func imageFingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// itemsFingerprint hashes a batch of raw item names into the cache key for a
// normalization run. Order does not matter: the same shopping basket read in
// a different order hits the same entry.
func itemsFingerprint(items []domain.RawLineItem) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, foldText(item.Name))
	}
	sort.Strings(names)

	sum := sha256.Sum256([]byte(strings.Join(names, "|")))
	return hex.EncodeToString(sum[:])
}
