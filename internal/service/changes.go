package service

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/samcutley/intelwatch/internal/domain"
)

// ChangeKind classifies an incoming article relative to what the store holds.
type ChangeKind string

const (
	// ChangeNew means no record exists for the URL yet.
	ChangeNew ChangeKind = "new"
	// ChangeUpdated means the record exists but content diverged.
	ChangeUpdated ChangeKind = "changed"
	// ChangeNone means the stored fingerprint matches the fetched content.
	ChangeNone ChangeKind = "unchanged"
)

// Fingerprint computes the content fingerprint used for change detection.
// Content is canonicalized by the fetcher before it reaches here, so two
// fetches of byte-identical text always produce the same digest.
// Parameters:
//   - content: extracted article body text.
//
// Returns:
//   - string: lowercase hex SHA-256 digest of content.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// DetectChange compares freshly fetched content against the stored record.
// Parameters:
//   - existing: stored article for the URL, nil when none exists.
//   - contentHash: fingerprint of the freshly fetched content.
//
// Returns:
//   - ChangeKind: new, changed, or unchanged.
func DetectChange(existing *domain.Article, contentHash string) ChangeKind {
	if existing == nil {
		return ChangeNew
	}
	if existing.ContentHash != contentHash {
		return ChangeUpdated
	}
	return ChangeNone
}
