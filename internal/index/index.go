// Package index provides the in-memory embedding index used for semantic
// retrieval. Chunks are staged per document and become visible to search
// only when the whole batch is committed.
package index

import (
	"sort"
	"strings"
)

// Payload is the retrievable metadata stored alongside each vector.
type Payload struct {
	DocumentID string
	ChunkIndex int
	Content    string
	Page       int
	Filename   string
	Category   string
	Tags       []string
}

// Filter restricts a search to chunks whose payload matches every
// non-empty predicate.
type Filter struct {
	DocumentID string
	Category   string
	Tag        string
}

// IsZero reports whether the filter has no predicates.
func (f Filter) IsZero() bool {
	return f.DocumentID == "" && f.Category == "" && f.Tag == ""
}

// Matches reports whether a payload satisfies the filter.
func (f Filter) Matches(p Payload) bool {
	if f.DocumentID != "" && p.DocumentID != f.DocumentID {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, tag := range p.Tags {
			if strings.EqualFold(tag, f.Tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Fingerprint returns a canonical string for cache keying. Empty for the
// zero filter so unfiltered questions share one cache namespace.
func (f Filter) Fingerprint() string {
	if f.IsZero() {
		return ""
	}
	parts := make([]string, 0, 3)
	if f.DocumentID != "" {
		parts = append(parts, "doc="+f.DocumentID)
	}
	if f.Category != "" {
		parts = append(parts, "category="+strings.ToLower(f.Category))
	}
	if f.Tag != "" {
		parts = append(parts, "tag="+strings.ToLower(f.Tag))
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}

// Result is one search hit: a committed chunk with its cosine similarity.
type Result struct {
	ChunkID string
	Score   float32
	Payload Payload
}
