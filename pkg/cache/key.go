package cache

import (
	"fmt"
	"strings"
)

// Key identifies one cached issue search page. The cursor is stored
// verbatim; it is opaque and never parsed.
type Key struct {
	// Repository coordinates.
	Provider     string
	Organization string
	Repository   string

	// Limit is the page size the page was fetched with.
	Limit int

	// Cursor is the pagination cursor ("" for the first page).
	Cursor string
}

// String generates a deterministic cache key string.
// Format: codacy:provider:org:repo:limit=100:cursor=abc
//
// The first page uses cursor=first so distinct pages never collide on an
// empty segment.
func (k Key) String() string {
	cursor := k.Cursor
	if cursor == "" {
		cursor = "first"
	}

	parts := []string{
		"codacy",
		k.Provider,
		k.Organization,
		k.Repository,
		fmt.Sprintf("limit=%d", k.Limit),
		fmt.Sprintf("cursor=%s", cursor),
	}

	return strings.Join(parts, ":")
}
