package database

import (
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInvariant marks store states that should be impossible, such as an
	// upserted row that cannot be read back.
	ErrInvariant = errors.New("store invariant violated")
)

// ArticleRef is a freshly discovered article reference.
type ArticleRef struct {
	Title   string
	URL     string
	DateRaw string
}

type UpsertResult struct {
	New     int
	Updated int
}

type ContentUpdate struct {
	Title   string // kept as-is in the store when empty
	Author  string
	Content string
}

type ReviewOverrides struct {
	Title    string
	Category string
	Summary  string
	Notes    string
}
