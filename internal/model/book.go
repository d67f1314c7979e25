package model

import "time"

// Book is curated library content: only admins create or modify books. The
// PDF slot is mandatory on creation and restricted to application/pdf; the
// cover is an optional image.
type Book struct {
	ID          uint64
	UploaderID  uint64
	Title       string
	Description string
	AuthorName  string
	Category    string
	Cover       AssetMeta
	PDF         AssetMeta
	Downloads   uint64
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
