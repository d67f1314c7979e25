package model

import "time"

// Sermon is an authored teaching with optional image and audio attachments.
// Sermons are author self-service content: the author (or an admin) may
// update and delete them.
type Sermon struct {
	ID          uint64
	AuthorID    uint64
	Title       string
	Content     string
	Summary     string
	VideoLink   string
	Category    string
	Tags        []string
	Image       AssetMeta
	Audio       AssetMeta
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Prayer is a short authored devotion with an optional image. Same ownership
// model as sermons.
type Prayer struct {
	ID          uint64
	AuthorID    uint64
	Title       string
	Content     string
	Category    string
	Image       AssetMeta
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
