package model

import "time"

// Material types. Videos may live behind an external link; every other type
// requires an uploaded file.
const (
	MaterialPDF   = "pdf"
	MaterialVideo = "video"
	MaterialNote  = "note"
	MaterialImage = "image"
)

// ValidMaterialType reports whether s is a known material type.
func ValidMaterialType(s string) bool {
	switch s {
	case MaterialPDF, MaterialVideo, MaterialNote, MaterialImage:
		return true
	}
	return false
}

// MaterialCategories is the fixed curriculum taxonomy offered to clients for
// filtering and dropdowns.
var MaterialCategories = []string{
	"Bible Studies",
	"Youth Ministry",
	"Sunday School",
	"Theology",
	"Church History",
	"Christian Living",
	"Leadership",
	"Worship",
	"Evangelism",
	"Discipleship",
	"Marriage & Family",
	"Children Ministry",
	"Teen Ministry",
	"Adult Education",
	"Seminary",
	"Spiritual Growth",
	"Apologetics",
	"Missions",
	"Pastoral Care",
	"Biblical Languages",
}

// ValidMaterialCategory reports whether s is part of the fixed taxonomy.
func ValidMaterialCategory(s string) bool {
	for _, c := range MaterialCategories {
		if c == s {
			return true
		}
	}
	return false
}

// Material is curated learning content managed by admins. Its primary
// content is exactly one of: an uploaded file or an external link. The two
// are mutually exclusive, and non-video types must have one of them.
type Material struct {
	ID           uint64
	CreatorID    uint64
	Title        string
	Description  string
	Category     string
	Type         string
	ExternalLink string
	Tags         []string
	File         AssetMeta
	Thumbnail    AssetMeta
	Views        uint64
	Downloads    uint64
	IsPublished  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
