// Package upload validates and extracts multipart file uploads before any
// bytes reach the persistence layer. A rejected upload leaves no trace in
// the store.
package upload

import (
	"errors"
	"strings"
)

// Validation errors. Handlers translate these to 415 / 413 / 400.
var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrUnexpectedField      = errors.New("unexpected file field")
)

const megabyte = 1 << 20

// rule is one field's whitelist: accepted media-type families (prefix match
// on the part before the slash boundary), exact media types, and a size
// ceiling in bytes.
type rule struct {
	families []string
	exact    []string
	maxBytes int64
}

// The word-processing and plain-text types accepted for primary files.
var documentTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
}

// Rules maps multipart field names to their validation rule. Two rule sets
// exist because learning materials allow a larger primary file than the rest
// of the platform.
type Rules map[string]rule

// General covers sermons, prayers, books, user photos, assignment handouts
// and submission files. All ceilings are 50 MB.
var General = Rules{
	"image":      {families: []string{"image/"}, maxBytes: 50 * megabyte},
	"photo":      {families: []string{"image/"}, maxBytes: 50 * megabyte},
	"coverImage": {families: []string{"image/"}, maxBytes: 50 * megabyte},
	"audio":      {families: []string{"audio/"}, maxBytes: 50 * megabyte},
	"pdfFile":    {exact: []string{"application/pdf"}, maxBytes: 50 * megabyte},
	"file":       {families: []string{"image/", "video/"}, exact: documentTypes, maxBytes: 50 * megabyte},
}

// LearningMaterial covers material uploads: a 100 MB primary file plus an
// image thumbnail.
var LearningMaterial = Rules{
	"file":      {families: []string{"image/", "video/"}, exact: documentTypes, maxBytes: 100 * megabyte},
	"thumbnail": {families: []string{"image/"}, maxBytes: 50 * megabyte},
}

// Validate checks a declared media type and byte length against the rule for
// the named field. Unknown fields fail with ErrUnexpectedField before any
// content inspection happens.
func (r Rules) Validate(field, mediaType string, size int64) error {
	rl, ok := r[field]
	if !ok {
		return ErrUnexpectedField
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	// Strip any parameters like "; charset=utf-8".
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	accepted := false
	for _, fam := range rl.families {
		if strings.HasPrefix(mediaType, fam) {
			accepted = true
			break
		}
	}
	if !accepted {
		for _, ex := range rl.exact {
			if mediaType == ex {
				accepted = true
				break
			}
		}
	}
	if !accepted {
		return ErrUnsupportedMediaType
	}
	if size > rl.maxBytes {
		return ErrPayloadTooLarge
	}
	return nil
}
