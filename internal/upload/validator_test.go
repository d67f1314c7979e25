package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneralRules(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		mediaType string
		size      int64
		want      error
	}{
		{"image ok", "image", "image/png", 1024, nil},
		{"image wrong type", "image", "application/pdf", 1024, ErrUnsupportedMediaType},
		{"photo ok", "photo", "image/jpeg", 1024, nil},
		{"cover ok", "coverImage", "image/webp", 1024, nil},
		{"audio ok", "audio", "audio/mpeg", 1024, nil},
		{"audio wrong type", "audio", "video/mp4", 1024, ErrUnsupportedMediaType},
		{"book pdf ok", "pdfFile", "application/pdf", 1024, nil},
		{"book pdf image rejected", "pdfFile", "image/png", 1024, ErrUnsupportedMediaType},
		{"book pdf word rejected", "pdfFile", "application/msword", 1024, ErrUnsupportedMediaType},
		{"primary file pdf", "file", "application/pdf", 1024, nil},
		{"primary file word", "file", "application/msword", 1024, nil},
		{"primary file docx", "file", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", 1024, nil},
		{"primary file text", "file", "text/plain", 1024, nil},
		{"primary file video", "file", "video/mp4", 1024, nil},
		{"primary file audio rejected", "file", "audio/mpeg", 1024, ErrUnsupportedMediaType},
		{"too large", "image", "image/png", 51 * megabyte, ErrPayloadTooLarge},
		{"exactly at ceiling", "image", "image/png", 50 * megabyte, nil},
		{"unknown field", "banner", "image/png", 1024, ErrUnexpectedField},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := General.Validate(tc.field, tc.mediaType, tc.size)
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestLearningMaterialRules(t *testing.T) {
	// Materials allow a bigger primary file than the rest of the platform.
	assert.NoError(t, LearningMaterial.Validate("file", "video/mp4", 99*megabyte))
	assert.ErrorIs(t, LearningMaterial.Validate("file", "video/mp4", 101*megabyte), ErrPayloadTooLarge)
	assert.NoError(t, LearningMaterial.Validate("thumbnail", "image/png", 1024))
	assert.ErrorIs(t, LearningMaterial.Validate("thumbnail", "application/pdf", 1024), ErrUnsupportedMediaType)
	assert.ErrorIs(t, LearningMaterial.Validate("audio", "audio/mpeg", 1024), ErrUnexpectedField)
}

func TestValidateStripsParameters(t *testing.T) {
	assert.NoError(t, General.Validate("file", "text/plain; charset=utf-8", 10))
	assert.NoError(t, General.Validate("image", "IMAGE/PNG", 10))
}
