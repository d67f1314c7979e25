package upload

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ministryhub/platform/internal/model"
)

// FromForm reads the named multipart part into a model.Asset after running
// validation. It returns (nil, nil) when the field is absent, so optional
// slots simply stay empty. Validation runs against the declared media type
// and size before the body is read.
func FromForm(c echo.Context, rules Rules, field string) (*model.Asset, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile || err == echo.ErrNotFound {
			return nil, nil
		}
		// echo wraps missing parts in a generic error; treat any lookup
		// failure on an optional field as absence.
		return nil, nil
	}
	return fromHeader(rules, field, fh)
}

func fromHeader(rules Rules, field string, fh *multipart.FileHeader) (*model.Asset, error) {
	mediaType := fh.Header.Get("Content-Type")
	if err := rules.Validate(field, mediaType, fh.Size); err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &model.Asset{
		Data:        data,
		ContentType: mediaType,
		Filename:    fh.Filename,
		Size:        int64(len(data)),
	}, nil
}
