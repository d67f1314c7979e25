package handler

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ministryhub/platform/internal/model"
	"github.com/ministryhub/platform/internal/policy"
	"github.com/ministryhub/platform/internal/repository"
)

func newMaterialHandler(t *testing.T) (*MaterialHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMaterialHandler(repository.NewMaterialRepo(db)), mock
}

// materialRows yields one row shaped like the list/detail projection, with
// either an uploaded file or an external link as the content source.
func materialRows(id uint64, mtype, link string, withFile bool) *sqlmock.Rows {
	now := time.Now()
	var fileName, fileType, fileSize any
	if withFile {
		fileName, fileType, fileSize = "doc.pdf", "application/pdf", 2048
	}
	return sqlmock.NewRows([]string{
		"id", "creator_id", "title", "description", "category", "type",
		"external_link", "tags", "file_name", "file_type", "file_size",
		"thumb_name", "thumb_type", "thumb_size",
		"number_of_views", "number_of_downloads", "is_published", "created_at", "updated_at",
	}).AddRow(id, 1, "Intro to Hermeneutics", "", "Theology", mtype, link, "",
		fileName, fileType, fileSize, nil, nil, nil, 0, 0, true, now, now)
}

// materialPatch builds a PATCH context. A non-empty filename adds a pdf part
// under the "file" field alongside the text fields.
func materialPatch(t *testing.T, fields map[string]string, filename string, data []byte) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
		h.Set("Content-Type", "application/pdf")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/v1/materials/5", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("5")
	c.Set("actor", &policy.Actor{ID: 1, Role: model.RoleAdmin})
	return c, rec
}

func TestMaterialUpdateSwapsLinkForFile(t *testing.T) {
	h, mock := newMaterialHandler(t)
	pdf := []byte("%PDF-1.7 body")

	mock.ExpectQuery("SELECT .+ FROM materials WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(materialRows(5, model.MaterialPDF, "https://example.com/talk", false))
	// external_link must be assigned exactly once, via the clearing SET.
	mock.ExpectExec(`UPDATE materials SET file_data=\?, file_type=\?, file_name=\?, file_size=\?, external_link='' WHERE id=\?`).
		WithArgs(pdf, "application/pdf", "notes.pdf", int64(len(pdf)), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM materials WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(materialRows(5, model.MaterialPDF, "", true))

	c, rec := materialPatch(t, map[string]string{"externalLink": ""}, "notes.pdf", pdf)
	require.NoError(t, h.Update(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "example.com")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialUpdateRefusesTypeChangeWithoutSource(t *testing.T) {
	h, mock := newMaterialHandler(t)
	// A video may exist with neither file nor link; a note may not.
	mock.ExpectQuery("SELECT .+ FROM materials WHERE id=").
		WillReturnRows(materialRows(5, model.MaterialVideo, "", false))

	c, rec := materialPatch(t, map[string]string{"type": model.MaterialNote}, "", nil)
	require.NoError(t, h.Update(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "required")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialUpdateRefusesClearingOnlySource(t *testing.T) {
	h, mock := newMaterialHandler(t)
	mock.ExpectQuery("SELECT .+ FROM materials WHERE id=").
		WillReturnRows(materialRows(5, model.MaterialPDF, "https://example.com/talk", false))

	c, rec := materialPatch(t, map[string]string{"externalLink": ""}, "", nil)
	require.NoError(t, h.Update(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialUpdateRejectsBothSources(t *testing.T) {
	h, mock := newMaterialHandler(t)
	mock.ExpectQuery("SELECT .+ FROM materials WHERE id=").
		WillReturnRows(materialRows(5, model.MaterialPDF, "", true))

	c, rec := materialPatch(t, map[string]string{"externalLink": "https://example.com/new"}, "notes.pdf", []byte("%PDF"))
	require.NoError(t, h.Update(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not both")
}
