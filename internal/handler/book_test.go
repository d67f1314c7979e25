package handler

import (
	"net/http"
	"net/http/httptest"
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

func newBookHandler(t *testing.T) (*BookHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBookHandler(repository.NewBookRepo(db)), mock
}

func bookRows(id, uploaderID uint64, published bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "uploader_id", "title", "description", "author_name", "category",
		"cover_name", "cover_type", "cover_size", "pdf_name", "pdf_type", "pdf_size",
		"number_of_downloads", "is_published", "created_at", "updated_at",
	}).AddRow(id, uploaderID, "Mere Theology", "", "A. Writer", "Theology",
		nil, nil, nil, "book.pdf", "application/pdf", 1024, 3, published, now, now)
}

func bookCtx(actor *policy.Actor, method, target, id string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	if actor != nil {
		c.Set("actor", actor)
	}
	return c, rec
}

func TestBookDownloadBumpsCounter(t *testing.T) {
	h, mock := newBookHandler(t)
	mock.ExpectQuery("SELECT .+ FROM books WHERE id=").
		WithArgs(uint64(4)).
		WillReturnRows(bookRows(4, 2, true))
	mock.ExpectQuery("SELECT pdf_data, pdf_type, pdf_name FROM books").
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"pdf_data", "pdf_type", "pdf_name"}).
			AddRow([]byte("%PDF-1.7"), "application/pdf", "book.pdf"))
	mock.ExpectExec(`UPDATE books SET number_of_downloads = number_of_downloads \+ 1`).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := bookCtx(nil, http.MethodGet, "/v1/books/4/download", "4")
	require.NoError(t, h.Download(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `attachment; filename="book.pdf"`)
	assert.Equal(t, "%PDF-1.7", rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookDownloadEmptySlot(t *testing.T) {
	h, mock := newBookHandler(t)
	mock.ExpectQuery("SELECT .+ FROM books WHERE id=").
		WillReturnRows(bookRows(4, 2, true))
	mock.ExpectQuery("SELECT pdf_data, pdf_type, pdf_name FROM books").
		WillReturnRows(sqlmock.NewRows([]string{"pdf_data", "pdf_type", "pdf_name"}).
			AddRow(nil, nil, nil))

	c, rec := bookCtx(nil, http.MethodGet, "/v1/books/4/download", "4")
	require.NoError(t, h.Download(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookGetUnpublishedAnonymous(t *testing.T) {
	h, mock := newBookHandler(t)
	mock.ExpectQuery("SELECT .+ FROM books WHERE id=").
		WillReturnRows(bookRows(4, 2, false))

	c, rec := bookCtx(nil, http.MethodGet, "/v1/books/4", "4")
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestBookGetUnpublishedOwner(t *testing.T) {
	h, mock := newBookHandler(t)
	mock.ExpectQuery("SELECT .+ FROM books WHERE id=").
		WillReturnRows(bookRows(4, 2, false))

	c, rec := bookCtx(&policy.Actor{ID: 2, Role: model.RoleClergy}, http.MethodGet, "/v1/books/4", "4")
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBookUpdateRefusedForNonAdmin(t *testing.T) {
	h, mock := newBookHandler(t)
	mock.ExpectQuery("SELECT .+ FROM books WHERE id=").
		WillReturnRows(bookRows(4, 2, true))

	// Books are curated: even the uploader cannot edit without the admin role.
	c, rec := bookCtx(&policy.Actor{ID: 2, Role: model.RoleClergy}, http.MethodPatch, "/v1/books/4", "4")
	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
