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

func newSermonHandler(t *testing.T) (*SermonHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSermonHandler(repository.NewSermonRepo(db)), mock
}

func sermonListRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "author_id", "title", "summary", "video_link", "category", "tags",
		"image_name", "image_type", "image_size", "audio_name", "audio_type", "audio_size",
		"is_published", "created_at", "updated_at",
	})
}

func listCtx(actor *policy.Actor, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if actor != nil {
		c.Set("actor", actor)
	}
	return c, rec
}

func TestSermonListByAuthorAnonymousSeesPublishedOnly(t *testing.T) {
	h, mock := newSermonHandler(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sermons WHERE 1=1 AND is_published=1 AND author_id=\?`).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .+ FROM sermons WHERE 1=1 AND is_published=1 AND author_id=\?`).
		WillReturnRows(sermonListRows().AddRow(
			3, 9, "On Grace", "", "", "General", "grace,hope",
			nil, nil, nil, nil, nil, nil, true, now, now))

	c, rec := listCtx(nil, "/v1/sermons?author=9")
	require.NoError(t, h.List(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "On Grace")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSermonListByAuthorOwnerSeesDrafts(t *testing.T) {
	h, mock := newSermonHandler(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sermons WHERE 1=1 AND author_id=\?`).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT .+ FROM sermons WHERE 1=1 AND author_id=\?`).
		WillReturnRows(sermonListRows().
			AddRow(3, 9, "On Grace", "", "", "General", "",
				nil, nil, nil, nil, nil, nil, true, now, now).
			AddRow(4, 9, "Draft for Advent", "", "", "General", "",
				nil, nil, nil, nil, nil, nil, false, now, now))

	c, rec := listCtx(&policy.Actor{ID: 9, Role: model.RoleClergy}, "/v1/sermons?author=9")
	require.NoError(t, h.List(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Draft for Advent")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSermonListByAuthorInvalidID(t *testing.T) {
	h, _ := newSermonHandler(t)
	c, rec := listCtx(nil, "/v1/sermons?author=abc")
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
