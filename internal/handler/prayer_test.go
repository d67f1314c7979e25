package handler

import (
	"net/http"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ministryhub/platform/internal/repository"
)

func newPrayerHandler(t *testing.T) (*PrayerHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPrayerHandler(repository.NewPrayerRepo(db)), mock
}

func prayerListRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "author_id", "title", "category",
		"image_name", "image_type", "image_size",
		"is_published", "created_at", "updated_at",
	})
}

func TestPrayerListOmitsContent(t *testing.T) {
	h, mock := newPrayerHandler(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM prayers WHERE 1=1 AND is_published=1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .+ FROM prayers WHERE 1=1 AND is_published=1`).
		WillReturnRows(prayerListRows().AddRow(
			2, 9, "Evening Prayer", "General", nil, nil, nil, true, now, now))

	c, rec := listCtx(nil, "/v1/prayers")
	require.NoError(t, h.List(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Evening Prayer")
	// List projections drop the body text entirely.
	assert.NotContains(t, rec.Body.String(), `"content"`)
}

func TestPrayerListByAuthorAnonymousSeesPublishedOnly(t *testing.T) {
	h, mock := newPrayerHandler(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM prayers WHERE 1=1 AND is_published=1 AND author_id=\?`).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .+ FROM prayers WHERE 1=1 AND is_published=1 AND author_id=\?`).
		WillReturnRows(prayerListRows().AddRow(
			2, 9, "Evening Prayer", "General", nil, nil, nil, true, now, now))

	c, rec := listCtx(nil, "/v1/prayers?author=9")
	require.NoError(t, h.List(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
