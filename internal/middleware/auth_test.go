package middleware

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
	"github.com/ministryhub/platform/internal/utils"
)

const testSecret = "test-secret"

func activeUserRows(id uint64, role string, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "role", "phone", "bio", "church",
		"position", "department", "student_ref", "photo_name", "photo_type", "photo_size",
		"is_active", "last_login_at", "password_changed_at", "created_at", "updated_at",
	}).AddRow(id, "Test User", "t@example.com", "$2a$04$hash", role, "", "", "", "", "", "",
		nil, nil, nil, active, nil, nil, now, now)
}

func runAuth(t *testing.T, mw echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, *policy.Actor) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *policy.Actor
	h := mw(func(c echo.Context) error {
		seen = CurrentActor(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, seen
}

func TestRequireAuthMissingHeader(t *testing.T) {
	rec, _ := runAuth(t, RequireAuth(testSecret, nil), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthGarbageToken(t *testing.T) {
	rec, _ := runAuth(t, RequireAuth(testSecret, nil), "Bearer not.a.token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestRequireAuthExpiredToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 7, model.RoleStudent, -5)
	require.NoError(t, err)

	rec, _ := runAuth(t, RequireAuth(testSecret, nil), "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestRequireAuthResolvesActor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(uint64(7)).
		WillReturnRows(activeUserRows(7, model.RoleClergy, true))

	tok, err := utils.NewAccessToken(testSecret, 7, model.RoleClergy, 15)
	require.NoError(t, err)

	rec, actor := runAuth(t, RequireAuth(testSecret, repository.NewUserRepo(db)), "Bearer "+tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, actor)
	assert.Equal(t, uint64(7), actor.ID)
	assert.Equal(t, model.RoleClergy, actor.Role)
}

func TestRequireAuthDeactivatedAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(uint64(7)).
		WillReturnRows(activeUserRows(7, model.RoleStudent, false))

	tok, err := utils.NewAccessToken(testSecret, 7, model.RoleStudent, 15)
	require.NoError(t, err)

	rec, actor := runAuth(t, RequireAuth(testSecret, repository.NewUserRepo(db)), "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, actor)
	assert.Contains(t, rec.Body.String(), "account deactivated")
}

func TestOptionalAuthAnonymousPasses(t *testing.T) {
	rec, actor := runAuth(t, OptionalAuth(testSecret, nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, actor)
}

func TestOptionalAuthRejectsBadToken(t *testing.T) {
	rec, _ := runAuth(t, OptionalAuth(testSecret, nil), "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	run := func(actor *policy.Actor) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if actor != nil {
			c.Set(actorKey, actor)
		}
		h := RequireRole(model.RoleAdmin)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		require.NoError(t, h(c))
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, run(nil).Code)
	assert.Equal(t, http.StatusForbidden, run(&policy.Actor{ID: 1, Role: model.RoleStudent}).Code)
	assert.Equal(t, http.StatusOK, run(&policy.Actor{ID: 2, Role: model.RoleAdmin}).Code)
}
