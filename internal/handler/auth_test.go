package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ministryhub/platform/internal/config"
	"github.com/ministryhub/platform/internal/model"
	"github.com/ministryhub/platform/internal/repository"
	"github.com/ministryhub/platform/internal/utils"
)

func testCfg() config.Config {
	return config.Config{
		JWTSecret:       "test-secret",
		AccessTTLMin:    15,
		BcryptCost:      4,
		AdminSecretKey:  "make-me-admin",
		ClergySecretKey: "make-me-clergy",
	}
}

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAuthHandler(testCfg(), repository.NewUserRepo(db)), mock
}

func jsonReq(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func dbUserRows(id uint64, email, hash, role string, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "role", "phone", "bio", "church",
		"position", "department", "student_ref", "photo_name", "photo_type", "photo_size",
		"is_active", "last_login_at", "password_changed_at", "created_at", "updated_at",
	}).AddRow(id, "Test User", email, hash, role, "", "", "", "", "", "",
		nil, nil, nil, active, nil, nil, now, now)
}

func TestRegisterDefaultsToStudent(t *testing.T) {
	h, mock := newAuthHandler(t)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("Jo", "jo@example.com", sqlmock.AnyArg(), model.RoleStudent,
			"", "", "", "", "", "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonReq(http.MethodPost, "/v1/auth/register",
		`{"name":"Jo","email":"JO@Example.com","password":"longenough","secretKey":"wrong-guess"}`), rec)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.RoleStudent, resp.User.Role)
	assert.Equal(t, "jo@example.com", resp.User.Email)

	claims, err := utils.VerifyAccessToken("test-secret", resp.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), claims.UserID)
	assert.Equal(t, model.RoleStudent, claims.Role)
}

func TestRegisterElevatesWithAdminSecret(t *testing.T) {
	h, mock := newAuthHandler(t)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("Jo", "jo@example.com", sqlmock.AnyArg(), model.RoleAdmin,
			"", "", "", "", "", "").
		WillReturnResult(sqlmock.NewResult(2, 1))

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonReq(http.MethodPost, "/v1/auth/register",
		`{"name":"Jo","email":"jo@example.com","password":"longenough","secretKey":"make-me-admin"}`), rec)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.RoleAdmin, resp.User.Role)

	claims, err := utils.VerifyAccessToken("test-secret", resp.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, claims.Role)
}

func TestRegisterShortPassword(t *testing.T) {
	h, _ := newAuthHandler(t)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonReq(http.MethodPost, "/v1/auth/register",
		`{"name":"Jo","email":"jo@example.com","password":"short"}`), rec)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h, mock := newAuthHandler(t)
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(assertableDuplicate())

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonReq(http.MethodPost, "/v1/auth/register",
		`{"name":"Jo","email":"jo@example.com","password":"longenough"}`), rec)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func assertableDuplicate() error {
	return &duplicateErr{}
}

type duplicateErr struct{}

func (*duplicateErr) Error() string {
	return "Error 1062 (23000): Duplicate entry 'jo@example.com' for key 'uq_users_email'"
}

func TestLoginSuccess(t *testing.T) {
	h, mock := newAuthHandler(t)
	hash, err := utils.HashPassword("longenough", 4)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WithArgs("jo@example.com").
		WillReturnRows(dbUserRows(1, "jo@example.com", hash, model.RoleClergy, true))
	mock.ExpectExec("UPDATE users SET last_login_at=NOW").
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonReq(http.MethodPost, "/v1/auth/login",
		`{"email":"jo@example.com","password":"longenough"}`), rec)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.RoleClergy, resp.User.Role)
	assert.NotEmpty(t, resp.Access.Token)
}

func TestLoginWrongPassword(t *testing.T) {
	h, mock := newAuthHandler(t)
	hash, err := utils.HashPassword("rightpassword", 4)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WillReturnRows(dbUserRows(1, "jo@example.com", hash, model.RoleStudent, true))

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonReq(http.MethodPost, "/v1/auth/login",
		`{"email":"jo@example.com","password":"wrongpassword"}`), rec)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginDeactivatedAccount(t *testing.T) {
	h, mock := newAuthHandler(t)
	hash, err := utils.HashPassword("longenough", 4)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WillReturnRows(dbUserRows(1, "jo@example.com", hash, model.RoleStudent, false))

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonReq(http.MethodPost, "/v1/auth/login",
		`{"email":"jo@example.com","password":"longenough"}`), rec)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// Only a verified password earns the specific deactivation message.
	assert.Contains(t, rec.Body.String(), "account deactivated")
}

func TestLoginUnknownEmail(t *testing.T) {
	h, mock := newAuthHandler(t)
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WillReturnError(sql.ErrNoRows)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonReq(http.MethodPost, "/v1/auth/login",
		`{"email":"nobody@example.com","password":"longenough"}`), rec)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
