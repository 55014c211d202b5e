package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Al0olo/Cloud-Government/internal/config"
	"github.com/Al0olo/Cloud-Government/internal/model"
	"github.com/Al0olo/Cloud-Government/internal/repository"
	"github.com/Al0olo/Cloud-Government/internal/utils"
)

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	cfg := config.Config{JWTSecret: "test-secret", BcryptCost: 4}
	return NewAuthHandler(cfg, repository.NewUserRepo(db)), mock
}

func authUserRows(id uint64, email, hash, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "first_name", "last_name", "phone",
		"role", "status", "notification_preferences", "created_at", "updated_at", "last_login_at",
	}).AddRow(id, email, hash, "Jane", "Doe", "", model.RoleCitizen, status, nil, now, now, nil)
}

func jsonContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := newTestContext(method, target, strings.NewReader(body), echo.MIMEApplicationJSON, 0)
	return c, rec
}

func TestRegisterShortPassword(t *testing.T) {
	h, mock := newAuthHandler(t)

	c, rec := jsonContext(http.MethodPost, "/v1/auth/register",
		`{"email":"jane@example.com","password":"short"}`)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry"))

	c, rec := jsonContext(http.MethodPost, "/v1/auth/register",
		`{"email":"jane@example.com","password":"s3cret-pass"}`)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterIssuesToken(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id=").
		WillReturnRows(authUserRows(7, "jane@example.com", "hash", model.UserActive))

	c, rec := jsonContext(http.MethodPost, "/v1/auth/register",
		`{"email":"Jane@Example.com","password":"s3cret-pass","first_name":"Jane"}`)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"token"`)
	require.Contains(t, rec.Body.String(), `"jane@example.com"`)
	require.NotContains(t, rec.Body.String(), "password")
	require.NoError(t, mock.ExpectationsWereMet())
}

// Unknown email and wrong password must be indistinguishable to the
// caller.
func TestLoginUniform401(t *testing.T) {
	h, mock := newAuthHandler(t)

	// Unknown email.
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email=").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	c, recUnknown := jsonContext(http.MethodPost, "/v1/auth/login",
		`{"email":"nobody@example.com","password":"whatever-pass"}`)
	require.NoError(t, h.Login(c))

	// Wrong password for an existing account.
	hash, err := utils.HashPassword("right-pass", 4)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email=").
		WillReturnRows(authUserRows(7, "jane@example.com", hash, model.UserActive))
	c, recWrong := jsonContext(http.MethodPost, "/v1/auth/login",
		`{"email":"jane@example.com","password":"wrong-pass"}`)
	require.NoError(t, h.Login(c))

	require.Equal(t, http.StatusUnauthorized, recUnknown.Code)
	require.Equal(t, http.StatusUnauthorized, recWrong.Code)
	require.Equal(t, recUnknown.Body.String(), recWrong.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginSuspendedAccount(t *testing.T) {
	h, mock := newAuthHandler(t)

	hash, err := utils.HashPassword("right-pass", 4)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email=").
		WillReturnRows(authUserRows(7, "jane@example.com", hash, model.UserSuspended))

	c, rec := jsonContext(http.MethodPost, "/v1/auth/login",
		`{"email":"jane@example.com","password":"right-pass"}`)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "account disabled")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginSuccessStampsLastLogin(t *testing.T) {
	h, mock := newAuthHandler(t)

	hash, err := utils.HashPassword("right-pass", 4)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email=").
		WillReturnRows(authUserRows(7, "jane@example.com", hash, model.UserActive))
	mock.ExpectExec("UPDATE users SET last_login_at=").
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := jsonContext(http.MethodPost, "/v1/auth/login",
		`{"email":"jane@example.com","password":"right-pass"}`)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"token"`)
	require.NoError(t, mock.ExpectationsWereMet())
}
