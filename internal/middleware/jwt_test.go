package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Al0olo/Cloud-Government/internal/utils"
)

func runWithAuth(t *testing.T, header string, mw echo.MiddlewareFunc) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/applications", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	require.NoError(t, mw(next)(c))
	return rec, c
}

func TestJWTAuthValidToken(t *testing.T) {
	tok, err := utils.NewSessionToken("test-secret", 42, "jane@example.com", "citizen")
	require.NoError(t, err)

	rec, c := runWithAuth(t, "Bearer "+tok.Token, JWTAuth("test-secret"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 42, c.Get("user_id"))
	require.Equal(t, "jane@example.com", c.Get("email"))
	require.Equal(t, "citizen", c.Get("role"))
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec, _ := runWithAuth(t, "", JWTAuth("test-secret"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	tok, err := utils.NewSessionToken("other-secret", 42, "jane@example.com", "citizen")
	require.NoError(t, err)

	rec, _ := runWithAuth(t, "Bearer "+tok.Token, JWTAuth("test-secret"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	mw := RequireRole("staff", "admin")

	cases := []struct {
		role any
		want int
	}{
		{"admin", http.StatusOK},
		{"staff", http.StatusOK},
		{"citizen", http.StatusForbidden},
		{nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/users", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if tc.role != nil {
			c.Set("role", tc.role)
		}
		require.NoError(t, mw(next)(c))
		require.Equal(t, tc.want, rec.Code)
	}
}
