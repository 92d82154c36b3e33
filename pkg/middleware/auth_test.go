package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiawesome/wes-io-live/live-relay/pkg/jwt"
)

const secret = "mw-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, roles ...string) string {
	t.Helper()
	claims := &jwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID:   "u1",
		Username: "alice",
		Roles:    roles,
		Type:     jwt.TypeAccess,
	}
	s, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newRouter(m *AuthMiddleware) *gin.Engine {
	r := gin.New()
	r.GET("/admin", m.RequireAuth(), m.RequireRole("admin"), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c))
	})
	return r
}

func do(r http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if authHeader != "" {
		req.Header.Set(AuthHeaderKey, authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_Disabled(t *testing.T) {
	r := newRouter(NewAuthMiddleware(nil))
	w := do(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	r := newRouter(NewAuthMiddleware(jwt.NewVerifier(secret, "")))
	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, BearerPrefix+"garbage").Code)
}

func TestRequireRole(t *testing.T) {
	r := newRouter(NewAuthMiddleware(jwt.NewVerifier(secret, "")))

	w := do(r, BearerPrefix+token(t, "viewer"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, BearerPrefix+token(t, "viewer", "admin"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())
}
