package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"farmapos/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secreto = "test-secret"

func init() { gin.SetMode(gin.TestMode) }

func firmar(t *testing.T, rol, tipo string) string {
	t.Helper()
	claims := JWTClaims{
		UserID:   "b7f1d9a4-2a8e-4d6c-9e3f-1f0c2b7a5d11",
		Username: "u",
		Rol:      rol,
		Tipo:     tipo,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secreto))
	require.NoError(t, err)
	return s
}

func protegido(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	chain := append([]gin.HandlerFunc{JWTAuth(secreto)}, mw...)
	chain = append(chain, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/x", chain...)
	return r
}

func pedir(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := protegido()

	assert.Equal(t, http.StatusUnauthorized, pedir(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, pedir(r, "no-es-un-jwt").Code)
	assert.Equal(t, http.StatusUnauthorized, pedir(r, firmar(t, "vendedor", "refresh")).Code)
	assert.Equal(t, http.StatusUnauthorized, pedir(r, firmar(t, "gerente", "access")).Code)
	assert.Equal(t, http.StatusNoContent, pedir(r, firmar(t, "vendedor", "access")).Code)
}

func TestRequireCapability(t *testing.T) {
	r := protegido(RequireCapability(model.CapGestionarLotes))

	assert.Equal(t, http.StatusForbidden, pedir(r, firmar(t, "vendedor", "access")).Code)
	assert.Equal(t, http.StatusForbidden, pedir(r, firmar(t, "cliente", "access")).Code)
	assert.Equal(t, http.StatusNoContent, pedir(r, firmar(t, "farmaceutico", "access")).Code)
	assert.Equal(t, http.StatusNoContent, pedir(r, firmar(t, "admin", "access")).Code)
}

func TestRequireRole(t *testing.T) {
	r := protegido(RequireRole(model.RolAdmin))
	assert.Equal(t, http.StatusForbidden, pedir(r, firmar(t, "farmaceutico", "access")).Code)
	assert.Equal(t, http.StatusNoContent, pedir(r, firmar(t, "admin", "access")).Code)
}

func TestClaimsSucursal(t *testing.T) {
	vacia := ""
	invalida := "xyz"
	valida := "b7f1d9a4-2a8e-4d6c-9e3f-1f0c2b7a5d11"

	assert.Nil(t, (&JWTClaims{}).Sucursal())
	assert.Nil(t, (&JWTClaims{SucursalID: &vacia}).Sucursal())
	assert.Nil(t, (&JWTClaims{SucursalID: &invalida}).Sucursal())
	got := (&JWTClaims{SucursalID: &valida}).Sucursal()
	require.NotNil(t, got)
	assert.Equal(t, valida, got.String())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestLimitador_Local(t *testing.T) {
	reloj := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	l := NewLimitador(nil)
	l.now = func() time.Time { return reloj }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _ := l.Permitir(ctx, "login:1.2.3.4", 3, time.Minute)
		require.True(t, ok, "request %d", i+1)
	}
	ok, fin := l.Permitir(ctx, "login:1.2.3.4", 3, time.Minute)
	assert.False(t, ok)
	assert.Equal(t, reloj.Add(time.Minute), fin)

	ok, _ = l.Permitir(ctx, "login:5.6.7.8", 3, time.Minute)
	assert.True(t, ok, "keys are independent")

	reloj = reloj.Add(2 * time.Minute)
	ok, _ = l.Permitir(ctx, "login:1.2.3.4", 3, time.Minute)
	assert.True(t, ok, "a new window starts after expiry")

	reloj = reloj.Add(5 * time.Minute)
	assert.Equal(t, 2, l.Purgar())
}

func TestLimitador_Middleware(t *testing.T) {
	l := NewLimitador(nil)
	r := gin.New()
	r.GET("/x", l.Middleware("test", 1, time.Minute, "Demasiadas solicitudes"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusNoContent, pedir(r, "").Code)
	w := pedir(r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestLimitador_RetryAfterUsaReloj(t *testing.T) {
	reloj := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	l := NewLimitador(nil)
	l.now = func() time.Time { return reloj }
	r := gin.New()
	r.GET("/x", l.Middleware("test", 1, time.Minute, "Demasiadas solicitudes"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusNoContent, pedir(r, "").Code)
	reloj = reloj.Add(20 * time.Second)
	w := pedir(r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "41", w.Header().Get("Retry-After"))
}
