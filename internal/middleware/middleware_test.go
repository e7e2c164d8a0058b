package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware_test_secret_32_chars!!"

func init() { gin.SetMode(gin.TestMode) }

func firmar(t *testing.T, rol string, dur time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": "2b0c7d1e-6a43-4f4e-9b57-0f1f4b1a9c11", "username": "ana", "rol": rol,
		"exp": time.Now().Add(dur).Unix(), "iat": time.Now().Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func protegido(roles ...string) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.GET("/privado", JWTAuth(secret), RequireRole(roles...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": GetClaims(c).Username})
	})
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── JWT ───────────────────────────────────────────────────────────────────────

func TestJWTAuth(t *testing.T) {
	r := protegido("cajero")

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"sin token", "", http.StatusUnauthorized},
		{"token valido", "Bearer " + firmar(t, "cajero", time.Hour), http.StatusOK},
		{"token expirado", "Bearer " + firmar(t, "cajero", -time.Minute), http.StatusUnauthorized},
		{"basura", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"sin prefijo", firmar(t, "cajero", time.Hour), http.StatusUnauthorized},
		{"rol no permitido", "Bearer " + firmar(t, "cocina", time.Hour), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/privado", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := do(r, req)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}

func TestJWTAuth_QueryTokenSoloEnUpgrade(t *testing.T) {
	r := protegido("mesero")
	tok := firmar(t, "mesero", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/privado?access_token="+tok, nil)
	assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/privado?access_token="+tok, nil)
	req.Header.Set("Upgrade", "websocket")
	w := do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ana"`)
}

func TestGetClaims_SinJWT(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetClaims(c))
}

// ── Request ID / errores ──────────────────────────────────────────────────────

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = do(r, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestErrorHandlerYRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery(), ErrorHandler())
	r.GET("/error", func(c *gin.Context) { _ = c.Error(errors.New("boom")) })
	r.GET("/escrito", func(c *gin.Context) {
		_ = c.Error(errors.New("ya respondido"))
		c.JSON(http.StatusConflict, gin.H{"detail": "conflicto"})
	})
	r.GET("/panic", func(*gin.Context) { panic("nil map") })

	w := do(r, httptest.NewRequest(http.MethodGet, "/error", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Error interno del servidor")
	assert.NotContains(t, w.Body.String(), "boom")

	w = do(r, httptest.NewRequest(http.MethodGet, "/escrito", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "nil map")
}

// ── CORS ──────────────────────────────────────────────────────────────────────

func preflight(r http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	return do(r, req)
}

func TestCORS(t *testing.T) {
	abierto := gin.New()
	abierto.Use(CORS(nil))
	w := preflight(abierto, "http://cualquiera.local")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	cerrado := gin.New()
	cerrado.Use(CORS([]string{"https://pos.local"}))
	w = preflight(cerrado, "https://pos.local")
	assert.Equal(t, "https://pos.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = preflight(cerrado, "https://otro.local")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// ── Rate limiter ──────────────────────────────────────────────────────────────

func TestLimiter_MemoriaSinRedis(t *testing.T) {
	l := NewLimiter(nil, "test", 2, time.Minute)
	ctx := context.Background()

	ok, _ := l.Permitir(ctx, "10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Permitir(ctx, "10.0.0.1")
	assert.True(t, ok)
	ok, restante := l.Permitir(ctx, "10.0.0.1")
	assert.False(t, ok)
	assert.Greater(t, restante, time.Duration(0))
	assert.LessOrEqual(t, restante, time.Minute)

	// otra IP tiene su propia ventana
	ok, _ = l.Permitir(ctx, "10.0.0.2")
	assert.True(t, ok)
}

func TestLimiter_VentanaExpira(t *testing.T) {
	l := NewLimiter(nil, "test", 1, 20*time.Millisecond)
	ctx := context.Background()

	ok, _ := l.Permitir(ctx, "ip")
	require.True(t, ok)
	ok, _ = l.Permitir(ctx, "ip")
	require.False(t, ok)

	time.Sleep(30 * time.Millisecond)
	ok, _ = l.Permitir(ctx, "ip")
	assert.True(t, ok)
}

func TestLimiter_Middleware429(t *testing.T) {
	r := gin.New()
	r.Use(NewLimiter(nil, "test", 1, time.Minute).Middleware("Demasiadas solicitudes"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Demasiadas solicitudes")
}
