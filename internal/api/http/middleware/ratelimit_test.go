package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func setupLimited(limit rate.Limit, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(limit, burst))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pong": true})
	})
	return r
}

func TestRateLimitPermiteDentroDelBurst(t *testing.T) {
	r := setupLimited(rate.Limit(1), 3)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "petición %d dentro del burst", i+1)
	}
}

func TestRateLimitCortaSobreElBurst(t *testing.T) {
	r := setupLimited(rate.Limit(1), 2)

	var ultimo int
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		r.ServeHTTP(w, req)
		ultimo = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, ultimo)
}

func TestRateLimitSeparaPorIP(t *testing.T) {
	r := setupLimited(rate.Limit(1), 1)

	primera := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.3:1234"
	r.ServeHTTP(primera, req)

	agotada := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.3:1234"
	r.ServeHTTP(agotada, req)

	otra := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.4:1234"
	r.ServeHTTP(otra, req)

	assert.Equal(t, http.StatusOK, primera.Code)
	assert.Equal(t, http.StatusTooManyRequests, agotada.Code)
	assert.Equal(t, http.StatusOK, otra.Code, "otra IP tiene su propio límite")
}
