package payments

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ferremas-app/ferremas-backend/internal/payments/webpay"
)

func setupRelay(t *testing.T, gateway http.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(gateway)
	t.Cleanup(srv.Close)

	wp := webpay.NewClient(srv.URL, "cc", "key", 5*time.Second)
	h := NewRelayHandler(wp, zap.NewNop())

	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func TestRelayIniciar(t *testing.T) {
	r := setupRelay(t, func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"token": "tok-abc",
			"url":   "https://webpay.example/init",
		})
	})

	body, _ := json.Marshal(map[string]interface{}{
		"amount":    45980,
		"buyOrder":  "OC123",
		"sessionId": "uid-1",
		"returnUrl": "https://app.example/retorno",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/pagos/iniciar", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "tok-abc", resp["token"])
	assert.Equal(t, "https://webpay.example/init", resp["url"])
}

func TestRelayIniciarSinDatos(t *testing.T) {
	r := setupRelay(t, func(w http.ResponseWriter, req *http.Request) {
		t.Fatal("el gateway no debería recibir nada")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/pagos/iniciar", bytes.NewReader([]byte(`{"amount": 0}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
}

func TestRelayIniciarGatewayCaido(t *testing.T) {
	r := setupRelay(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	body, _ := json.Marshal(map[string]interface{}{
		"amount":    45980,
		"buyOrder":  "OC123",
		"sessionId": "uid-1",
		"returnUrl": "https://app.example/retorno",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/pagos/iniciar", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Error al iniciar la transacción", resp["error"])
}

func TestRelayVerificar(t *testing.T) {
	r := setupRelay(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodGet, req.Method)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "AUTHORIZED",
			"buy_order": "OC123",
		})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/pagos/verificar/tok-abc", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AUTHORIZED", resp["status"])
	assert.Equal(t, "OC123", resp["buy_order"])
}

func TestRelayConfirmar(t *testing.T) {
	r := setupRelay(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPut, req.Method)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":             "AUTHORIZED",
			"authorization_code": "1213",
		})
	})

	body, _ := json.Marshal(map[string]string{"token": "tok-abc"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/pagos/confirmar", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AUTHORIZED", resp["status"])
}

func TestRelayConfirmarSinToken(t *testing.T) {
	r := setupRelay(t, func(w http.ResponseWriter, req *http.Request) {
		t.Fatal("el gateway no debería recibir nada")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/pagos/confirmar", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
