package payments

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ferremas-app/ferremas-backend/internal/payments/webpay"
)

// RelayHandler exposes the gateway passthrough endpoints the mobile client
// calls directly. The request and response shapes stay compatible with the
// old relay, including the plain {error} envelope.
type RelayHandler struct {
	webpay *webpay.Client
	logger *zap.Logger
}

func NewRelayHandler(wp *webpay.Client, logger *zap.Logger) *RelayHandler {
	return &RelayHandler{webpay: wp, logger: logger}
}

func (h *RelayHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/pagos/iniciar", h.Iniciar)
	rg.GET("/pagos/verificar/:token", h.Verificar)
	rg.POST("/pagos/confirmar", h.Confirmar)
}

func (h *RelayHandler) Iniciar(c *gin.Context) {
	var body struct {
		Amount    int64  `json:"amount" binding:"required,gt=0"`
		BuyOrder  string `json:"buyOrder" binding:"required"`
		SessionID string `json:"sessionId" binding:"required"`
		ReturnURL string `json:"returnUrl" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Faltan datos para iniciar la transacción"})
		return
	}

	resp, err := h.webpay.Create(c.Request.Context(), webpay.CreateRequest{
		BuyOrder:  body.BuyOrder,
		SessionID: body.SessionID,
		Amount:    body.Amount,
		ReturnURL: body.ReturnURL,
	})
	if err != nil {
		h.logger.Error("creación de transacción webpay fallida",
			zap.String("buyOrder", body.BuyOrder), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al iniciar la transacción"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": resp.Token, "url": resp.URL})
}

func (h *RelayHandler) Verificar(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token requerido"})
		return
	}

	resultado, err := h.webpay.Status(c.Request.Context(), token)
	if err != nil {
		h.logger.Error("consulta de estado webpay fallida", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al verificar la transacción"})
		return
	}
	c.JSON(http.StatusOK, resultado.Raw)
}

func (h *RelayHandler) Confirmar(c *gin.Context) {
	var body struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token requerido"})
		return
	}

	resultado, err := h.webpay.Commit(c.Request.Context(), body.Token)
	if err != nil {
		h.logger.Error("confirmación webpay fallida", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al confirmar la transacción"})
		return
	}
	c.JSON(http.StatusOK, resultado.Raw)
}
