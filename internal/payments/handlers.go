package payments

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ferremas-app/ferremas-backend/internal/cart"
	"github.com/ferremas-app/ferremas-backend/internal/orders/domain"
)

// Handler exposes the authenticated checkout flow backed by the session cart.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/checkout/webpay", h.Iniciar)
	rg.POST("/checkout/webpay/confirmar", h.Confirmar)
	rg.GET("/checkout/recuperar", h.Recuperar)
	rg.POST("/checkout/reanudar", h.Reanudar)
	rg.POST("/checkout/cancelar", h.Cancelar)
}

func (h *Handler) Iniciar(c *gin.Context) {
	var body struct {
		Retiro    string `json:"retiro"`
		Direccion string `json:"direccion"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos inválidos"})
		return
	}
	if body.Retiro == domain.MetodoRetiroDespacho && body.Direccion == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "el despacho requiere dirección"})
		return
	}

	inicio, err := h.svc.Iniciar(c.Request.Context(), c.GetString("uid"), body.Retiro, body.Direccion)
	if err != nil {
		if errors.Is(err, domain.ErrCarritoVacio) {
			c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrCarritoVacio.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo iniciar el pago"})
		return
	}
	c.JSON(http.StatusOK, inicio)
}

func (h *Handler) Confirmar(c *gin.Context) {
	var body struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token requerido"})
		return
	}

	conf, err := h.svc.Confirmar(c.Request.Context(), body.Token)
	switch {
	case errors.Is(err, ErrPagoNoAutorizado):
		c.JSON(http.StatusConflict, gin.H{
			"error":     ErrPagoNoAutorizado.Error(),
			"respuesta": conf.Respuesta,
		})
	case errors.Is(err, ErrTransaccionNoEncontrada):
		c.JSON(http.StatusNotFound, gin.H{"error": ErrTransaccionNoEncontrada.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo confirmar el pago"})
	default:
		c.JSON(http.StatusOK, conf)
	}
}

func (h *Handler) Recuperar(c *gin.Context) {
	rec, err := h.svc.Recuperar(c.Request.Context(), c.GetString("uid"))
	if err != nil {
		if errors.Is(err, cart.ErrSinRecuperacion) {
			c.JSON(http.StatusOK, gin.H{"pendiente": false})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo revisar el checkout pendiente"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pendiente": true, "recuperacion": rec})
}

func (h *Handler) Reanudar(c *gin.Context) {
	if err := h.svc.Reanudar(c.Request.Context(), c.GetString("uid")); err != nil {
		if errors.Is(err, cart.ErrSinRecuperacion) {
			c.JSON(http.StatusNotFound, gin.H{"error": cart.ErrSinRecuperacion.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo reanudar el checkout"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Cancelar(c *gin.Context) {
	if err := h.svc.Cancelar(c.Request.Context(), c.GetString("uid")); err != nil {
		if errors.Is(err, cart.ErrSinRecuperacion) {
			c.JSON(http.StatusNotFound, gin.H{"error": cart.ErrSinRecuperacion.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo cancelar el checkout"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
