package notifications

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler exposes the push relay surface the mobile client calls directly,
// plus the authenticated in-app notification endpoints.
type Handler struct {
	sender *Sender
	repo   *Repo
	logger *zap.Logger
}

func NewHandler(sender *Sender, repo *Repo, logger *zap.Logger) *Handler {
	return &Handler{sender: sender, repo: repo, logger: logger}
}

// RegisterRelayRoutes mounts the public relay endpoints. Paths and response
// envelopes are kept compatible with the previous Express relay.
func (h *Handler) RegisterRelayRoutes(rg *gin.RouterGroup) {
	rg.POST("/notificar-vendedor", h.notificar(CanalVendedor))
	rg.POST("/notificar-cliente", h.notificar(CanalCliente))
	rg.POST("/notificar-bodeguero", h.notificar(CanalBodeguero))
	rg.POST("/test-notification", h.TestNotification)
	rg.POST("/debug-fcm", h.DebugFCM)
}

// RegisterSessionRoutes mounts the in-app notification endpoints.
func (h *Handler) RegisterSessionRoutes(rg *gin.RouterGroup) {
	rg.GET("/notificaciones/cliente", h.listar(ColCliente))
	rg.GET("/notificaciones/vendedor", h.listar(ColVendedor))
	rg.PUT("/notificaciones/cliente/:id/leida", h.marcarLeida(ColCliente))
	rg.PUT("/notificaciones/vendedor/:id/leida", h.marcarLeida(ColVendedor))
}

// RegisterContadorRoutes mounts the role-wide payment alerts the contador
// reads.
func (h *Handler) RegisterContadorRoutes(rg *gin.RouterGroup) {
	rg.GET("/notificaciones", h.ListarContador)
	rg.PUT("/notificaciones/:id/leida", h.marcarLeida(ColContador))
}

type pushRequest struct {
	Token string                 `json:"token" binding:"required"`
	Title string                 `json:"title" binding:"required"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data"`
}

func (h *Handler) notificar(canal string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pushRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token y title son requeridos"})
			return
		}

		if _, err := h.sender.Enviar(c.Request.Context(), req.Token, req.Title, req.Body, canal, req.Data); err != nil {
			h.logger.Error("fallo al enviar push", zap.String("canal", canal), zap.Error(err))
			// Failed deliveries land in errores_push for later inspection.
			_ = h.repo.RegistrarErrorPush(c.Request.Context(), &ErrorPush{
				Token:   req.Token,
				Detalle: map[string]interface{}{"canal": canal, "error": err.Error()},
			})
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Fallo al enviar notificación"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (h *Handler) TestNotification(c *gin.Context) {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Se requiere un token FCM"})
		return
	}

	messageID, err := h.sender.Enviar(c.Request.Context(), body.Token,
		"Prueba de Notificación",
		"Esta es una notificación de prueba para verificar la configuración.",
		CanalTest,
		map[string]interface{}{
			"type":      "test",
			"timestamp": time.Now().UnixMilli(),
		})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al enviar notificación de prueba"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messageId": messageID})
}

func (h *Handler) DebugFCM(c *gin.Context) {
	var body struct {
		Token   string                 `json:"token"`
		Details map[string]interface{} `json:"details"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload inválido"})
		return
	}

	err := h.repo.RegistrarErrorPush(c.Request.Context(), &ErrorPush{
		Token:     body.Token,
		Detalle:   body.Details,
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al guardar diagnóstico"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) listar(coleccion string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString("uid")
		lista, err := h.repo.ListarPorUsuario(c.Request.Context(), coleccion, uid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudieron listar las notificaciones"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"notificaciones": lista})
	}
}

func (h *Handler) ListarContador(c *gin.Context) {
	lista, err := h.repo.ListarRecientes(c.Request.Context(), ColContador, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudieron listar las notificaciones"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notificaciones": lista})
}

func (h *Handler) marcarLeida(coleccion string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.repo.MarcarLeida(c.Request.Context(), coleccion, c.Param("id")); err != nil {
			if err == ErrNotificacionNoEncontrada {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo marcar la notificación"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
