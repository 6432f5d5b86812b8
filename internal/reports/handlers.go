package reports

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the contador reporting endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/estadisticas", h.Estadisticas)
	rg.GET("/reportes", h.Listar)
	rg.POST("/reportes/generar", h.Generar)
}

func (h *Handler) Estadisticas(c *gin.Context) {
	stats, err := h.svc.EstadisticasActuales(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudieron calcular las estadísticas"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"estadisticas": stats})
}

func (h *Handler) Listar(c *gin.Context) {
	reportes, err := h.svc.Listar(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudieron listar los reportes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reportes": reportes})
}

// Generar produce el reporte del mes en curso a pedido del contador. El
// cierre automático del mes anterior lo hace el job programado.
func (h *Handler) Generar(c *gin.Context) {
	rep, err := h.svc.GenerarReporte(c.Request.Context(), c.GetString("uid"), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo generar el reporte"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reporte": rep})
}
