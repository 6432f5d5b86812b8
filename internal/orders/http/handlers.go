package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ferremas-app/ferremas-backend/internal/orders/domain"
	"github.com/ferremas-app/ferremas-backend/internal/orders/service"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterClientRoutes mounts the endpoints the cliente session uses.
func (h *Handler) RegisterClientRoutes(rg *gin.RouterGroup) {
	rg.POST("/pedidos", h.CrearPedido)
	rg.GET("/pedidos", h.MisPedidos)
	rg.GET("/pedidos/historial", h.Historial)
}

// RegisterVendedorRoutes mounts the vendedor workflow.
func (h *Handler) RegisterVendedorRoutes(rg *gin.RouterGroup) {
	rg.GET("/pedidos", h.VistaVendedor)
	rg.PUT("/pedidos/:id/aceptar", h.Aceptar)
	rg.PUT("/pedidos/:id/rechazar", h.Rechazar)
	rg.PUT("/pedidos/:id/entregar", h.Entregar)
}

// RegisterBodegueroRoutes mounts the bodega workflow.
func (h *Handler) RegisterBodegueroRoutes(rg *gin.RouterGroup) {
	rg.GET("/pedidos", h.VistaBodeguero)
	rg.PUT("/pedidos/:id/preparacion", h.IniciarPreparacion)
	rg.PUT("/pedidos/:id/preparado", h.MarcarPreparado)
}

// RegisterContadorRoutes mounts the payment verification workflow.
func (h *Handler) RegisterContadorRoutes(rg *gin.RouterGroup) {
	rg.GET("/pagos", h.VistaContador)
	rg.PUT("/pedidos/:id/pago/confirmar", h.ConfirmarPago)
	rg.PUT("/pedidos/:id/pago/rechazar", h.RechazarPago)
}

func (h *Handler) CrearPedido(c *gin.Context) {
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

	p, err := h.svc.CrearPedidoTransferencia(c.Request.Context(), c.GetString("uid"), body.Retiro, body.Direccion)
	if err != nil {
		respondPedidoError(c, err, "no se pudo crear el pedido")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"pedido": p})
}

func (h *Handler) MisPedidos(c *gin.Context) {
	pedidos, err := h.svc.PedidosDeCliente(c.Request.Context(), c.GetString("uid"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudieron listar los pedidos"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pedidos": pedidos})
}

func (h *Handler) Historial(c *gin.Context) {
	pedidos, err := h.svc.HistorialDeCliente(c.Request.Context(), c.GetString("uid"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo obtener el historial"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pedidos": pedidos})
}

func (h *Handler) VistaVendedor(c *gin.Context) {
	vista, err := h.svc.VistaVendedor(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudieron listar los pedidos"})
		return
	}
	c.JSON(http.StatusOK, vista)
}

func (h *Handler) VistaBodeguero(c *gin.Context) {
	pedidos, err := h.svc.VistaBodeguero(c.Request.Context(), c.GetString("uid"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudieron listar los pedidos"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pedidos": pedidos})
}

func (h *Handler) VistaContador(c *gin.Context) {
	pedidos, err := h.svc.VistaContador(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudieron listar los pagos"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pedidos": pedidos})
}

func (h *Handler) Aceptar(c *gin.Context) {
	p, err := h.svc.AceptarPedido(c.Request.Context(), c.Param("id"), c.GetString("uid"))
	if err != nil {
		respondPedidoError(c, err, "no se pudo aceptar el pedido")
		return
	}
	c.JSON(http.StatusOK, gin.H{"pedido": p})
}

func (h *Handler) Rechazar(c *gin.Context) {
	var body struct {
		Motivo string `json:"motivo"`
	}
	_ = c.ShouldBindJSON(&body)

	p, err := h.svc.RechazarPedido(c.Request.Context(), c.Param("id"), c.GetString("uid"), body.Motivo)
	if err != nil {
		respondPedidoError(c, err, "no se pudo rechazar el pedido")
		return
	}
	c.JSON(http.StatusOK, gin.H{"pedido": p})
}

func (h *Handler) Entregar(c *gin.Context) {
	p, err := h.svc.MarcarEntregado(c.Request.Context(), c.Param("id"), c.GetString("uid"))
	if err != nil {
		respondPedidoError(c, err, "no se pudo marcar la entrega")
		return
	}
	c.JSON(http.StatusOK, gin.H{"pedido": p})
}

func (h *Handler) IniciarPreparacion(c *gin.Context) {
	p, err := h.svc.IniciarPreparacion(c.Request.Context(), c.Param("id"), c.GetString("uid"))
	if err != nil {
		respondPedidoError(c, err, "no se pudo iniciar la preparación")
		return
	}
	c.JSON(http.StatusOK, gin.H{"pedido": p})
}

func (h *Handler) MarcarPreparado(c *gin.Context) {
	var body struct {
		Notas string `json:"notas"`
	}
	_ = c.ShouldBindJSON(&body)

	p, err := h.svc.MarcarPreparado(c.Request.Context(), c.Param("id"), c.GetString("uid"), body.Notas)
	if err != nil {
		respondPedidoError(c, err, "no se pudo marcar el pedido como preparado")
		return
	}
	c.JSON(http.StatusOK, gin.H{"pedido": p})
}

func (h *Handler) ConfirmarPago(c *gin.Context) {
	p, err := h.svc.ConfirmarPagoTransferencia(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPedidoError(c, err, "no se pudo confirmar el pago")
		return
	}
	c.JSON(http.StatusOK, gin.H{"pedido": p})
}

func (h *Handler) RechazarPago(c *gin.Context) {
	var body struct {
		Motivo string `json:"motivo"`
	}
	_ = c.ShouldBindJSON(&body)

	p, err := h.svc.RechazarPagoTransferencia(c.Request.Context(), c.Param("id"), body.Motivo)
	if err != nil {
		respondPedidoError(c, err, "no se pudo rechazar el pago")
		return
	}
	c.JSON(http.StatusOK, gin.H{"pedido": p})
}

// respondPedidoError maps domain errors onto status codes. Transition
// conflicts come back as 409 so the client can refresh its view.
func respondPedidoError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrPedidoNoEncontrado):
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrPedidoNoEncontrado.Error()})
	case errors.Is(err, domain.ErrTransicionInvalida) || errors.Is(err, domain.ErrTransicionPagoInvalida):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPedidoAjeno):
		c.JSON(http.StatusForbidden, gin.H{"error": service.ErrPedidoAjeno.Error()})
	case errors.Is(err, domain.ErrCarritoVacio):
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrCarritoVacio.Error()})
	case errors.Is(err, service.ErrSinBodegueros):
		c.JSON(http.StatusConflict, gin.H{"error": service.ErrSinBodegueros.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
