package cart

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ferremas-app/ferremas-backend/internal/catalog"
)

type Handler struct {
	repo    *Repo
	catalog *catalog.Repo
}

func NewHandler(repo *Repo, catalogRepo *catalog.Repo) *Handler {
	return &Handler{repo: repo, catalog: catalogRepo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/carrito", h.Ver)
	rg.POST("/carrito/items", h.Agregar)
	rg.DELETE("/carrito/items/:productoId", h.Quitar)
	rg.DELETE("/carrito", h.Vaciar)
}

func (h *Handler) Ver(c *gin.Context) {
	uid := c.GetString("uid")
	items, err := h.repo.Items(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo leer el carrito"})
		return
	}
	var total int64
	for _, item := range items {
		total += item.Subtotal()
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (h *Handler) Agregar(c *gin.Context) {
	var body struct {
		ProductoID string `json:"productoId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productoId requerido"})
		return
	}

	producto, err := h.catalog.GetProducto(c.Request.Context(), body.ProductoID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductoNoEncontrado) {
			c.JSON(http.StatusNotFound, gin.H{"error": catalog.ErrProductoNoEncontrado.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo leer el producto"})
		return
	}

	// Advisory check only: stock is not reserved until delivery.
	if producto.Stock <= 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "producto sin stock"})
		return
	}

	uid := c.GetString("uid")
	if err := h.repo.AgregarItem(c.Request.Context(), uid, *producto); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo agregar al carrito"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Quitar(c *gin.Context) {
	uid := c.GetString("uid")
	if err := h.repo.QuitarItem(c.Request.Context(), uid, c.Param("productoId")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo quitar el producto"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Vaciar(c *gin.Context) {
	uid := c.GetString("uid")
	if err := h.repo.Vaciar(c.Request.Context(), uid); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo vaciar el carrito"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
