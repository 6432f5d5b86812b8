package catalog

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{repo: repo}
}

// RegisterPublicRoutes mounts the read-only catalog everyone can browse.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/productos", h.ListarProductos)
	rg.GET("/sucursales", h.ListarSucursales)
}

// RegisterManagementRoutes mounts the write side (admin / bodeguero).
func (h *Handler) RegisterManagementRoutes(rg *gin.RouterGroup) {
	rg.POST("/productos", h.CrearProducto)
	rg.PUT("/productos/:id", h.ActualizarProducto)
	rg.DELETE("/productos/:id", h.EliminarProducto)
	rg.POST("/sucursales", h.CrearSucursal)
	rg.DELETE("/sucursales/:id", h.EliminarSucursal)
}

func (h *Handler) ListarProductos(c *gin.Context) {
	productos, err := h.repo.ListarProductos(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudieron listar los productos"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"productos": productos})
}

func (h *Handler) CrearProducto(c *gin.Context) {
	var p Producto
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "producto inválido"})
		return
	}
	id, err := h.repo.CrearProducto(c.Request.Context(), &p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo crear el producto"})
		return
	}
	p.ID = id
	c.JSON(http.StatusCreated, gin.H{"producto": p})
}

func (h *Handler) ActualizarProducto(c *gin.Context) {
	var p Producto
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "producto inválido"})
		return
	}
	if err := h.repo.ActualizarProducto(c.Request.Context(), c.Param("id"), &p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo actualizar el producto"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) EliminarProducto(c *gin.Context) {
	err := h.repo.EliminarProducto(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrProductoNoEncontrado) {
			c.JSON(http.StatusNotFound, gin.H{"error": ErrProductoNoEncontrado.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo eliminar el producto"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ListarSucursales(c *gin.Context) {
	sucursales, err := h.repo.ListarSucursales(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudieron listar las sucursales"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sucursales": sucursales})
}

func (h *Handler) CrearSucursal(c *gin.Context) {
	var s Sucursal
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sucursal inválida"})
		return
	}
	id, err := h.repo.CrearSucursal(c.Request.Context(), &s)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo crear la sucursal"})
		return
	}
	s.ID = id
	c.JSON(http.StatusCreated, gin.H{"sucursal": s})
}

func (h *Handler) EliminarSucursal(c *gin.Context) {
	if err := h.repo.EliminarSucursal(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo eliminar la sucursal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
