package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterAdminRoutes mounts the admin-only usuario CRUD.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/usuarios", h.Listar)
	rg.POST("/usuarios", h.Registrar)
	rg.GET("/usuarios/:uid", h.Get)
	rg.PUT("/usuarios/:uid", h.Actualizar)
	rg.DELETE("/usuarios/:uid", h.Eliminar)
}

// RegisterSessionRoutes mounts the endpoints any authenticated session uses.
func (h *Handler) RegisterSessionRoutes(rg *gin.RouterGroup) {
	rg.GET("/perfil", h.Perfil)
	rg.POST("/push-token", h.RegistrarTokenPush)
}

func (h *Handler) Listar(c *gin.Context) {
	usuarios, err := h.svc.Listar(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudieron listar los usuarios"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"usuarios": usuarios})
}

func (h *Handler) Registrar(c *gin.Context) {
	var req RegistroRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos de registro inválidos"})
		return
	}

	u, err := h.svc.Registrar(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrRolInvalido) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrRolInvalido.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo registrar el usuario"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"usuario": u})
}

func (h *Handler) Get(c *gin.Context) {
	u, err := h.svc.Get(c.Request.Context(), c.Param("uid"))
	if err != nil {
		if errors.Is(err, ErrUsuarioNoEncontrado) {
			c.JSON(http.StatusNotFound, gin.H{"error": ErrUsuarioNoEncontrado.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo obtener el usuario"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"usuario": u})
}

func (h *Handler) Actualizar(c *gin.Context) {
	var body struct {
		NombreCompleto string `json:"nombreCompleto" binding:"required"`
		Rol            string `json:"rol" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos inválidos"})
		return
	}

	err := h.svc.Actualizar(c.Request.Context(), c.Param("uid"), body.NombreCompleto, body.Rol)
	switch {
	case errors.Is(err, ErrUsuarioNoEncontrado):
		c.JSON(http.StatusNotFound, gin.H{"error": ErrUsuarioNoEncontrado.Error()})
	case errors.Is(err, ErrRolInvalido):
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrRolInvalido.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo actualizar el usuario"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (h *Handler) Eliminar(c *gin.Context) {
	if err := h.svc.Eliminar(c.Request.Context(), c.Param("uid")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo eliminar el usuario"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Perfil returns the usuario loaded by the auth middleware.
func (h *Handler) Perfil(c *gin.Context) {
	uid := c.GetString("uid")
	u, err := h.svc.Get(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "perfil no encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"usuario": u})
}

func (h *Handler) RegistrarTokenPush(c *gin.Context) {
	var body struct {
		Token    string `json:"token" binding:"required"`
		Platform string `json:"platform"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token requerido"})
		return
	}

	uid := c.GetString("uid")
	if err := h.svc.RegistrarTokenPush(c.Request.Context(), uid, body.Token, body.Platform); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo registrar el token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
