package auth

import (
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"

	"github.com/ferremas-app/ferremas-backend/internal/users"
)

const (
	ctxUID     = "uid"
	ctxEmail   = "email"
	ctxRol     = "rol"
	ctxUsuario = "usuario"
)

// Middleware validates the Firebase ID token and loads the usuario document
// so downstream handlers know the session's rol.
func Middleware(authClient *auth.Client, repo *users.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			c.Abort()
			return
		}

		decodedToken, err := authClient.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		usuario, err := repo.Get(c.Request.Context(), decodedToken.UID)
		if err != nil {
			// Valid auth account without a usuario doc: registration never
			// finished, treat as no access.
			c.JSON(http.StatusForbidden, gin.H{"error": "usuario no registrado"})
			c.Abort()
			return
		}

		c.Set(ctxUID, usuario.UID)
		c.Set(ctxEmail, usuario.Email)
		c.Set(ctxRol, usuario.Rol)
		c.Set(ctxUsuario, usuario)

		c.Next()
	}
}

// RequireRol aborts with 403 unless the session's rol is one of the given.
func RequireRol(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rol := c.GetString(ctxRol)
		for _, r := range roles {
			if rol == r {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "rol sin permiso para esta operación"})
		c.Abort()
	}
}

// UsuarioDesde returns the usuario the middleware stored on the context.
func UsuarioDesde(c *gin.Context) (*users.Usuario, bool) {
	v, ok := c.Get(ctxUsuario)
	if !ok {
		return nil, false
	}
	u, ok := v.(*users.Usuario)
	return u, ok
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
