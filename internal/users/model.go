package users

import (
	"errors"
	"time"
)

// Roles conocidos. The rol tag on the usuario document decides which
// route groups the session can reach.
const (
	RolCliente   = "cliente"
	RolVendedor  = "vendedor"
	RolBodeguero = "bodeguero"
	RolContador  = "contador"
	RolAdmin     = "admin"
)

var (
	ErrUsuarioNoEncontrado = errors.New("usuario no encontrado")
	ErrRolInvalido         = errors.New("rol de usuario inválido")
)

// Usuario mirrors the usuarios collection documents.
type Usuario struct {
	UID            string `firestore:"-" json:"uid"`
	NombreCompleto string `firestore:"nombreCompleto" json:"nombreCompleto" validate:"required"`
	Email          string `firestore:"email" json:"email" validate:"required,email"`
	Rol            string `firestore:"rol" json:"rol" validate:"required,oneof=cliente vendedor bodeguero contador admin"`
	PushToken      string `firestore:"pushToken,omitempty" json:"pushToken,omitempty"`
}

// TokenPush is the diagnostic registry kept in tokens_push, one doc per
// device registration.
type TokenPush struct {
	UsuarioID string    `firestore:"usuarioId" json:"usuarioId"`
	Token     string    `firestore:"token" json:"token"`
	Platform  string    `firestore:"platform,omitempty" json:"platform,omitempty"`
	Fecha     time.Time `firestore:"fecha" json:"fecha"`
}

// RolValido reports whether rol is one of the known role tags.
func RolValido(rol string) bool {
	switch rol {
	case RolCliente, RolVendedor, RolBodeguero, RolContador, RolAdmin:
		return true
	}
	return false
}
