package payments

import (
	"errors"
	"time"

	"github.com/ferremas-app/ferremas-backend/internal/orders/domain"
)

// Estados de una transacción Webpay. "error" queda reservado para fallas de
// comunicación con el gateway, distinto de un pago rechazado.
const (
	TransaccionIniciada = "iniciada"
	TransaccionPagada   = "pagada"
	TransaccionFallida  = "fallida"
	TransaccionError    = "error"
)

var (
	ErrTransaccionNoEncontrada = errors.New("transacción no encontrada")
	ErrPagoNoAutorizado        = errors.New("el pago no fue autorizado")
)

// Transaccion is one Webpay attempt in the transacciones collection. A
// checkout can leave several: a fallida followed by a pagada on retry.
type Transaccion struct {
	ID                 string                 `firestore:"-" json:"id"`
	OrdenCompra        string                 `firestore:"ordenCompra" json:"ordenCompra"`
	UsuarioID          string                 `firestore:"usuarioId" json:"usuarioId"`
	Token              string                 `firestore:"token" json:"token"`
	Monto              int64                  `firestore:"monto" json:"monto"`
	Estado             string                 `firestore:"estado" json:"estado"`
	Productos          []domain.ItemPedido    `firestore:"productos" json:"productos"`
	CodigoAutorizacion string                 `firestore:"codigoAutorizacion,omitempty" json:"codigoAutorizacion,omitempty"`
	Respuesta          map[string]interface{} `firestore:"respuesta,omitempty" json:"respuesta,omitempty"`
	FechaCreacion      time.Time              `firestore:"fechaCreacion" json:"fechaCreacion"`
	FechaActualizacion time.Time              `firestore:"fechaActualizacion,omitempty" json:"fechaActualizacion,omitempty"`
}
