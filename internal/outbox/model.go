package outbox

import (
	"errors"
	"time"
)

// Estados of an intent record. fallido is retryable and gets reclaimed like
// pendiente; muerto is terminal.
const (
	EstadoPendiente  = "pendiente"
	EstadoProcesando = "procesando"
	EstadoCompletado = "completado"
	EstadoFallido    = "fallido"
	EstadoMuerto     = "muerto"
)

// Tipos of side effects the processor knows how to dispatch.
const (
	TipoNotificarVendedor  = "notificar_vendedor"
	TipoNotificarCliente   = "notificar_cliente"
	TipoNotificarBodeguero = "notificar_bodeguero"
	TipoNotificarContador  = "notificar_contador"
	TipoReponerStock       = "reponer_stock"
	TipoReembolso          = "reembolso"
)

var ErrTipoDesconocido = errors.New("tipo de intento desconocido")

// Intento is one pending side effect. Workflow writes record the intent
// together with their state change; the processor delivers it with bounded
// retries so a crash between the write and the side effect is recoverable.
type Intento struct {
	ID                 string                 `firestore:"-" json:"id"`
	Tipo               string                 `firestore:"tipo" json:"tipo"`
	Payload            map[string]interface{} `firestore:"payload" json:"payload"`
	Estado             string                 `firestore:"estado" json:"estado"`
	Intentos           int                    `firestore:"intentos" json:"intentos"`
	UltimoError        string                 `firestore:"ultimoError,omitempty" json:"ultimoError,omitempty"`
	LockedAt           *time.Time             `firestore:"lockedAt,omitempty" json:"lockedAt,omitempty"`
	FechaCreacion      time.Time              `firestore:"fechaCreacion" json:"fechaCreacion"`
	FechaActualizacion time.Time              `firestore:"fechaActualizacion" json:"fechaActualizacion"`
}
