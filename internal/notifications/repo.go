package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ColCliente     = "notificacionesCliente"
	ColVendedor    = "notificacionesVendedor"
	ColContador    = "notificacionesContador"
	colErroresPush = "errores_push"
	colLogSistema  = "log_sistema"
)

var ErrNotificacionNoEncontrada = errors.New("notificación no encontrada")

// Notificacion is an in-app alert persisted for a target usuario. Read
// state is the only mutation; notifications are never removed.
type Notificacion struct {
	ID          string    `firestore:"-" json:"id"`
	Titulo      string    `firestore:"titulo" json:"titulo"`
	Mensaje     string    `firestore:"mensaje" json:"mensaje"`
	Leida       bool      `firestore:"leida" json:"leida"`
	UsuarioID   string    `firestore:"usuarioId" json:"usuarioId"`
	OrdenCompra string    `firestore:"ordenCompra,omitempty" json:"ordenCompra,omitempty"`
	Fecha       time.Time `firestore:"fecha" json:"fecha"`
}

// ErrorPush is a diagnostic record for failed or suspicious push delivery.
type ErrorPush struct {
	Token     string                 `firestore:"token" json:"token"`
	Detalle   map[string]interface{} `firestore:"detalle,omitempty" json:"detalle,omitempty"`
	UserAgent string                 `firestore:"userAgent,omitempty" json:"userAgent,omitempty"`
	Fecha     time.Time              `firestore:"fecha" json:"fecha"`
}

type Repo struct {
	client *firestore.Client
}

func NewRepo(client *firestore.Client) *Repo {
	return &Repo{client: client}
}

// Crear persists an in-app notification in the given collection
// (ColCliente or ColVendedor).
func (r *Repo) Crear(ctx context.Context, coleccion string, n *Notificacion) (string, error) {
	if n.Fecha.IsZero() {
		n.Fecha = time.Now()
	}
	ref, _, err := r.client.Collection(coleccion).Add(ctx, n)
	if err != nil {
		return "", fmt.Errorf("crear notificación: %w", err)
	}
	return ref.ID, nil
}

// ListarPorUsuario returns a usuario's notifications, newest first.
func (r *Repo) ListarPorUsuario(ctx context.Context, coleccion, uid string) ([]*Notificacion, error) {
	iter := r.client.Collection(coleccion).
		Where("usuarioId", "==", uid).
		OrderBy("fecha", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var out []*Notificacion
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listar notificaciones: %w", err)
		}
		var n Notificacion
		if err := snap.DataTo(&n); err != nil {
			continue
		}
		n.ID = snap.Ref.ID
		out = append(out, &n)
	}
	return out, nil
}

// ListarRecientes returns the newest notifications of a collection without
// filtering by usuario. ColContador se lee así: los avisos de pago son para
// el rol completo, no para un uid.
func (r *Repo) ListarRecientes(ctx context.Context, coleccion string, limite int) ([]*Notificacion, error) {
	if limite <= 0 {
		limite = 100
	}
	iter := r.client.Collection(coleccion).
		OrderBy("fecha", firestore.Desc).
		Limit(limite).
		Documents(ctx)
	defer iter.Stop()

	var out []*Notificacion
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listar notificaciones: %w", err)
		}
		var n Notificacion
		if err := snap.DataTo(&n); err != nil {
			continue
		}
		n.ID = snap.Ref.ID
		out = append(out, &n)
	}
	return out, nil
}

// MarcarLeida flips the read flag.
func (r *Repo) MarcarLeida(ctx context.Context, coleccion, id string) error {
	_, err := r.client.Collection(coleccion).Doc(id).Update(ctx, []firestore.Update{
		{Path: "leida", Value: true},
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotificacionNoEncontrada
	}
	if err != nil {
		return fmt.Errorf("marcar notificación leída: %w", err)
	}
	return nil
}

// RegistrarErrorPush stores a push diagnostic entry.
func (r *Repo) RegistrarErrorPush(ctx context.Context, e *ErrorPush) error {
	if e.Fecha.IsZero() {
		e.Fecha = time.Now()
	}
	if e.Token == "" {
		e.Token = "no-token"
	}
	if _, _, err := r.client.Collection(colErroresPush).Add(ctx, e); err != nil {
		return fmt.Errorf("registrar error de push: %w", err)
	}
	return nil
}

// RegistrarEvento appends a free-form entry to log_sistema.
func (r *Repo) RegistrarEvento(ctx context.Context, evento string, detalle map[string]interface{}) error {
	_, _, err := r.client.Collection(colLogSistema).Add(ctx, map[string]interface{}{
		"evento":  evento,
		"detalle": detalle,
		"fecha":   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("registrar evento de sistema: %w", err)
	}
	return nil
}
