package payments

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const colTransacciones = "transacciones"

// Repo persists Webpay attempts in Firestore.
type Repo struct {
	client *firestore.Client
}

func NewRepo(client *firestore.Client) *Repo {
	return &Repo{client: client}
}

func (r *Repo) Crear(ctx context.Context, t *Transaccion) (string, error) {
	if t.FechaCreacion.IsZero() {
		t.FechaCreacion = time.Now()
	}
	ref, _, err := r.client.Collection(colTransacciones).Add(ctx, t)
	if err != nil {
		return "", fmt.Errorf("creando transacción %s: %w", t.OrdenCompra, err)
	}
	t.ID = ref.ID
	return ref.ID, nil
}

func (r *Repo) GetPorToken(ctx context.Context, token string) (*Transaccion, error) {
	iter := r.client.Collection(colTransacciones).
		Where("token", "==", token).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrTransaccionNoEncontrada
	}
	if err != nil {
		return nil, fmt.Errorf("buscando transacción por token: %w", err)
	}
	return decode(snap)
}

// UltimaPorOrden returns the most recent attempt for a buy order.
func (r *Repo) UltimaPorOrden(ctx context.Context, ordenCompra string) (*Transaccion, error) {
	iter := r.client.Collection(colTransacciones).
		Where("ordenCompra", "==", ordenCompra).
		OrderBy("fechaCreacion", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrTransaccionNoEncontrada
	}
	if err != nil {
		return nil, fmt.Errorf("buscando transacción de %s: %w", ordenCompra, err)
	}
	return decode(snap)
}

// TokenPorOrden resolves the token of the paid attempt, needed to refund.
func (r *Repo) TokenPorOrden(ctx context.Context, ordenCompra string) (string, error) {
	iter := r.client.Collection(colTransacciones).
		Where("ordenCompra", "==", ordenCompra).
		Where("estado", "==", TransaccionPagada).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return "", ErrTransaccionNoEncontrada
	}
	if err != nil {
		return "", fmt.Errorf("buscando token de %s: %w", ordenCompra, err)
	}
	t, err := decode(snap)
	if err != nil {
		return "", err
	}
	return t.Token, nil
}

// Actualizar applies a partial update and stamps fechaActualizacion.
func (r *Repo) Actualizar(ctx context.Context, id string, campos map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(campos)+1)
	for campo, valor := range campos {
		updates = append(updates, firestore.Update{Path: campo, Value: valor})
	}
	updates = append(updates, firestore.Update{Path: "fechaActualizacion", Value: time.Now()})

	_, err := r.client.Collection(colTransacciones).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return ErrTransaccionNoEncontrada
	}
	if err != nil {
		return fmt.Errorf("actualizando transacción %s: %w", id, err)
	}
	return nil
}

func decode(snap *firestore.DocumentSnapshot) (*Transaccion, error) {
	var t Transaccion
	if err := snap.DataTo(&t); err != nil {
		return nil, fmt.Errorf("decodificando transacción %s: %w", snap.Ref.ID, err)
	}
	t.ID = snap.Ref.ID
	return &t, nil
}
