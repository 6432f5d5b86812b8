package outbox

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

const colIntentos = "intentosPendientes"

type Repo struct {
	client *firestore.Client
}

func NewRepo(client *firestore.Client) *Repo {
	return &Repo{client: client}
}

// Encolar writes a pending intent.
func (r *Repo) Encolar(ctx context.Context, tipo string, payload map[string]interface{}) (string, error) {
	now := time.Now()
	intento := &Intento{
		Tipo:               tipo,
		Payload:            payload,
		Estado:             EstadoPendiente,
		FechaCreacion:      now,
		FechaActualizacion: now,
	}
	ref, _, err := r.client.Collection(colIntentos).Add(ctx, intento)
	if err != nil {
		return "", fmt.Errorf("encolar intento %s: %w", tipo, err)
	}
	return ref.ID, nil
}

// Reclamar claims up to batchSize retryable intents (pendiente or fallido).
// Each claim runs in a Firestore transaction re-checking the estado, so two
// processors cannot take the same intent.
func (r *Repo) Reclamar(ctx context.Context, batchSize int) ([]*Intento, error) {
	iter := r.client.Collection(colIntentos).
		Where("estado", "in", []string{EstadoPendiente, EstadoFallido}).
		OrderBy("fechaCreacion", firestore.Asc).
		Limit(batchSize).
		Documents(ctx)
	defer iter.Stop()

	var claimed []*Intento
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("buscar intentos pendientes: %w", err)
		}

		ref := snap.Ref
		now := time.Now()
		err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			fresh, err := tx.Get(ref)
			if err != nil {
				return err
			}
			estado, err := fresh.DataAt("estado")
			if err != nil || (estado != EstadoPendiente && estado != EstadoFallido) {
				return fmt.Errorf("intento ya reclamado")
			}
			return tx.Update(ref, []firestore.Update{
				{Path: "estado", Value: EstadoProcesando},
				{Path: "lockedAt", Value: now},
				{Path: "fechaActualizacion", Value: now},
			})
		})
		if err != nil {
			continue // lost the race, move on
		}

		var intento Intento
		if err := snap.DataTo(&intento); err != nil {
			continue
		}
		intento.ID = ref.ID
		intento.Estado = EstadoProcesando
		intento.LockedAt = &now
		claimed = append(claimed, &intento)
	}
	return claimed, nil
}

// Completar marks an intent done.
func (r *Repo) Completar(ctx context.Context, id string) error {
	_, err := r.client.Collection(colIntentos).Doc(id).Update(ctx, []firestore.Update{
		{Path: "estado", Value: EstadoCompletado},
		{Path: "fechaActualizacion", Value: time.Now()},
	})
	if err != nil {
		return fmt.Errorf("completar intento %s: %w", id, err)
	}
	return nil
}

// Fallar records a failed attempt: fallido so another pass retries it, or
// muerto once maxIntentos is reached.
func (r *Repo) Fallar(ctx context.Context, intento *Intento, causa string, maxIntentos int) error {
	intento.Intentos++
	estado := EstadoFallido
	if intento.Intentos >= maxIntentos {
		estado = EstadoMuerto
	}

	_, err := r.client.Collection(colIntentos).Doc(intento.ID).Update(ctx, []firestore.Update{
		{Path: "estado", Value: estado},
		{Path: "intentos", Value: intento.Intentos},
		{Path: "ultimoError", Value: causa},
		{Path: "lockedAt", Value: firestore.Delete},
		{Path: "fechaActualizacion", Value: time.Now()},
	})
	if err != nil {
		return fmt.Errorf("marcar fallo de intento %s: %w", intento.ID, err)
	}
	intento.Estado = estado
	return nil
}

// LiberarEstancados re-queues intents stuck in procesando past the lock TTL
// (a processor died mid-dispatch).
func (r *Repo) LiberarEstancados(ctx context.Context, lockTTL time.Duration) (int, error) {
	staleBefore := time.Now().Add(-lockTTL)
	iter := r.client.Collection(colIntentos).
		Where("estado", "==", EstadoProcesando).
		Where("lockedAt", "<=", staleBefore).
		Documents(ctx)
	defer iter.Stop()

	liberados := 0
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return liberados, fmt.Errorf("buscar intentos estancados: %w", err)
		}
		_, err = snap.Ref.Update(ctx, []firestore.Update{
			{Path: "estado", Value: EstadoPendiente},
			{Path: "lockedAt", Value: firestore.Delete},
			{Path: "fechaActualizacion", Value: time.Now()},
		})
		if err == nil {
			liberados++
		}
	}
	return liberados, nil
}
