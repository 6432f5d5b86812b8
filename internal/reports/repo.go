package reports

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

const colReportes = "reportesFinancieros"

type Repo struct {
	client *firestore.Client
}

func NewRepo(client *firestore.Client) *Repo {
	return &Repo{client: client}
}

func (r *Repo) Crear(ctx context.Context, rep *Reporte) (string, error) {
	if rep.FechaCreacion.IsZero() {
		rep.FechaCreacion = time.Now()
	}
	ref, _, err := r.client.Collection(colReportes).Add(ctx, rep)
	if err != nil {
		return "", fmt.Errorf("creando reporte %s: %w", rep.Mes, err)
	}
	rep.ID = ref.ID
	return ref.ID, nil
}

// GetPorMes busca el reporte ya generado de un mes, si existe.
func (r *Repo) GetPorMes(ctx context.Context, mes string) (*Reporte, error) {
	iter := r.client.Collection(colReportes).
		Where("mes", "==", mes).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrReporteNoEncontrado
	}
	if err != nil {
		return nil, fmt.Errorf("buscando reporte %s: %w", mes, err)
	}
	return decode(snap)
}

func (r *Repo) Listar(ctx context.Context) ([]*Reporte, error) {
	iter := r.client.Collection(colReportes).
		OrderBy("fechaCreacion", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var reportes []*Reporte
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listando reportes: %w", err)
		}
		rep, err := decode(snap)
		if err != nil {
			continue
		}
		reportes = append(reportes, rep)
	}
	return reportes, nil
}

func decode(snap *firestore.DocumentSnapshot) (*Reporte, error) {
	var rep Reporte
	if err := snap.DataTo(&rep); err != nil {
		return nil, fmt.Errorf("decodificando reporte %s: %w", snap.Ref.ID, err)
	}
	rep.ID = snap.Ref.ID
	return &rep, nil
}
