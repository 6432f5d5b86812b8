package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ferremas-app/ferremas-backend/internal/orders/domain"
)

const (
	colPedidos  = "pedidosPendientes"
	colDetalles = "detallesPedidos"
)

// Repo persists pedidos in Firestore. Reads validate the document before
// handing it to callers; a malformed pedido is an error, not a panic later.
type Repo struct {
	client   *firestore.Client
	validate *validator.Validate
	logger   *zap.Logger
}

func NewRepo(client *firestore.Client, logger *zap.Logger) *Repo {
	return &Repo{
		client:   client,
		validate: validator.New(),
		logger:   logger,
	}
}

func (r *Repo) Crear(ctx context.Context, p *domain.Pedido) (string, error) {
	if p.FechaCreacion.IsZero() {
		p.FechaCreacion = time.Now()
	}
	if err := r.validate.Struct(p); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPedidoInvalido, err)
	}
	ref, _, err := r.client.Collection(colPedidos).Add(ctx, p)
	if err != nil {
		return "", fmt.Errorf("creando pedido %s: %w", p.OrdenCompra, err)
	}
	p.ID = ref.ID
	return ref.ID, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*domain.Pedido, error) {
	snap, err := r.client.Collection(colPedidos).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, domain.ErrPedidoNoEncontrado
	}
	if err != nil {
		return nil, fmt.Errorf("leyendo pedido %s: %w", id, err)
	}
	return r.decode(snap)
}

// GetPorOrdenCompra busca por el código OC, que es único por checkout.
func (r *Repo) GetPorOrdenCompra(ctx context.Context, ordenCompra string) (*domain.Pedido, error) {
	iter := r.client.Collection(colPedidos).
		Where("ordenCompra", "==", ordenCompra).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, domain.ErrPedidoNoEncontrado
	}
	if err != nil {
		return nil, fmt.Errorf("buscando orden %s: %w", ordenCompra, err)
	}
	return r.decode(snap)
}

func (r *Repo) ListarPorUsuario(ctx context.Context, uid string) ([]*domain.Pedido, error) {
	iter := r.client.Collection(colPedidos).
		Where("usuarioId", "==", uid).
		OrderBy("fechaCreacion", firestore.Desc).
		Documents(ctx)
	return r.collect(iter)
}

func (r *Repo) ListarPorEstado(ctx context.Context, estados ...domain.EstadoPedido) ([]*domain.Pedido, error) {
	valores := make([]string, 0, len(estados))
	for _, e := range estados {
		valores = append(valores, string(e))
	}
	iter := r.client.Collection(colPedidos).
		Where("estadoPedido", "in", valores).
		Documents(ctx)
	return r.collect(iter)
}

func (r *Repo) ListarPorBodeguero(ctx context.Context, bodegueroID string, estados ...domain.EstadoPedido) ([]*domain.Pedido, error) {
	valores := make([]string, 0, len(estados))
	for _, e := range estados {
		valores = append(valores, string(e))
	}
	iter := r.client.Collection(colPedidos).
		Where("bodegueroId", "==", bodegueroID).
		Where("estadoPedido", "in", valores).
		Documents(ctx)
	return r.collect(iter)
}

// ListarPagosPendientes returns transferencia orders the contador still has
// to verify.
func (r *Repo) ListarPagosPendientes(ctx context.Context) ([]*domain.Pedido, error) {
	iter := r.client.Collection(colPedidos).
		Where("metodoPago", "==", domain.MetodoPagoTransferencia).
		Where("estadoPago", "==", string(domain.PagoPendiente)).
		Documents(ctx)
	return r.collect(iter)
}

// Actualizar applies a partial update and stamps fechaActualizacion.
func (r *Repo) Actualizar(ctx context.Context, id string, campos map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(campos)+1)
	for campo, valor := range campos {
		updates = append(updates, firestore.Update{Path: campo, Value: valor})
	}
	updates = append(updates, firestore.Update{Path: "fechaActualizacion", Value: time.Now()})

	_, err := r.client.Collection(colPedidos).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return domain.ErrPedidoNoEncontrado
	}
	if err != nil {
		return fmt.Errorf("actualizando pedido %s: %w", id, err)
	}
	return nil
}

// MarcarReembolsado flips estadoPago once Webpay accepted the refund. Looked
// up by ordenCompra because the refund intent only carries the OC code.
func (r *Repo) MarcarReembolsado(ctx context.Context, ordenCompra string) error {
	p, err := r.GetPorOrdenCompra(ctx, ordenCompra)
	if err != nil {
		return err
	}
	if p.EstadoPago == domain.PagoReembolsado {
		return nil
	}
	if err := p.TransicionarPago(domain.PagoReembolsado); err != nil {
		return err
	}
	return r.Actualizar(ctx, p.ID, map[string]interface{}{
		"estadoPago": string(domain.PagoReembolsado),
	})
}

// ArchivarDetalle copies the delivered pedido into detallesPedidos, the
// purchase-history collection the client app reads.
func (r *Repo) ArchivarDetalle(ctx context.Context, p *domain.Pedido) error {
	_, _, err := r.client.Collection(colDetalles).Add(ctx, p)
	if err != nil {
		return fmt.Errorf("archivando detalle de %s: %w", p.OrdenCompra, err)
	}
	return nil
}

// ListarHistorial reads the delivered orders of a user from detallesPedidos.
func (r *Repo) ListarHistorial(ctx context.Context, uid string) ([]*domain.Pedido, error) {
	iter := r.client.Collection(colDetalles).
		Where("usuarioId", "==", uid).
		OrderBy("fechaCreacion", firestore.Desc).
		Documents(ctx)
	return r.collect(iter)
}

// ListarEntreFechas returns pedidos created inside [desde, hasta), used by
// the monthly report job.
func (r *Repo) ListarEntreFechas(ctx context.Context, desde, hasta time.Time) ([]*domain.Pedido, error) {
	iter := r.client.Collection(colPedidos).
		Where("fechaCreacion", ">=", desde).
		Where("fechaCreacion", "<", hasta).
		Documents(ctx)
	return r.collect(iter)
}

func (r *Repo) collect(iter *firestore.DocumentIterator) ([]*domain.Pedido, error) {
	defer iter.Stop()

	var pedidos []*domain.Pedido
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listando pedidos: %w", err)
		}
		p, err := r.decode(snap)
		if err != nil {
			r.logger.Warn("pedido malformado omitido",
				zap.String("id", snap.Ref.ID),
				zap.Error(err))
			continue
		}
		pedidos = append(pedidos, p)
	}
	return pedidos, nil
}

func (r *Repo) decode(snap *firestore.DocumentSnapshot) (*domain.Pedido, error) {
	var p domain.Pedido
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decodificando pedido %s: %w", snap.Ref.ID, err)
	}
	p.ID = snap.Ref.ID
	if err := r.validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPedidoInvalido, err)
	}
	return &p, nil
}
