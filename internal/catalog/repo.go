package catalog

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	colProductos  = "productos"
	colSucursales = "sucursales"
)

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

func (r *Repo) GetProducto(ctx context.Context, id string) (*Producto, error) {
	snap, err := r.client.Collection(colProductos).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrProductoNoEncontrado
	}
	if err != nil {
		return nil, fmt.Errorf("get producto %s: %w", id, err)
	}

	var p Producto
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode producto %s: %w", id, err)
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

func (r *Repo) ListarProductos(ctx context.Context) ([]*Producto, error) {
	iter := r.client.Collection(colProductos).Documents(ctx)
	defer iter.Stop()

	var out []*Producto
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listar productos: %w", err)
		}
		var p Producto
		if err := snap.DataTo(&p); err != nil {
			r.logger.Warn("producto con forma inválida, omitido", zap.String("id", snap.Ref.ID))
			continue
		}
		p.ID = snap.Ref.ID
		out = append(out, &p)
	}
	return out, nil
}

func (r *Repo) CrearProducto(ctx context.Context, p *Producto) (string, error) {
	if err := r.validate.Struct(p); err != nil {
		return "", fmt.Errorf("producto inválido: %w", err)
	}
	ref, _, err := r.client.Collection(colProductos).Add(ctx, p)
	if err != nil {
		return "", fmt.Errorf("crear producto: %w", err)
	}
	return ref.ID, nil
}

func (r *Repo) ActualizarProducto(ctx context.Context, id string, p *Producto) error {
	if err := r.validate.Struct(p); err != nil {
		return fmt.Errorf("producto inválido: %w", err)
	}
	_, err := r.client.Collection(colProductos).Doc(id).Set(ctx, p)
	if err != nil {
		return fmt.Errorf("actualizar producto %s: %w", id, err)
	}
	return nil
}

func (r *Repo) EliminarProducto(ctx context.Context, id string) error {
	if _, err := r.client.Collection(colProductos).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("eliminar producto %s: %w", id, err)
	}
	return nil
}

// DescontarStock lowers stock for every delivered item inside a Firestore
// transaction per product, flooring at zero. Unknown product ids are
// logged and skipped, matching what the mobile client tolerated.
func (r *Repo) DescontarStock(ctx context.Context, items []ItemDescuento) error {
	for _, item := range items {
		if item.ProductoID == "" {
			continue
		}
		cantidad := item.Cantidad
		if cantidad == 0 {
			cantidad = 1
		}

		ref := r.client.Collection(colProductos).Doc(item.ProductoID)
		err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			snap, err := tx.Get(ref)
			if err != nil {
				return err
			}
			stock, err := snap.DataAt("stock")
			if err != nil {
				return err
			}
			actual, _ := stock.(int64)
			nuevo := actual - int64(cantidad)
			if nuevo < 0 {
				nuevo = 0
			}
			return tx.Update(ref, []firestore.Update{{Path: "stock", Value: nuevo}})
		})
		if status.Code(err) == codes.NotFound {
			r.logger.Warn("descuento de stock sobre producto inexistente",
				zap.String("productoId", item.ProductoID))
			continue
		}
		if err != nil {
			return fmt.Errorf("descontar stock de %s: %w", item.ProductoID, err)
		}
	}
	return nil
}

// ReponerStock adds quantities back after a rejected paid pedido.
func (r *Repo) ReponerStock(ctx context.Context, items []ItemDescuento) error {
	for _, item := range items {
		if item.ProductoID == "" {
			continue
		}
		cantidad := item.Cantidad
		if cantidad == 0 {
			cantidad = 1
		}

		ref := r.client.Collection(colProductos).Doc(item.ProductoID)
		err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			snap, err := tx.Get(ref)
			if err != nil {
				return err
			}
			stock, err := snap.DataAt("stock")
			if err != nil {
				return err
			}
			actual, _ := stock.(int64)
			return tx.Update(ref, []firestore.Update{{Path: "stock", Value: actual + int64(cantidad)}})
		})
		if status.Code(err) == codes.NotFound {
			continue
		}
		if err != nil {
			return fmt.Errorf("reponer stock de %s: %w", item.ProductoID, err)
		}
	}
	return nil
}

func (r *Repo) ListarSucursales(ctx context.Context) ([]*Sucursal, error) {
	iter := r.client.Collection(colSucursales).Documents(ctx)
	defer iter.Stop()

	var out []*Sucursal
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listar sucursales: %w", err)
		}
		var s Sucursal
		if err := snap.DataTo(&s); err != nil {
			continue
		}
		s.ID = snap.Ref.ID
		out = append(out, &s)
	}
	return out, nil
}

func (r *Repo) CrearSucursal(ctx context.Context, s *Sucursal) (string, error) {
	if err := r.validate.Struct(s); err != nil {
		return "", fmt.Errorf("sucursal inválida: %w", err)
	}
	ref, _, err := r.client.Collection(colSucursales).Add(ctx, s)
	if err != nil {
		return "", fmt.Errorf("crear sucursal: %w", err)
	}
	return ref.ID, nil
}

func (r *Repo) EliminarSucursal(ctx context.Context, id string) error {
	if _, err := r.client.Collection(colSucursales).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("eliminar sucursal %s: %w", id, err)
	}
	return nil
}
