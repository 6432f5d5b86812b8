package payments

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ferremas-app/ferremas-backend/internal/cart"
	"github.com/ferremas-app/ferremas-backend/internal/catalog"
	"github.com/ferremas-app/ferremas-backend/internal/orders/domain"
	"github.com/ferremas-app/ferremas-backend/internal/payments/webpay"
)

// Transacciones is the persistence surface of the Webpay attempts. *Repo
// implements it.
type Transacciones interface {
	Crear(ctx context.Context, t *Transaccion) (string, error)
	GetPorToken(ctx context.Context, token string) (*Transaccion, error)
	UltimaPorOrden(ctx context.Context, ordenCompra string) (*Transaccion, error)
	Actualizar(ctx context.Context, id string, campos map[string]interface{}) error
}

// Pedidos materializa el pedido de un checkout autorizado. El servicio de
// pedidos lo implementa.
type Pedidos interface {
	ConfirmarPedidoWebpay(ctx context.Context, uid string, rec *cart.Recuperacion, monto int64) (*domain.Pedido, error)
	PedidoPorOrdenCompra(ctx context.Context, ordenCompra string) (*domain.Pedido, error)
}

// Service maneja el checkout con Webpay. El carrito se congela en un
// snapshot de recuperación antes de redirigir al gateway; la confirmación lo
// materializa como pedido pagado y limpia el estado de sesión.
type Service struct {
	transacciones Transacciones
	webpay        *webpay.Client
	carrito       *cart.Repo
	pedidos       Pedidos
	returnURL     string
	logger        *zap.Logger
}

func NewService(transacciones Transacciones, wp *webpay.Client, carrito *cart.Repo, pedidos Pedidos, returnURL string, logger *zap.Logger) *Service {
	return &Service{
		transacciones: transacciones,
		webpay:        wp,
		carrito:       carrito,
		pedidos:       pedidos,
		returnURL:     returnURL,
		logger:        logger,
	}
}

// InicioCheckout is what the client needs to perform the gateway redirect.
type InicioCheckout struct {
	OrdenCompra string `json:"ordenCompra"`
	Token       string `json:"token"`
	URL         string `json:"url"`
	Monto       int64  `json:"monto"`
}

// Confirmacion is the outcome of a commit, authorized or not.
type Confirmacion struct {
	Pedido      *domain.Pedido         `json:"pedido,omitempty"`
	Transaccion *Transaccion           `json:"transaccion,omitempty"`
	Respuesta   map[string]interface{} `json:"respuesta,omitempty"`
}

// Iniciar creates the Webpay transaction for the session cart and snapshots
// the cart so an interrupted checkout can be resumed later.
func (s *Service) Iniciar(ctx context.Context, uid, retiro, direccion string) (*InicioCheckout, error) {
	items, err := s.carrito.Items(ctx, uid)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrCarritoVacio
	}

	var monto int64
	for _, item := range items {
		monto += item.Subtotal()
	}
	ordenCompra := domain.NuevaOrdenCompra()

	resp, err := s.webpay.Create(ctx, webpay.CreateRequest{
		BuyOrder:  ordenCompra,
		SessionID: uid,
		Amount:    monto,
		ReturnURL: s.returnURL,
	})
	if err != nil {
		return nil, fmt.Errorf("creando transacción webpay: %w", err)
	}

	if err := s.carrito.GuardarRecuperacion(ctx, uid, cart.Recuperacion{
		OrdenCompra: ordenCompra,
		Items:       items,
		Retiro:      retiro,
		Direccion:   direccion,
	}); err != nil {
		return nil, err
	}

	t := &Transaccion{
		OrdenCompra: ordenCompra,
		UsuarioID:   uid,
		Token:       resp.Token,
		Monto:       monto,
		Estado:      TransaccionIniciada,
		Productos:   itemsPedido(items),
	}
	if _, err := s.transacciones.Crear(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("checkout webpay iniciado",
		zap.String("ordenCompra", ordenCompra),
		zap.Int64("monto", monto))
	return &InicioCheckout{
		OrdenCompra: ordenCompra,
		Token:       resp.Token,
		URL:         resp.URL,
		Monto:       monto,
	}, nil
}

// Confirmar commits the transaction. Idempotente por orden de compra: si el
// pedido ya existe, la segunda confirmación lo devuelve sin escribir nada.
func (s *Service) Confirmar(ctx context.Context, token string) (*Confirmacion, error) {
	t, err := s.transacciones.GetPorToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if t.Estado == TransaccionPagada {
		p, err := s.pedidos.PedidoPorOrdenCompra(ctx, t.OrdenCompra)
		if err != nil {
			return nil, err
		}
		return &Confirmacion{Pedido: p, Transaccion: t}, nil
	}

	resultado, err := s.webpay.Commit(ctx, token)
	if err != nil {
		s.marcar(ctx, t.ID, TransaccionError, map[string]interface{}{
			"respuesta": map[string]interface{}{"detalle": err.Error()},
		})
		return nil, fmt.Errorf("confirmando en webpay: %w", err)
	}

	if !resultado.Autorizada() {
		s.marcar(ctx, t.ID, TransaccionFallida, map[string]interface{}{
			"respuesta": resultado.Raw,
		})
		return &Confirmacion{Transaccion: t, Respuesta: resultado.Raw}, ErrPagoNoAutorizado
	}

	rec, err := s.carrito.ObtenerRecuperacion(ctx, t.UsuarioID)
	if err != nil && !errors.Is(err, cart.ErrSinRecuperacion) {
		return nil, err
	}
	if rec == nil || rec.OrdenCompra != t.OrdenCompra {
		// Snapshot expirado o pisado por otro checkout: los productos de
		// la transacción son la fuente de respaldo.
		rec = &cart.Recuperacion{
			OrdenCompra: t.OrdenCompra,
			Items:       itemsCarrito(t.Productos),
			Retiro:      domain.MetodoRetiroTienda,
		}
	}

	p, err := s.pedidos.ConfirmarPedidoWebpay(ctx, t.UsuarioID, rec, int64(resultado.Amount))
	if err != nil {
		return nil, err
	}

	s.marcar(ctx, t.ID, TransaccionPagada, map[string]interface{}{
		"codigoAutorizacion": resultado.AuthorizationCode,
		"respuesta":          resultado.Raw,
	})
	t.Estado = TransaccionPagada
	t.CodigoAutorizacion = resultado.AuthorizationCode

	if err := s.carrito.Vaciar(ctx, t.UsuarioID); err != nil {
		s.logger.Warn("no se pudo vaciar el carrito", zap.Error(err))
	}
	if err := s.carrito.LimpiarRecuperacion(ctx, t.UsuarioID); err != nil {
		s.logger.Warn("no se pudo limpiar la recuperación", zap.Error(err))
	}

	s.logger.Info("pago webpay confirmado",
		zap.String("ordenCompra", t.OrdenCompra),
		zap.String("codigoAutorizacion", t.CodigoAutorizacion))
	return &Confirmacion{Pedido: p, Transaccion: t, Respuesta: resultado.Raw}, nil
}

// Recuperar reports whether the session has an interrupted checkout. Si la
// transacción ya quedó pagada solo limpia el snapshot.
func (s *Service) Recuperar(ctx context.Context, uid string) (*cart.Recuperacion, error) {
	rec, err := s.carrito.ObtenerRecuperacion(ctx, uid)
	if err != nil {
		return nil, err
	}

	t, err := s.transacciones.UltimaPorOrden(ctx, rec.OrdenCompra)
	if err == nil && t.Estado == TransaccionPagada {
		if err := s.carrito.LimpiarRecuperacion(ctx, uid); err != nil {
			s.logger.Warn("no se pudo limpiar la recuperación", zap.Error(err))
		}
		return nil, cart.ErrSinRecuperacion
	}
	return rec, nil
}

// Reanudar restores the snapshot into the cart so the client can retry the
// checkout from scratch.
func (s *Service) Reanudar(ctx context.Context, uid string) error {
	rec, err := s.carrito.ObtenerRecuperacion(ctx, uid)
	if err != nil {
		return err
	}
	if err := s.carrito.Reemplazar(ctx, uid, rec.Items); err != nil {
		return err
	}
	return s.carrito.LimpiarRecuperacion(ctx, uid)
}

// Cancelar discards the interrupted checkout and marks its attempt fallida.
func (s *Service) Cancelar(ctx context.Context, uid string) error {
	rec, err := s.carrito.ObtenerRecuperacion(ctx, uid)
	if err != nil {
		return err
	}
	if t, err := s.transacciones.UltimaPorOrden(ctx, rec.OrdenCompra); err == nil && t.Estado == TransaccionIniciada {
		s.marcar(ctx, t.ID, TransaccionFallida, nil)
	}
	return s.carrito.LimpiarRecuperacion(ctx, uid)
}

func (s *Service) marcar(ctx context.Context, id, estado string, extras map[string]interface{}) {
	campos := map[string]interface{}{"estado": estado}
	for k, v := range extras {
		campos[k] = v
	}
	if err := s.transacciones.Actualizar(ctx, id, campos); err != nil {
		s.logger.Error("no se pudo actualizar la transacción",
			zap.String("id", id), zap.Error(err))
	}
}

func itemsPedido(items []cart.Item) []domain.ItemPedido {
	productos := make([]domain.ItemPedido, 0, len(items))
	for _, item := range items {
		productos = append(productos, domain.ItemPedido{
			ProductoID: item.Producto.ID,
			Nombre:     item.Producto.Nombre,
			Precio:     item.Producto.Precio,
			Cantidad:   item.Cantidad,
		})
	}
	return productos
}

func itemsCarrito(productos []domain.ItemPedido) []cart.Item {
	items := make([]cart.Item, 0, len(productos))
	for _, p := range productos {
		items = append(items, cart.Item{
			Producto: catalog.Producto{
				ID:     p.ProductoID,
				Nombre: p.Nombre,
				Precio: p.Precio,
			},
			Cantidad: p.Cantidad,
		})
	}
	return items
}
