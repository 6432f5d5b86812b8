package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ferremas-app/ferremas-backend/internal/cart"
	"github.com/ferremas-app/ferremas-backend/internal/catalog"
	"github.com/ferremas-app/ferremas-backend/internal/orders/domain"
	"github.com/ferremas-app/ferremas-backend/internal/payments/webpay"
)

type transaccionesFake struct {
	docs map[string]*Transaccion
	seq  int
}

func (f *transaccionesFake) Crear(ctx context.Context, t *Transaccion) (string, error) {
	f.seq++
	id := fmt.Sprintf("t%d", f.seq)
	t.ID = id
	copia := *t
	f.docs[id] = &copia
	return id, nil
}

func (f *transaccionesFake) GetPorToken(ctx context.Context, token string) (*Transaccion, error) {
	for _, t := range f.docs {
		if t.Token == token {
			copia := *t
			return &copia, nil
		}
	}
	return nil, ErrTransaccionNoEncontrada
}

func (f *transaccionesFake) UltimaPorOrden(ctx context.Context, ordenCompra string) (*Transaccion, error) {
	var ultima *Transaccion
	for _, t := range f.docs {
		if t.OrdenCompra == ordenCompra {
			ultima = t
		}
	}
	if ultima == nil {
		return nil, ErrTransaccionNoEncontrada
	}
	copia := *ultima
	return &copia, nil
}

func (f *transaccionesFake) Actualizar(ctx context.Context, id string, campos map[string]interface{}) error {
	t, ok := f.docs[id]
	if !ok {
		return ErrTransaccionNoEncontrada
	}
	for campo, valor := range campos {
		switch campo {
		case "estado":
			t.Estado = valor.(string)
		case "codigoAutorizacion":
			t.CodigoAutorizacion = valor.(string)
		case "respuesta":
			t.Respuesta, _ = valor.(map[string]interface{})
		}
	}
	return nil
}

// pedidosFake cuenta las confirmaciones para verificar que una segunda
// confirmación del mismo token no materializa otro pedido.
type pedidosFake struct {
	confirmados int
	porOrden    map[string]*domain.Pedido
}

func (f *pedidosFake) ConfirmarPedidoWebpay(ctx context.Context, uid string, rec *cart.Recuperacion, monto int64) (*domain.Pedido, error) {
	f.confirmados++
	p := &domain.Pedido{
		ID:           fmt.Sprintf("p%d", f.confirmados),
		OrdenCompra:  rec.OrdenCompra,
		UsuarioID:    uid,
		EstadoPedido: domain.EstadoPendiente,
		EstadoPago:   domain.PagoPagado,
		MetodoPago:   domain.MetodoPagoWebpay,
		MontoTotal:   monto,
	}
	f.porOrden[rec.OrdenCompra] = p
	return p, nil
}

func (f *pedidosFake) PedidoPorOrdenCompra(ctx context.Context, ordenCompra string) (*domain.Pedido, error) {
	p, ok := f.porOrden[ordenCompra]
	if !ok {
		return nil, domain.ErrPedidoNoEncontrado
	}
	return p, nil
}

// gatewayFake responde como Webpay Plus: create entrega un token fijo y
// commit devuelve el status configurado.
func gatewayFake(t *testing.T, token, commitStatus string, amount int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/transactions"):
			json.NewEncoder(w).Encode(map[string]string{
				"token": token,
				"url":   "https://webpay.example/webpayserver/initTransaction",
			})
		case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/transactions/"+token):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":             commitStatus,
				"amount":             amount,
				"buy_order":          "ignorado",
				"authorization_code": "1213",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

type checkoutEnv struct {
	svc     *Service
	carrito *cart.Repo
	trans   *transaccionesFake
	pedidos *pedidosFake
}

func nuevoCheckout(t *testing.T, gateway *httptest.Server) *checkoutEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	e := &checkoutEnv{
		carrito: cart.NewRepo(rdb),
		trans:   &transaccionesFake{docs: make(map[string]*Transaccion)},
		pedidos: &pedidosFake{porOrden: make(map[string]*domain.Pedido)},
	}
	wp := webpay.NewClient(gateway.URL, "cc", "secret", 0)
	e.svc = NewService(e.trans, wp, e.carrito, e.pedidos, "https://app.example/retorno", zap.NewNop())
	return e
}

func cargarCarrito(t *testing.T, carrito *cart.Repo, uid string) {
	t.Helper()
	err := carrito.Reemplazar(context.Background(), uid, []cart.Item{
		{Producto: catalog.Producto{ID: "prod-1", Nombre: "Taladro", Precio: 1000}, Cantidad: 1},
	})
	require.NoError(t, err)
}

func TestCheckoutWebpayIdaYVuelta(t *testing.T) {
	gateway := gatewayFake(t, "tok-1", webpay.StatusAuthorized, 1000)
	defer gateway.Close()
	e := nuevoCheckout(t, gateway)
	ctx := context.Background()
	cargarCarrito(t, e.carrito, "cli-1")

	inicio, err := e.svc.Iniciar(ctx, "cli-1", domain.MetodoRetiroTienda, "")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", inicio.Token)
	assert.Equal(t, int64(1000), inicio.Monto)

	// El snapshot queda escrito antes de la redirección.
	rec, err := e.carrito.ObtenerRecuperacion(ctx, "cli-1")
	require.NoError(t, err)
	assert.Equal(t, inicio.OrdenCompra, rec.OrdenCompra)

	conf, err := e.svc.Confirmar(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, conf.Pedido)
	assert.Equal(t, inicio.OrdenCompra, conf.Pedido.OrdenCompra)
	assert.Equal(t, domain.PagoPagado, conf.Pedido.EstadoPago)
	assert.Equal(t, 1, e.pedidos.confirmados)

	tx, err := e.trans.GetPorToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, TransaccionPagada, tx.Estado)
	assert.Equal(t, "1213", tx.CodigoAutorizacion)

	// Carrito y recuperación se limpian exactamente una vez.
	items, err := e.carrito.Items(ctx, "cli-1")
	require.NoError(t, err)
	assert.Empty(t, items)
	_, err = e.carrito.ObtenerRecuperacion(ctx, "cli-1")
	assert.ErrorIs(t, err, cart.ErrSinRecuperacion)

	// Segunda confirmación del mismo token: devuelve el pedido ya creado
	// sin materializar otro.
	conf2, err := e.svc.Confirmar(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, conf.Pedido.OrdenCompra, conf2.Pedido.OrdenCompra)
	assert.Equal(t, 1, e.pedidos.confirmados)

	// Y al reabrir la sesión no queda checkout pendiente.
	_, err = e.svc.Recuperar(ctx, "cli-1")
	assert.ErrorIs(t, err, cart.ErrSinRecuperacion)
}

func TestConfirmarNoAutorizada(t *testing.T) {
	gateway := gatewayFake(t, "tok-2", "FAILED", 1000)
	defer gateway.Close()
	e := nuevoCheckout(t, gateway)
	ctx := context.Background()
	cargarCarrito(t, e.carrito, "cli-1")

	inicio, err := e.svc.Iniciar(ctx, "cli-1", domain.MetodoRetiroTienda, "")
	require.NoError(t, err)

	conf, err := e.svc.Confirmar(ctx, "tok-2")
	assert.ErrorIs(t, err, ErrPagoNoAutorizado)
	require.NotNil(t, conf)
	assert.Nil(t, conf.Pedido)
	assert.Equal(t, 0, e.pedidos.confirmados)

	tx, _ := e.trans.GetPorToken(ctx, "tok-2")
	assert.Equal(t, TransaccionFallida, tx.Estado)

	// El snapshot sobrevive a un pago rechazado y Reanudar lo devuelve al
	// carrito.
	rec, err := e.svc.Recuperar(ctx, "cli-1")
	require.NoError(t, err)
	assert.Equal(t, inicio.OrdenCompra, rec.OrdenCompra)

	require.NoError(t, e.svc.Reanudar(ctx, "cli-1"))
	items, err := e.carrito.Items(ctx, "cli-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "prod-1", items[0].Producto.ID)
	_, err = e.carrito.ObtenerRecuperacion(ctx, "cli-1")
	assert.ErrorIs(t, err, cart.ErrSinRecuperacion)
}
