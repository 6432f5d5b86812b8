package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ferremas-app/ferremas-backend/internal/cart"
	"github.com/ferremas-app/ferremas-backend/internal/catalog"
	"github.com/ferremas-app/ferremas-backend/internal/notifications"
	"github.com/ferremas-app/ferremas-backend/internal/orders/domain"
	"github.com/ferremas-app/ferremas-backend/internal/outbox"
	"github.com/ferremas-app/ferremas-backend/internal/users"
)

// pedidosFake guarda pedidos en memoria aplicando las actualizaciones
// parciales igual que el repositorio real.
type pedidosFake struct {
	docs map[string]*domain.Pedido
	seq  int
}

func nuevoPedidosFake() *pedidosFake {
	return &pedidosFake{docs: make(map[string]*domain.Pedido)}
}

func (f *pedidosFake) Crear(ctx context.Context, p *domain.Pedido) (string, error) {
	f.seq++
	id := fmt.Sprintf("p%d", f.seq)
	p.ID = id
	copia := *p
	f.docs[id] = &copia
	return id, nil
}

func (f *pedidosFake) Get(ctx context.Context, id string) (*domain.Pedido, error) {
	p, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrPedidoNoEncontrado
	}
	copia := *p
	return &copia, nil
}

func (f *pedidosFake) GetPorOrdenCompra(ctx context.Context, ordenCompra string) (*domain.Pedido, error) {
	for _, p := range f.docs {
		if p.OrdenCompra == ordenCompra {
			copia := *p
			return &copia, nil
		}
	}
	return nil, domain.ErrPedidoNoEncontrado
}

func (f *pedidosFake) ListarPorUsuario(ctx context.Context, uid string) ([]*domain.Pedido, error) {
	var out []*domain.Pedido
	for _, p := range f.docs {
		if p.UsuarioID == uid {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *pedidosFake) ListarPorEstado(ctx context.Context, estados ...domain.EstadoPedido) ([]*domain.Pedido, error) {
	var out []*domain.Pedido
	for _, p := range f.docs {
		for _, e := range estados {
			if p.EstadoPedido == e {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (f *pedidosFake) ListarPorBodeguero(ctx context.Context, bodegueroID string, estados ...domain.EstadoPedido) ([]*domain.Pedido, error) {
	var out []*domain.Pedido
	for _, p := range f.docs {
		if p.BodegueroID != bodegueroID {
			continue
		}
		for _, e := range estados {
			if p.EstadoPedido == e {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (f *pedidosFake) ListarPagosPendientes(ctx context.Context) ([]*domain.Pedido, error) {
	var out []*domain.Pedido
	for _, p := range f.docs {
		if p.MetodoPago == domain.MetodoPagoTransferencia && p.EstadoPago == domain.PagoPendiente {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *pedidosFake) ListarHistorial(ctx context.Context, uid string) ([]*domain.Pedido, error) {
	return nil, nil
}

func (f *pedidosFake) Actualizar(ctx context.Context, id string, campos map[string]interface{}) error {
	p, ok := f.docs[id]
	if !ok {
		return domain.ErrPedidoNoEncontrado
	}
	for campo, valor := range campos {
		switch campo {
		case "estadoPedido":
			p.EstadoPedido = domain.EstadoPedido(valor.(string))
		case "estadoPago":
			p.EstadoPago = domain.EstadoPago(valor.(string))
		case "vendedorId":
			p.VendedorID = valor.(string)
		case "bodegueroId":
			p.BodegueroID = valor.(string)
		case "motivoRechazo":
			p.MotivoRechazo = valor.(string)
		case "notasPreparacion":
			p.NotasPreparacion = valor.(string)
		case "montoTotal":
			p.MontoTotal = valor.(int64)
		case "verificadoPorContador":
			p.VerificadoPorContador = valor.(bool)
		}
	}
	return nil
}

func (f *pedidosFake) ArchivarDetalle(ctx context.Context, p *domain.Pedido) error {
	return nil
}

type colaFake struct {
	intentos []intentoEncolado
}

type intentoEncolado struct {
	tipo    string
	payload map[string]interface{}
}

func (c *colaFake) Encolar(ctx context.Context, tipo string, payload map[string]interface{}) (string, error) {
	c.intentos = append(c.intentos, intentoEncolado{tipo: tipo, payload: payload})
	return fmt.Sprintf("i%d", len(c.intentos)), nil
}

func (c *colaFake) porTipo(tipo string) []intentoEncolado {
	var out []intentoEncolado
	for _, i := range c.intentos {
		if i.tipo == tipo {
			out = append(out, i)
		}
	}
	return out
}

type carritoFake struct {
	items    []cart.Item
	vaciados int
}

func (c *carritoFake) Items(ctx context.Context, uid string) ([]cart.Item, error) {
	return c.items, nil
}

func (c *carritoFake) Vaciar(ctx context.Context, uid string) error {
	c.items = nil
	c.vaciados++
	return nil
}

type catalogoFake struct {
	descuentos []catalog.ItemDescuento
}

func (c *catalogoFake) DescontarStock(ctx context.Context, items []catalog.ItemDescuento) error {
	c.descuentos = append(c.descuentos, items...)
	return nil
}

type notifsFake struct {
	creadas map[string][]*notifications.Notificacion
}

func (n *notifsFake) Crear(ctx context.Context, coleccion string, doc *notifications.Notificacion) (string, error) {
	if n.creadas == nil {
		n.creadas = make(map[string][]*notifications.Notificacion)
	}
	n.creadas[coleccion] = append(n.creadas[coleccion], doc)
	return fmt.Sprintf("n%d", len(n.creadas[coleccion])), nil
}

type asignadorFake struct {
	bodeguero string
}

func (a *asignadorFake) Siguiente(ctx context.Context) (*users.Usuario, error) {
	return &users.Usuario{UID: a.bodeguero, Rol: users.RolBodeguero}, nil
}

type entorno struct {
	svc      *Service
	pedidos  *pedidosFake
	catalogo *catalogoFake
	carrito  *carritoFake
	cola     *colaFake
	notifs   *notifsFake
}

func nuevoEntorno(items ...cart.Item) *entorno {
	e := &entorno{
		pedidos:  nuevoPedidosFake(),
		catalogo: &catalogoFake{},
		carrito:  &carritoFake{items: items},
		cola:     &colaFake{},
		notifs:   &notifsFake{},
	}
	e.svc = New(e.pedidos, e.catalogo, e.carrito, e.cola, e.notifs,
		&asignadorFake{bodeguero: "bod-1"}, zap.NewNop())
	return e
}

func itemCarrito(id, nombre string, precio int64, cantidad int) cart.Item {
	return cart.Item{
		Producto: catalog.Producto{ID: id, Nombre: nombre, Precio: precio},
		Cantidad: cantidad,
	}
}

func TestCrearPedidoTransferencia(t *testing.T) {
	e := nuevoEntorno(itemCarrito("prod-1", "Taladro", 1000, 1))
	ctx := context.Background()

	p, err := e.svc.CrearPedidoTransferencia(ctx, "cli-1", domain.MetodoRetiroTienda, "")
	require.NoError(t, err)

	assert.Equal(t, domain.EstadoPendiente, p.EstadoPedido)
	assert.Equal(t, domain.PagoPendiente, p.EstadoPago)
	assert.Equal(t, int64(1000), p.MontoTotal, "el monto se calcula al crear")
	assert.False(t, p.VerificadoPorContador)
	assert.NotEmpty(t, p.OrdenCompra)

	guardado, err := e.pedidos.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), guardado.MontoTotal)

	assert.Equal(t, 1, e.carrito.vaciados, "el carrito queda vacío tras el checkout")

	avisos := e.notifs.creadas[notifications.ColContador]
	require.Len(t, avisos, 1, "un aviso al contador por pedido")
	assert.Equal(t, p.OrdenCompra, avisos[0].OrdenCompra)

	require.Len(t, e.cola.porTipo(outbox.TipoNotificarContador), 1)
	vendedores := e.cola.porTipo(outbox.TipoNotificarVendedor)
	require.Len(t, vendedores, 1)
	assert.Equal(t, p.OrdenCompra, vendedores[0].payload["ordenCompra"])
}

func TestCrearPedidoTransferenciaCarritoVacio(t *testing.T) {
	e := nuevoEntorno()

	_, err := e.svc.CrearPedidoTransferencia(context.Background(), "cli-1", "", "")
	assert.ErrorIs(t, err, domain.ErrCarritoVacio)
	assert.Empty(t, e.cola.intentos)
}

func TestVistaVendedorParticion(t *testing.T) {
	e := nuevoEntorno()
	estados := []domain.EstadoPedido{
		domain.EstadoPendiente,
		domain.EstadoAceptado,
		domain.EstadoEnPreparacion,
		domain.EstadoPreparado,
		domain.EstadoRechazado,
		domain.EstadoEntregado,
	}
	for i, estado := range estados {
		id := fmt.Sprintf("p%d", i)
		e.pedidos.docs[id] = &domain.Pedido{
			ID:           id,
			OrdenCompra:  fmt.Sprintf("OC%d", i),
			UsuarioID:    "cli-1",
			EstadoPedido: estado,
			EstadoPago:   domain.PagoPendiente,
		}
	}

	vista, err := e.svc.VistaVendedor(context.Background())
	require.NoError(t, err)

	assert.Len(t, vista.Pendientes, 1)
	assert.Len(t, vista.Aceptados, 2, "aceptado y en_preparacion comparten grupo")
	assert.Len(t, vista.Preparados, 1)
	assert.Len(t, vista.Rechazados, 1)

	// Partición: cada pedido vivo aparece exactamente una vez y el entregado
	// no aparece.
	vistos := make(map[string]int)
	for _, grupo := range [][]*domain.Pedido{vista.Pendientes, vista.Aceptados, vista.Preparados, vista.Rechazados} {
		for _, p := range grupo {
			vistos[p.ID]++
		}
	}
	assert.Len(t, vistos, 5)
	for id, n := range vistos {
		assert.Equal(t, 1, n, "pedido %s duplicado entre grupos", id)
	}
	assert.NotContains(t, vistos, "p5")
}

func TestAceptarPedido(t *testing.T) {
	e := nuevoEntorno()
	e.pedidos.docs["p1"] = &domain.Pedido{
		ID:           "p1",
		OrdenCompra:  "OC1",
		UsuarioID:    "cli-1",
		EstadoPedido: domain.EstadoPendiente,
		EstadoPago:   domain.PagoPendiente,
	}

	p, err := e.svc.AceptarPedido(context.Background(), "p1", "ven-1")
	require.NoError(t, err)

	assert.Equal(t, domain.EstadoAceptado, p.EstadoPedido)
	assert.Equal(t, "ven-1", p.VendedorID)
	assert.Equal(t, "bod-1", p.BodegueroID)

	guardado, _ := e.pedidos.Get(context.Background(), "p1")
	assert.Equal(t, domain.EstadoAceptado, guardado.EstadoPedido)
	assert.Equal(t, "bod-1", guardado.BodegueroID)

	require.Len(t, e.cola.porTipo(outbox.TipoNotificarCliente), 1)
	bodeguero := e.cola.porTipo(outbox.TipoNotificarBodeguero)
	require.Len(t, bodeguero, 1)
	assert.Equal(t, "bod-1", bodeguero[0].payload["usuarioId"])

	// Aceptar dos veces choca con la tabla de transiciones.
	_, err = e.svc.AceptarPedido(context.Background(), "p1", "ven-1")
	assert.ErrorIs(t, err, domain.ErrTransicionInvalida)
}

func TestRechazarPedidoPagadoWebpay(t *testing.T) {
	e := nuevoEntorno()
	e.pedidos.docs["p1"] = &domain.Pedido{
		ID:           "p1",
		OrdenCompra:  "OC1",
		UsuarioID:    "cli-1",
		EstadoPedido: domain.EstadoAceptado,
		EstadoPago:   domain.PagoPagado,
		MetodoPago:   domain.MetodoPagoWebpay,
		MontoTotal:   45980,
		Productos: []domain.ItemPedido{
			{ProductoID: "prod-1", Precio: 45980, Cantidad: 1},
		},
	}

	p, err := e.svc.RechazarPedido(context.Background(), "p1", "ven-1", "sin stock")
	require.NoError(t, err)
	assert.Equal(t, domain.EstadoRechazado, p.EstadoPedido)
	assert.Equal(t, "sin stock", p.MotivoRechazo)

	reembolsos := e.cola.porTipo(outbox.TipoReembolso)
	require.Len(t, reembolsos, 1)
	assert.Equal(t, "OC1", reembolsos[0].payload["ordenCompra"])
	assert.Equal(t, int64(45980), reembolsos[0].payload["monto"])

	require.Len(t, e.cola.porTipo(outbox.TipoReponerStock), 1)
	require.Len(t, e.cola.porTipo(outbox.TipoNotificarCliente), 1)
}

func TestMarcarEntregado(t *testing.T) {
	e := nuevoEntorno()
	e.pedidos.docs["p1"] = &domain.Pedido{
		ID:           "p1",
		OrdenCompra:  "OC1",
		UsuarioID:    "cli-1",
		EstadoPedido: domain.EstadoPreparado,
		EstadoPago:   domain.PagoPagado,
		Productos: []domain.ItemPedido{
			{ProductoID: "prod-1", Precio: 500, Cantidad: 2},
		},
	}

	p, err := e.svc.MarcarEntregado(context.Background(), "p1", "ven-2")
	require.NoError(t, err)
	assert.Equal(t, domain.EstadoEntregado, p.EstadoPedido)
	assert.Equal(t, "ven-2", p.VendedorID, "queda registrado quién entregó")

	require.Len(t, e.catalogo.descuentos, 1)
	assert.Equal(t, "prod-1", e.catalogo.descuentos[0].ProductoID)
	assert.Equal(t, 2, e.catalogo.descuentos[0].Cantidad)
}

func TestConfirmarPagoTransferencia(t *testing.T) {
	e := nuevoEntorno()
	e.pedidos.docs["p1"] = &domain.Pedido{
		ID:           "p1",
		OrdenCompra:  "OC1",
		UsuarioID:    "cli-1",
		EstadoPedido: domain.EstadoPendiente,
		EstadoPago:   domain.PagoPendiente,
		MetodoPago:   domain.MetodoPagoTransferencia,
		Productos: []domain.ItemPedido{
			{ProductoID: "prod-1", Precio: 500, Cantidad: 2},
		},
	}

	p, err := e.svc.ConfirmarPagoTransferencia(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, domain.PagoPagado, p.EstadoPago)
	assert.Equal(t, int64(1000), p.MontoTotal, "montoTotal ausente se rellena")
	assert.True(t, p.VerificadoPorContador)

	guardado, _ := e.pedidos.Get(context.Background(), "p1")
	assert.Equal(t, domain.PagoPagado, guardado.EstadoPago)
	assert.Equal(t, int64(1000), guardado.MontoTotal)
	assert.True(t, guardado.VerificadoPorContador)

	require.Len(t, e.cola.porTipo(outbox.TipoNotificarVendedor), 1)
	require.Len(t, e.cola.porTipo(outbox.TipoNotificarCliente), 1)
}

func TestConfirmarPagoTransferenciaRespetaMontoExistente(t *testing.T) {
	e := nuevoEntorno()
	e.pedidos.docs["p1"] = &domain.Pedido{
		ID:           "p1",
		OrdenCompra:  "OC1",
		UsuarioID:    "cli-1",
		EstadoPedido: domain.EstadoPendiente,
		EstadoPago:   domain.PagoPendiente,
		MetodoPago:   domain.MetodoPagoTransferencia,
		MontoTotal:   2500,
		Productos: []domain.ItemPedido{
			{ProductoID: "prod-1", Precio: 500, Cantidad: 2},
		},
	}

	p, err := e.svc.ConfirmarPagoTransferencia(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), p.MontoTotal, "un montoTotal ya persistido no se recalcula")
}
