package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ferremas-app/ferremas-backend/internal/cart"
	"github.com/ferremas-app/ferremas-backend/internal/catalog"
	"github.com/ferremas-app/ferremas-backend/internal/notifications"
	"github.com/ferremas-app/ferremas-backend/internal/orders/domain"
	"github.com/ferremas-app/ferremas-backend/internal/outbox"
	"github.com/ferremas-app/ferremas-backend/internal/users"
)

var ErrPedidoAjeno = errors.New("el pedido está asignado a otro bodeguero")

// Pedidos is the persistence surface of the workflow. *repository.Repo
// implements it; tests substitute an in-memory store.
type Pedidos interface {
	Crear(ctx context.Context, p *domain.Pedido) (string, error)
	Get(ctx context.Context, id string) (*domain.Pedido, error)
	GetPorOrdenCompra(ctx context.Context, ordenCompra string) (*domain.Pedido, error)
	ListarPorUsuario(ctx context.Context, uid string) ([]*domain.Pedido, error)
	ListarPorEstado(ctx context.Context, estados ...domain.EstadoPedido) ([]*domain.Pedido, error)
	ListarPorBodeguero(ctx context.Context, bodegueroID string, estados ...domain.EstadoPedido) ([]*domain.Pedido, error)
	ListarPagosPendientes(ctx context.Context) ([]*domain.Pedido, error)
	ListarHistorial(ctx context.Context, uid string) ([]*domain.Pedido, error)
	Actualizar(ctx context.Context, id string, campos map[string]interface{}) error
	ArchivarDetalle(ctx context.Context, p *domain.Pedido) error
}

// Inventario descuenta stock al entregar.
type Inventario interface {
	DescontarStock(ctx context.Context, items []catalog.ItemDescuento) error
}

// Carrito is the session cart the checkout consumes.
type Carrito interface {
	Items(ctx context.Context, uid string) ([]cart.Item, error)
	Vaciar(ctx context.Context, uid string) error
}

// Cola recibe los intentos de efectos externos.
type Cola interface {
	Encolar(ctx context.Context, tipo string, payload map[string]interface{}) (string, error)
}

// Notificador persists in-app notification documents.
type Notificador interface {
	Crear(ctx context.Context, coleccion string, n *notifications.Notificacion) (string, error)
}

// Asignador elige el bodeguero de turno.
type Asignador interface {
	Siguiente(ctx context.Context) (*users.Usuario, error)
}

// Service coordina el ciclo de vida de los pedidos. Las mutaciones de
// estado pasan por las tablas de transición del dominio; los efectos hacia
// afuera (push, reembolsos, reposición de stock) se encolan como intentos y
// los resuelve el procesador de la cola.
type Service struct {
	pedidos   Pedidos
	catalogo  Inventario
	carrito   Carrito
	cola      Cola
	notifs    Notificador
	asignador Asignador
	logger    *zap.Logger
}

func New(pedidos Pedidos, catalogo Inventario, carrito Carrito, cola Cola, notifs Notificador, asignador Asignador, logger *zap.Logger) *Service {
	return &Service{
		pedidos:   pedidos,
		catalogo:  catalogo,
		carrito:   carrito,
		cola:      cola,
		notifs:    notifs,
		asignador: asignador,
		logger:    logger,
	}
}

// CrearPedidoTransferencia turns the session cart into a pedido that pays by
// bank transfer. The pago stays pendiente until the contador verifies it.
func (s *Service) CrearPedidoTransferencia(ctx context.Context, uid, retiro, direccion string) (*domain.Pedido, error) {
	items, err := s.carrito.Items(ctx, uid)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrCarritoVacio
	}

	p := s.nuevoPedido(uid, items, domain.MetodoPagoTransferencia, retiro, direccion)
	if _, err := s.pedidos.Crear(ctx, p); err != nil {
		return nil, err
	}
	if err := s.carrito.Vaciar(ctx, uid); err != nil {
		s.logger.Warn("no se pudo vaciar el carrito tras el checkout",
			zap.String("uid", uid), zap.Error(err))
	}

	s.notificarContador(ctx, p.OrdenCompra)
	s.encolarPushVendedores(ctx, p.OrdenCompra,
		"Nuevo pedido",
		fmt.Sprintf("Pedido %s por transferencia, esperando aceptación", p.OrdenCompra))
	return p, nil
}

// ConfirmarPedidoWebpay materializes the pedido of an authorized Webpay
// checkout from its recovery snapshot. The pago nace pagado.
func (s *Service) ConfirmarPedidoWebpay(ctx context.Context, uid string, rec *cart.Recuperacion, monto int64) (*domain.Pedido, error) {
	if len(rec.Items) == 0 {
		return nil, domain.ErrCarritoVacio
	}

	p := s.nuevoPedido(uid, rec.Items, domain.MetodoPagoWebpay, rec.Retiro, rec.Direccion)
	p.OrdenCompra = rec.OrdenCompra
	p.EstadoPago = domain.PagoPagado
	p.MontoTotal = monto
	if _, err := s.pedidos.Crear(ctx, p); err != nil {
		return nil, err
	}

	s.encolarPushVendedores(ctx, p.OrdenCompra,
		"Nuevo pedido pagado",
		fmt.Sprintf("Pedido %s pagado con Webpay, esperando aceptación", p.OrdenCompra))
	return p, nil
}

// AceptarPedido is the vendedor taking the pedido and handing it to the next
// bodeguero in turn.
func (s *Service) AceptarPedido(ctx context.Context, id, vendedorUID string) (*domain.Pedido, error) {
	p, err := s.pedidos.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Transicionar(domain.EstadoAceptado); err != nil {
		return nil, err
	}

	bodeguero, err := s.asignador.Siguiente(ctx)
	if err != nil {
		return nil, err
	}
	p.VendedorID = vendedorUID
	p.BodegueroID = bodeguero.UID

	if err := s.pedidos.Actualizar(ctx, id, map[string]interface{}{
		"estadoPedido": string(domain.EstadoAceptado),
		"vendedorId":   vendedorUID,
		"bodegueroId":  bodeguero.UID,
	}); err != nil {
		return nil, err
	}

	s.encolarPushUsuario(ctx, p.UsuarioID, notifications.CanalCliente, notifications.ColCliente,
		p.OrdenCompra, "Pedido aceptado",
		fmt.Sprintf("Tu pedido %s fue aceptado y pasó a bodega", p.OrdenCompra))
	s.encolarPushUsuario(ctx, bodeguero.UID, notifications.CanalBodeguero, notifications.ColVendedor,
		p.OrdenCompra, "Pedido asignado",
		fmt.Sprintf("Tienes el pedido %s para preparar", p.OrdenCompra))
	return p, nil
}

// RechazarPedido cancels a pedido. If it was already paid through Webpay the
// refund and the stock restock run as queued intents, so a gateway outage
// cannot leave the client charged without trace.
func (s *Service) RechazarPedido(ctx context.Context, id, vendedorUID, motivo string) (*domain.Pedido, error) {
	p, err := s.pedidos.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	yaPagadoWebpay := p.EstadoPago == domain.PagoPagado && p.MetodoPago == domain.MetodoPagoWebpay
	yaAceptado := p.EstadoPedido != domain.EstadoPendiente

	if err := p.Transicionar(domain.EstadoRechazado); err != nil {
		return nil, err
	}
	p.VendedorID = vendedorUID
	p.MotivoRechazo = motivo

	if err := s.pedidos.Actualizar(ctx, id, map[string]interface{}{
		"estadoPedido":  string(domain.EstadoRechazado),
		"vendedorId":    vendedorUID,
		"motivoRechazo": motivo,
	}); err != nil {
		return nil, err
	}

	if yaPagadoWebpay {
		s.encolar(ctx, outbox.TipoReembolso, map[string]interface{}{
			"ordenCompra": p.OrdenCompra,
			"monto":       p.Total(),
		})
	}
	if yaAceptado {
		// La preparación puede haber separado unidades del piso de venta.
		s.encolar(ctx, outbox.TipoReponerStock, map[string]interface{}{
			"items": itemsPayload(p.Productos),
		})
	}

	cuerpo := fmt.Sprintf("Tu pedido %s fue rechazado", p.OrdenCompra)
	if motivo != "" {
		cuerpo = fmt.Sprintf("Tu pedido %s fue rechazado: %s", p.OrdenCompra, motivo)
	}
	s.encolarPushUsuario(ctx, p.UsuarioID, notifications.CanalCliente, notifications.ColCliente,
		p.OrdenCompra, "Pedido rechazado", cuerpo)
	return p, nil
}

// IniciarPreparacion moves an assigned pedido into en_preparacion. Only the
// bodeguero it was assigned to can take it.
func (s *Service) IniciarPreparacion(ctx context.Context, id, bodegueroUID string) (*domain.Pedido, error) {
	p, err := s.pedidos.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.BodegueroID != bodegueroUID {
		return nil, ErrPedidoAjeno
	}
	if err := p.Transicionar(domain.EstadoEnPreparacion); err != nil {
		return nil, err
	}
	if err := s.pedidos.Actualizar(ctx, id, map[string]interface{}{
		"estadoPedido": string(domain.EstadoEnPreparacion),
	}); err != nil {
		return nil, err
	}
	return p, nil
}

// MarcarPreparado closes the bodega stage and tells the vendedor the pedido
// is ready for handover.
func (s *Service) MarcarPreparado(ctx context.Context, id, bodegueroUID, notas string) (*domain.Pedido, error) {
	p, err := s.pedidos.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.BodegueroID != bodegueroUID {
		return nil, ErrPedidoAjeno
	}
	if err := p.Transicionar(domain.EstadoPreparado); err != nil {
		return nil, err
	}

	ahora := time.Now()
	p.NotasPreparacion = notas
	p.FechaPreparacion = &ahora
	if err := s.pedidos.Actualizar(ctx, id, map[string]interface{}{
		"estadoPedido":     string(domain.EstadoPreparado),
		"notasPreparacion": notas,
		"fechaPreparacion": ahora,
	}); err != nil {
		return nil, err
	}

	s.encolarPushVendedores(ctx, p.OrdenCompra,
		"Pedido preparado",
		fmt.Sprintf("El pedido %s está listo para entrega", p.OrdenCompra))
	s.encolarPushUsuario(ctx, p.UsuarioID, notifications.CanalCliente, notifications.ColCliente,
		p.OrdenCompra, "Pedido listo",
		fmt.Sprintf("Tu pedido %s ya está preparado", p.OrdenCompra))
	return p, nil
}

// MarcarEntregado es el cierre del pedido: descuenta stock, lo archiva en el
// historial y avisa al cliente.
func (s *Service) MarcarEntregado(ctx context.Context, id, vendedorUID string) (*domain.Pedido, error) {
	p, err := s.pedidos.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Transicionar(domain.EstadoEntregado); err != nil {
		return nil, err
	}
	p.VendedorID = vendedorUID
	if err := s.pedidos.Actualizar(ctx, id, map[string]interface{}{
		"estadoPedido": string(domain.EstadoEntregado),
		"vendedorId":   vendedorUID,
	}); err != nil {
		return nil, err
	}

	if err := s.catalogo.DescontarStock(ctx, itemsDescuento(p.Productos)); err != nil {
		s.logger.Error("descuento de stock fallido tras entrega",
			zap.String("ordenCompra", p.OrdenCompra), zap.Error(err))
	}
	if err := s.pedidos.ArchivarDetalle(ctx, p); err != nil {
		s.logger.Error("no se pudo archivar el detalle del pedido",
			zap.String("ordenCompra", p.OrdenCompra), zap.Error(err))
	}

	s.encolarPushUsuario(ctx, p.UsuarioID, notifications.CanalCliente, notifications.ColCliente,
		p.OrdenCompra, "Pedido entregado",
		fmt.Sprintf("Tu pedido %s fue entregado. ¡Gracias por tu compra!", p.OrdenCompra))
	return p, nil
}

// ConfirmarPagoTransferencia is the contador verifying the bank transfer.
// montoTotal gets back-filled here because old clients never wrote it.
func (s *Service) ConfirmarPagoTransferencia(ctx context.Context, id string) (*domain.Pedido, error) {
	p, err := s.pedidos.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.TransicionarPago(domain.PagoPagado); err != nil {
		return nil, err
	}
	if p.MontoTotal == 0 {
		p.MontoTotal = p.CalcularMontoTotal()
	}
	p.VerificadoPorContador = true

	if err := s.pedidos.Actualizar(ctx, id, map[string]interface{}{
		"estadoPago":            string(domain.PagoPagado),
		"montoTotal":            p.MontoTotal,
		"verificadoPorContador": true,
	}); err != nil {
		return nil, err
	}

	s.encolarPushUsuario(ctx, p.UsuarioID, notifications.CanalCliente, notifications.ColCliente,
		p.OrdenCompra, "Pago confirmado",
		fmt.Sprintf("El pago de tu pedido %s fue verificado", p.OrdenCompra))
	s.encolarPushVendedores(ctx, p.OrdenCompra,
		"Pago verificado",
		fmt.Sprintf("El contador confirmó el pago del pedido %s", p.OrdenCompra))
	return p, nil
}

// RechazarPagoTransferencia marks the transfer as not received.
func (s *Service) RechazarPagoTransferencia(ctx context.Context, id, motivo string) (*domain.Pedido, error) {
	p, err := s.pedidos.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.TransicionarPago(domain.PagoRechazado); err != nil {
		return nil, err
	}
	p.VerificadoPorContador = true

	campos := map[string]interface{}{
		"estadoPago":            string(domain.PagoRechazado),
		"verificadoPorContador": true,
	}
	if motivo != "" {
		p.MotivoRechazo = motivo
		campos["motivoRechazo"] = motivo
	}
	if err := s.pedidos.Actualizar(ctx, id, campos); err != nil {
		return nil, err
	}

	s.encolarPushUsuario(ctx, p.UsuarioID, notifications.CanalCliente, notifications.ColCliente,
		p.OrdenCompra, "Pago rechazado",
		fmt.Sprintf("No pudimos verificar el pago de tu pedido %s", p.OrdenCompra))
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Pedido, error) {
	return s.pedidos.Get(ctx, id)
}

func (s *Service) PedidoPorOrdenCompra(ctx context.Context, ordenCompra string) (*domain.Pedido, error) {
	return s.pedidos.GetPorOrdenCompra(ctx, ordenCompra)
}

// PedidosDeCliente returns the client's live pedidos, newest first.
func (s *Service) PedidosDeCliente(ctx context.Context, uid string) ([]*domain.Pedido, error) {
	return s.pedidos.ListarPorUsuario(ctx, uid)
}

// HistorialDeCliente returns the delivered orders archived in the history
// collection.
func (s *Service) HistorialDeCliente(ctx context.Context, uid string) ([]*domain.Pedido, error) {
	return s.pedidos.ListarHistorial(ctx, uid)
}

// VendedorPedidos agrupa los pedidos vivos como los muestra la app del
// vendedor. Los grupos son una partición: cada pedido cae en exactamente
// uno, y aceptados incluye los que ya están en preparación.
type VendedorPedidos struct {
	Pendientes []*domain.Pedido `json:"pendientes"`
	Aceptados  []*domain.Pedido `json:"aceptados"`
	Preparados []*domain.Pedido `json:"preparados"`
	Rechazados []*domain.Pedido `json:"rechazados"`
}

func (s *Service) VistaVendedor(ctx context.Context) (*VendedorPedidos, error) {
	pedidos, err := s.pedidos.ListarPorEstado(ctx,
		domain.EstadoPendiente, domain.EstadoAceptado, domain.EstadoEnPreparacion,
		domain.EstadoPreparado, domain.EstadoRechazado)
	if err != nil {
		return nil, err
	}

	vista := &VendedorPedidos{
		Pendientes: []*domain.Pedido{},
		Aceptados:  []*domain.Pedido{},
		Preparados: []*domain.Pedido{},
		Rechazados: []*domain.Pedido{},
	}
	for _, p := range pedidos {
		switch p.EstadoPedido {
		case domain.EstadoPendiente:
			vista.Pendientes = append(vista.Pendientes, p)
		case domain.EstadoAceptado, domain.EstadoEnPreparacion:
			vista.Aceptados = append(vista.Aceptados, p)
		case domain.EstadoPreparado:
			vista.Preparados = append(vista.Preparados, p)
		case domain.EstadoRechazado:
			vista.Rechazados = append(vista.Rechazados, p)
		}
	}
	return vista, nil
}

// VistaBodeguero son los pedidos asignados a un bodeguero que aún no salen
// de bodega.
func (s *Service) VistaBodeguero(ctx context.Context, bodegueroUID string) ([]*domain.Pedido, error) {
	return s.pedidos.ListarPorBodeguero(ctx, bodegueroUID,
		domain.EstadoAceptado, domain.EstadoEnPreparacion)
}

// VistaContador son las transferencias con pago sin verificar.
func (s *Service) VistaContador(ctx context.Context) ([]*domain.Pedido, error) {
	return s.pedidos.ListarPagosPendientes(ctx)
}

func (s *Service) nuevoPedido(uid string, items []cart.Item, metodoPago, retiro, direccion string) *domain.Pedido {
	if retiro == "" {
		retiro = domain.MetodoRetiroTienda
	}
	productos := make([]domain.ItemPedido, 0, len(items))
	for _, item := range items {
		productos = append(productos, domain.ItemPedido{
			ProductoID: item.Producto.ID,
			Nombre:     item.Producto.Nombre,
			Precio:     item.Producto.Precio,
			Cantidad:   item.Cantidad,
		})
	}
	p := &domain.Pedido{
		OrdenCompra:   domain.NuevaOrdenCompra(),
		UsuarioID:     uid,
		Productos:     productos,
		MetodoPago:    metodoPago,
		MetodoRetiro:  retiro,
		Direccion:     direccion,
		EstadoPedido:  domain.EstadoPendiente,
		EstadoPago:    domain.PagoPendiente,
		FechaCreacion: time.Now(),
	}
	p.MontoTotal = p.CalcularMontoTotal()
	return p
}

// notificarContador deja constancia del pago por verificar: el documento se
// escribe junto al pedido y el push hacia los contadores viaja por la cola.
func (s *Service) notificarContador(ctx context.Context, ordenCompra string) {
	titulo := "Pago por verificar"
	cuerpo := fmt.Sprintf("El pedido %s espera verificación de la transferencia", ordenCompra)

	if _, err := s.notifs.Crear(ctx, notifications.ColContador, &notifications.Notificacion{
		Titulo:      titulo,
		Mensaje:     cuerpo,
		OrdenCompra: ordenCompra,
	}); err != nil {
		s.logger.Error("no se pudo registrar la notificación del contador",
			zap.String("ordenCompra", ordenCompra), zap.Error(err))
	}
	s.encolar(ctx, outbox.TipoNotificarContador, map[string]interface{}{
		"ordenCompra": ordenCompra,
		"titulo":      titulo,
		"cuerpo":      cuerpo,
	})
}

func (s *Service) encolarPushVendedores(ctx context.Context, ordenCompra, titulo, cuerpo string) {
	s.encolar(ctx, outbox.TipoNotificarVendedor, map[string]interface{}{
		"ordenCompra": ordenCompra,
		"titulo":      titulo,
		"cuerpo":      cuerpo,
	})
}

func (s *Service) encolarPushUsuario(ctx context.Context, uid, canal, coleccion, ordenCompra, titulo, cuerpo string) {
	tipo := outbox.TipoNotificarCliente
	if canal == notifications.CanalBodeguero {
		tipo = outbox.TipoNotificarBodeguero
	}
	s.encolar(ctx, tipo, map[string]interface{}{
		"usuarioId":   uid,
		"canal":       canal,
		"coleccion":   coleccion,
		"ordenCompra": ordenCompra,
		"titulo":      titulo,
		"cuerpo":      cuerpo,
	})
}

// encolar nunca tumba la operación principal: un intento que no se pudo
// escribir queda en el log para revisión manual.
func (s *Service) encolar(ctx context.Context, tipo string, payload map[string]interface{}) {
	if _, err := s.cola.Encolar(ctx, tipo, payload); err != nil {
		s.logger.Error("no se pudo encolar intento",
			zap.String("tipo", tipo), zap.Error(err))
	}
}

func itemsDescuento(productos []domain.ItemPedido) []catalog.ItemDescuento {
	items := make([]catalog.ItemDescuento, 0, len(productos))
	for _, it := range productos {
		cantidad := it.Cantidad
		if cantidad == 0 {
			cantidad = 1
		}
		items = append(items, catalog.ItemDescuento{ProductoID: it.ProductoID, Cantidad: cantidad})
	}
	return items
}

func itemsPayload(productos []domain.ItemPedido) []interface{} {
	items := make([]interface{}, 0, len(productos))
	for _, it := range productos {
		cantidad := it.Cantidad
		if cantidad == 0 {
			cantidad = 1
		}
		items = append(items, map[string]interface{}{
			"productoId": it.ProductoID,
			"cantidad":   cantidad,
		})
	}
	return items
}
