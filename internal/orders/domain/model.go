package domain

import "time"

// EstadoPedido is the fulfillment stage of a pedido.
type EstadoPedido string

const (
	EstadoPendiente     EstadoPedido = "pendiente"
	EstadoAceptado      EstadoPedido = "aceptado"
	EstadoRechazado     EstadoPedido = "rechazado"
	EstadoEnPreparacion EstadoPedido = "en_preparacion"
	EstadoPreparado     EstadoPedido = "preparado"
	EstadoEntregado     EstadoPedido = "entregado"
)

// EstadoPago is the payment stage, independent of fulfillment.
type EstadoPago string

const (
	PagoPendiente   EstadoPago = "pendiente"
	PagoPagado      EstadoPago = "pagado"
	PagoRechazado   EstadoPago = "rechazado"
	PagoReembolsado EstadoPago = "reembolsado"
)

// Payment and delivery methods use the exact strings the mobile client
// stores, so existing documents keep working.
const (
	MetodoPagoTransferencia = "transferencia"
	MetodoPagoWebpay        = "webpay"

	MetodoRetiroTienda   = "retiro"
	MetodoRetiroDespacho = "despacho"
)

// ItemPedido is one product line inside a pedido. Cantidad may be zero on
// documents written by old clients; treat that as 1.
type ItemPedido struct {
	ProductoID string `firestore:"productoId" json:"productoId" validate:"required"`
	Nombre     string `firestore:"nombre" json:"nombre"`
	Precio     int64  `firestore:"precio" json:"precio" validate:"gte=0"`
	Cantidad   int    `firestore:"cantidad" json:"cantidad" validate:"gte=0"`
}

// Subtotal returns precio × cantidad, defaulting cantidad to 1.
func (i ItemPedido) Subtotal() int64 {
	cantidad := i.Cantidad
	if cantidad == 0 {
		cantidad = 1
	}
	return i.Precio * int64(cantidad)
}

// Pedido is a customer purchase request in the pedidosPendientes collection.
type Pedido struct {
	ID                    string       `firestore:"-" json:"id"`
	OrdenCompra           string       `firestore:"ordenCompra" json:"ordenCompra" validate:"required"`
	UsuarioID             string       `firestore:"usuarioId" json:"usuarioId" validate:"required"`
	VendedorID            string       `firestore:"vendedorId,omitempty" json:"vendedorId,omitempty"`
	BodegueroID           string       `firestore:"bodegueroId,omitempty" json:"bodegueroId,omitempty"`
	Productos             []ItemPedido `firestore:"productos" json:"productos" validate:"required,min=1,dive"`
	MetodoPago            string       `firestore:"metodoPago" json:"metodoPago" validate:"oneof=transferencia webpay"`
	MetodoRetiro          string       `firestore:"retiro" json:"retiro"`
	Direccion             string       `firestore:"direccion" json:"direccion"`
	EstadoPedido          EstadoPedido `firestore:"estadoPedido" json:"estadoPedido" validate:"required"`
	EstadoPago            EstadoPago   `firestore:"estadoPago" json:"estadoPago" validate:"required"`
	MontoTotal            int64        `firestore:"montoTotal,omitempty" json:"montoTotal,omitempty"`
	VerificadoPorContador bool         `firestore:"verificadoPorContador" json:"verificadoPorContador"`
	MotivoRechazo         string       `firestore:"motivoRechazo,omitempty" json:"motivoRechazo,omitempty"`
	NotasPreparacion      string       `firestore:"notasPreparacion,omitempty" json:"notasPreparacion,omitempty"`
	FechaCreacion         time.Time    `firestore:"fechaCreacion" json:"fechaCreacion"`
	FechaActualizacion    time.Time    `firestore:"fechaActualizacion,omitempty" json:"fechaActualizacion,omitempty"`
	FechaPreparacion      *time.Time   `firestore:"fechaPreparacion,omitempty" json:"fechaPreparacion,omitempty"`
}

// CalcularMontoTotal sums precio × cantidad over all items.
func (p *Pedido) CalcularMontoTotal() int64 {
	var total int64
	for _, item := range p.Productos {
		total += item.Subtotal()
	}
	return total
}

// Total returns the persisted montoTotal when present, otherwise the
// computed sum. The contador back-fills montoTotal on payment confirmation.
func (p *Pedido) Total() int64 {
	if p.MontoTotal > 0 {
		return p.MontoTotal
	}
	return p.CalcularMontoTotal()
}
