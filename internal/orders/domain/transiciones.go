package domain

// The mobile client only hid buttons for moves that made no sense; nothing
// stopped two roles racing each other into an inconsistent pedido. The
// transition tables below are the single authority: every estado mutation
// goes through Transicionar or TransicionarPago and anything off the table
// is rejected.

var transicionesPedido = map[EstadoPedido][]EstadoPedido{
	EstadoPendiente:     {EstadoAceptado, EstadoRechazado},
	EstadoAceptado:      {EstadoEnPreparacion, EstadoRechazado},
	EstadoEnPreparacion: {EstadoPreparado},
	EstadoPreparado:     {EstadoEntregado},
	EstadoEntregado:     {},
	EstadoRechazado:     {},
}

var transicionesPago = map[EstadoPago][]EstadoPago{
	PagoPendiente:   {PagoPagado, PagoRechazado},
	PagoPagado:      {PagoReembolsado},
	PagoRechazado:   {},
	PagoReembolsado: {},
}

// PuedeTransicionar reports whether desde → hacia is a legal fulfillment move.
func PuedeTransicionar(desde, hacia EstadoPedido) bool {
	for _, permitido := range transicionesPedido[desde] {
		if permitido == hacia {
			return true
		}
	}
	return false
}

// PuedeTransicionarPago reports whether desde → hacia is a legal payment move.
func PuedeTransicionarPago(desde, hacia EstadoPago) bool {
	for _, permitido := range transicionesPago[desde] {
		if permitido == hacia {
			return true
		}
	}
	return false
}

// Transicionar moves the pedido to a new fulfillment estado or fails with
// ErrTransicionInvalida.
func (p *Pedido) Transicionar(hacia EstadoPedido) error {
	if !PuedeTransicionar(p.EstadoPedido, hacia) {
		return ErrTransicionInvalida
	}
	p.EstadoPedido = hacia
	return nil
}

// TransicionarPago moves the pedido to a new payment estado or fails with
// ErrTransicionPagoInvalida.
func (p *Pedido) TransicionarPago(hacia EstadoPago) error {
	if !PuedeTransicionarPago(p.EstadoPago, hacia) {
		return ErrTransicionPagoInvalida
	}
	p.EstadoPago = hacia
	return nil
}

// EstadosPedido lists every known fulfillment estado.
func EstadosPedido() []EstadoPedido {
	return []EstadoPedido{
		EstadoPendiente, EstadoAceptado, EstadoRechazado,
		EstadoEnPreparacion, EstadoPreparado, EstadoEntregado,
	}
}
