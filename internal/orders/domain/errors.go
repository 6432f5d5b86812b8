package domain

import "errors"

var (
	ErrPedidoNoEncontrado     = errors.New("pedido no encontrado")
	ErrTransicionInvalida     = errors.New("transición de estado de pedido inválida")
	ErrTransicionPagoInvalida = errors.New("transición de estado de pago inválida")
	ErrCarritoVacio           = errors.New("el carrito está vacío")
	ErrPedidoInvalido         = errors.New("documento de pedido inválido")
)
