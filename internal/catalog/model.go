package catalog

import "errors"

var (
	ErrProductoNoEncontrado = errors.New("producto no encontrado")
	ErrSucursalNoEncontrada = errors.New("sucursal no encontrada")
)

// Producto mirrors the productos collection.
type Producto struct {
	ID     string `firestore:"-" json:"id"`
	Nombre string `firestore:"nombre" json:"nombre" validate:"required"`
	Imagen string `firestore:"imagen,omitempty" json:"imagen,omitempty"`
	Precio int64  `firestore:"precio" json:"precio" validate:"gte=0"`
	Stock  int    `firestore:"stock" json:"stock" validate:"gte=0"`
}

// Sucursal mirrors the sucursales collection.
type Sucursal struct {
	ID        string `firestore:"-" json:"id"`
	Nombre    string `firestore:"nombre" json:"nombre" validate:"required"`
	Direccion string `firestore:"direccion" json:"direccion" validate:"required"`
}

// ItemDescuento is one line of a stock decrement after delivery.
type ItemDescuento struct {
	ProductoID string
	Cantidad   int
}
