package reports

import (
	"errors"
	"fmt"
	"time"

	"github.com/ferremas-app/ferremas-backend/internal/orders/domain"
)

var ErrReporteNoEncontrado = errors.New("reporte no encontrado")

// Estadisticas resume los ingresos de un conjunto de pedidos entregados.
type Estadisticas struct {
	TotalIngresos            int64 `firestore:"totalIngresos" json:"totalIngresos"`
	TotalPedidos             int   `firestore:"totalPedidos" json:"totalPedidos"`
	IngresosPorTransferencia int64 `firestore:"ingresosPorTransferencia" json:"ingresosPorTransferencia"`
	IngresosPorWebpay        int64 `firestore:"ingresosPorWebpay" json:"ingresosPorWebpay"`
}

// Reporte is a frozen monthly snapshot in reportesFinancieros. Reports are
// written once and never mutated.
type Reporte struct {
	ID            string       `firestore:"-" json:"id"`
	Mes           string       `firestore:"mes" json:"mes"`
	Desde         time.Time    `firestore:"desde" json:"desde"`
	Hasta         time.Time    `firestore:"hasta" json:"hasta"`
	Estadisticas  Estadisticas `firestore:"estadisticas" json:"estadisticas"`
	GeneradoPor   string       `firestore:"generadoPor" json:"generadoPor"`
	FechaCreacion time.Time    `firestore:"fechaCreacion" json:"fechaCreacion"`
}

// CalcularEstadisticas aggregates revenue over delivered pedidos. Every
// pedido in the list counts, whatever its estadoPago; montoTotal wins over
// the recomputed sum when both exist.
func CalcularEstadisticas(pedidos []*domain.Pedido) Estadisticas {
	var e Estadisticas
	for _, p := range pedidos {
		monto := p.Total()
		e.TotalIngresos += monto
		e.TotalPedidos++
		switch p.MetodoPago {
		case domain.MetodoPagoTransferencia:
			e.IngresosPorTransferencia += monto
		case domain.MetodoPagoWebpay:
			e.IngresosPorWebpay += monto
		}
	}
	return e
}

var meses = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// EtiquetaMes returns the Spanish label the mobile client shows, e.g.
// "Septiembre 2026".
func EtiquetaMes(t time.Time) string {
	return fmt.Sprintf("%s %d", meses[t.Month()-1], t.Year())
}

// VentanaMes returns the [desde, hasta) interval of the month containing t.
func VentanaMes(t time.Time) (time.Time, time.Time) {
	desde := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return desde, desde.AddDate(0, 1, 0)
}
