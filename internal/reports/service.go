package reports

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ferremas-app/ferremas-backend/internal/orders/domain"
	"github.com/ferremas-app/ferremas-backend/internal/orders/repository"
)

// Service computes revenue stats for the contador and freezes them in
// monthly reports.
type Service struct {
	reportes *Repo
	pedidos  *repository.Repo
	logger   *zap.Logger
}

func NewService(reportes *Repo, pedidos *repository.Repo, logger *zap.Logger) *Service {
	return &Service{reportes: reportes, pedidos: pedidos, logger: logger}
}

// EstadisticasActuales aggregates over every delivered pedido on record.
func (s *Service) EstadisticasActuales(ctx context.Context) (Estadisticas, error) {
	pedidos, err := s.pedidos.ListarPorEstado(ctx, domain.EstadoEntregado)
	if err != nil {
		return Estadisticas{}, err
	}
	return CalcularEstadisticas(pedidos), nil
}

// GenerarReporte freezes the stats of the month containing referencia. Si el
// reporte del mes ya existe lo devuelve tal cual: los reportes no se
// regeneran.
func (s *Service) GenerarReporte(ctx context.Context, generadoPor string, referencia time.Time) (*Reporte, error) {
	mes := EtiquetaMes(referencia)
	if existente, err := s.reportes.GetPorMes(ctx, mes); err == nil {
		return existente, nil
	} else if !errors.Is(err, ErrReporteNoEncontrado) {
		return nil, err
	}

	desde, hasta := VentanaMes(referencia)
	pedidos, err := s.pedidos.ListarEntreFechas(ctx, desde, hasta)
	if err != nil {
		return nil, err
	}

	rep := &Reporte{
		Mes:          mes,
		Desde:        desde,
		Hasta:        hasta,
		Estadisticas: CalcularEstadisticas(entregados(pedidos)),
		GeneradoPor:  generadoPor,
	}
	if _, err := s.reportes.Crear(ctx, rep); err != nil {
		return nil, err
	}
	s.logger.Info("reporte financiero generado",
		zap.String("mes", mes),
		zap.Int64("totalIngresos", rep.Estadisticas.TotalIngresos))
	return rep, nil
}

// GenerarReporteMesAnterior is the cron entry point: on the 1st it closes
// the month that just ended.
func (s *Service) GenerarReporteMesAnterior(ctx context.Context) (*Reporte, error) {
	return s.GenerarReporte(ctx, "sistema", time.Now().AddDate(0, -1, 0))
}

func (s *Service) Listar(ctx context.Context) ([]*Reporte, error) {
	return s.reportes.Listar(ctx)
}

func entregados(pedidos []*domain.Pedido) []*domain.Pedido {
	out := pedidos[:0:0]
	for _, p := range pedidos {
		if p.EstadoPedido == domain.EstadoEntregado {
			out = append(out, p)
		}
	}
	return out
}
