package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ferremas-app/ferremas-backend/internal/outbox"
	"github.com/ferremas-app/ferremas-backend/internal/reports"
)

const lockTTL = 30 * time.Second

// Scheduler runs the recurring maintenance jobs: re-queueing intents whose
// worker died mid-flight and closing the monthly financial report.
type Scheduler struct {
	cron     *cron.Cron
	cola     *outbox.Repo
	reportes *reports.Service
	logger   *zap.Logger
}

func NewScheduler(cola *outbox.Repo, reportes *reports.Service, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		cola:     cola,
		reportes: reportes,
		logger:   logger,
	}
}

// Start initializes cron tasks
func (s *Scheduler) Start() {
	// Cada minuto: intentos en procesando cuyo lock venció vuelven a la cola.
	if _, err := s.cron.AddFunc("0 * * * * *", s.liberarEstancados); err != nil {
		s.logger.Error("no se pudo programar la liberación de intentos", zap.Error(err))
	}

	// El día 1 a las 00:05 se congela el reporte del mes que terminó.
	if _, err := s.cron.AddFunc("0 5 0 1 * *", s.cerrarMes); err != nil {
		s.logger.Error("no se pudo programar el reporte mensual", zap.Error(err))
	}

	s.logger.Info("scheduler iniciado")
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) liberarEstancados() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	liberados, err := s.cola.LiberarEstancados(ctx, lockTTL)
	if err != nil {
		s.logger.Error("liberación de intentos fallida", zap.Error(err))
		return
	}
	if liberados > 0 {
		s.logger.Info("intentos estancados re-encolados", zap.Int("cantidad", liberados))
	}
}

func (s *Scheduler) cerrarMes() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rep, err := s.reportes.GenerarReporteMesAnterior(ctx)
	if err != nil {
		s.logger.Error("cierre mensual fallido", zap.Error(err))
		return
	}
	s.logger.Info("reporte mensual generado", zap.String("mes", rep.Mes))
}
