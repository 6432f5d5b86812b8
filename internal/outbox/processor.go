package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Cola is the claim/ack surface the processor drives. *Repo implements it;
// tests substitute an in-memory queue.
type Cola interface {
	Reclamar(ctx context.Context, batchSize int) ([]*Intento, error)
	Completar(ctx context.Context, id string) error
	Fallar(ctx context.Context, intento *Intento, causa string, maxIntentos int) error
}

// HandlerFunc executes one intent type.
type HandlerFunc func(ctx context.Context, payload map[string]interface{}) error

// Processor drains pending intents on an interval, dispatching each to its
// registered handler with bounded attempts.
type Processor struct {
	cola        Cola
	handlers    map[string]HandlerFunc
	logger      *zap.Logger
	Interval    time.Duration
	BatchSize   int
	MaxIntentos int
	// OnMuerto runs when an intent exhausts its attempts (dead-letter hook).
	OnMuerto func(ctx context.Context, intento *Intento)
}

func NewProcessor(cola Cola, logger *zap.Logger, interval time.Duration, batchSize, maxIntentos int) *Processor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	if maxIntentos <= 0 {
		maxIntentos = 5
	}
	return &Processor{
		cola:        cola,
		handlers:    make(map[string]HandlerFunc),
		logger:      logger,
		Interval:    interval,
		BatchSize:   batchSize,
		MaxIntentos: maxIntentos,
	}
}

// Registrar binds a handler to an intent tipo.
func (p *Processor) Registrar(tipo string, h HandlerFunc) {
	p.handlers[tipo] = h
}

// Run loops until the context is cancelled.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		p.ProcessOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Interval):
		}
	}
}

// ProcessOnce claims one batch and dispatches it.
func (p *Processor) ProcessOnce(ctx context.Context) {
	intentos, err := p.cola.Reclamar(ctx, p.BatchSize)
	if err != nil {
		p.logger.Error("no se pudieron reclamar intentos", zap.Error(err))
		return
	}

	for _, intento := range intentos {
		p.dispatch(ctx, intento)
	}
}

func (p *Processor) dispatch(ctx context.Context, intento *Intento) {
	handler, ok := p.handlers[intento.Tipo]
	if !ok {
		// Unknown tipos burn straight to muerto; retrying cannot help.
		p.logger.Error("intento con tipo desconocido", zap.String("tipo", intento.Tipo))
		_ = p.cola.Fallar(ctx, intento, ErrTipoDesconocido.Error(), intento.Intentos+1)
		if p.OnMuerto != nil {
			p.OnMuerto(ctx, intento)
		}
		return
	}

	if err := handler(ctx, intento.Payload); err != nil {
		p.logger.Warn("intento falló",
			zap.String("id", intento.ID),
			zap.String("tipo", intento.Tipo),
			zap.Int("intentos", intento.Intentos+1),
			zap.Error(err))
		if ferr := p.cola.Fallar(ctx, intento, err.Error(), p.MaxIntentos); ferr != nil {
			p.logger.Error("no se pudo registrar el fallo del intento", zap.Error(ferr))
			return
		}
		if intento.Estado == EstadoMuerto && p.OnMuerto != nil {
			p.OnMuerto(ctx, intento)
		}
		return
	}

	if err := p.cola.Completar(ctx, intento.ID); err != nil {
		// The side effect ran but the ack failed; the intent will be
		// retried, so handlers must tolerate at-least-once delivery.
		p.logger.Error("no se pudo completar el intento", zap.String("id", intento.ID), zap.Error(err))
	}
}
