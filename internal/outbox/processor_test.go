package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// colaFake mimics the repo contract in memory: Fallar deja el intento en
// fallido (reclamable) hasta maxIntentos y entonces lo marca muerto.
type colaFake struct {
	pendientes  []*Intento
	completados []string
	fallados    []string
}

func (c *colaFake) Reclamar(ctx context.Context, batchSize int) ([]*Intento, error) {
	claimed := c.pendientes
	if len(claimed) > batchSize {
		claimed = claimed[:batchSize]
	}
	c.pendientes = c.pendientes[len(claimed):]
	for _, i := range claimed {
		i.Estado = EstadoProcesando
	}
	return claimed, nil
}

func (c *colaFake) Completar(ctx context.Context, id string) error {
	c.completados = append(c.completados, id)
	return nil
}

func (c *colaFake) Fallar(ctx context.Context, intento *Intento, causa string, maxIntentos int) error {
	c.fallados = append(c.fallados, intento.ID)
	intento.Intentos++
	intento.UltimoError = causa
	if intento.Intentos >= maxIntentos {
		intento.Estado = EstadoMuerto
		return nil
	}
	intento.Estado = EstadoFallido
	c.pendientes = append(c.pendientes, intento)
	return nil
}

func nuevoProcessor(cola Cola) *Processor {
	return NewProcessor(cola, zap.NewNop(), 0, 0, 3)
}

func TestProcessOnceCompletaIntentos(t *testing.T) {
	cola := &colaFake{pendientes: []*Intento{
		{ID: "i1", Tipo: TipoNotificarCliente, Payload: map[string]interface{}{"usuarioId": "u1"}},
	}}
	p := nuevoProcessor(cola)

	var recibido map[string]interface{}
	p.Registrar(TipoNotificarCliente, func(ctx context.Context, payload map[string]interface{}) error {
		recibido = payload
		return nil
	})

	p.ProcessOnce(context.Background())

	assert.Equal(t, []string{"i1"}, cola.completados)
	assert.Empty(t, cola.fallados)
	require.NotNil(t, recibido)
	assert.Equal(t, "u1", recibido["usuarioId"])
}

func TestProcessOnceReintentaHastaMuerto(t *testing.T) {
	intento := &Intento{ID: "i1", Tipo: TipoReembolso, Payload: map[string]interface{}{}}
	cola := &colaFake{pendientes: []*Intento{intento}}
	p := nuevoProcessor(cola)

	var muertos []*Intento
	p.OnMuerto = func(ctx context.Context, i *Intento) {
		muertos = append(muertos, i)
	}
	p.Registrar(TipoReembolso, func(ctx context.Context, payload map[string]interface{}) error {
		return errors.New("gateway caído")
	})

	// MaxIntentos = 3: dos reintentos y el tercero lo entierra.
	p.ProcessOnce(context.Background())
	p.ProcessOnce(context.Background())
	assert.Empty(t, muertos)
	assert.Equal(t, EstadoFallido, intento.Estado)

	p.ProcessOnce(context.Background())
	assert.Equal(t, EstadoMuerto, intento.Estado)
	assert.Equal(t, 3, intento.Intentos)
	assert.Equal(t, "gateway caído", intento.UltimoError)
	require.Len(t, muertos, 1)

	// Nada queda pendiente tras la muerte.
	p.ProcessOnce(context.Background())
	assert.Len(t, cola.fallados, 3)
	assert.Empty(t, cola.completados)
}

func TestProcessOnceTipoDesconocido(t *testing.T) {
	intento := &Intento{ID: "i1", Tipo: "tipo_que_no_existe"}
	cola := &colaFake{pendientes: []*Intento{intento}}
	p := nuevoProcessor(cola)

	var muerto bool
	p.OnMuerto = func(ctx context.Context, i *Intento) { muerto = true }

	p.ProcessOnce(context.Background())

	assert.True(t, muerto, "un tipo desconocido va directo al dead-letter")
	assert.Empty(t, cola.completados)
}

func TestProcessOnceRespetaBatchSize(t *testing.T) {
	cola := &colaFake{pendientes: []*Intento{
		{ID: "i1", Tipo: TipoNotificarCliente},
		{ID: "i2", Tipo: TipoNotificarCliente},
		{ID: "i3", Tipo: TipoNotificarCliente},
	}}
	p := NewProcessor(cola, zap.NewNop(), 0, 2, 3)
	p.Registrar(TipoNotificarCliente, func(ctx context.Context, payload map[string]interface{}) error {
		return nil
	})

	p.ProcessOnce(context.Background())
	assert.Len(t, cola.completados, 2)

	p.ProcessOnce(context.Background())
	assert.Len(t, cola.completados, 3)
}
