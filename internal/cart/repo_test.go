package cart

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferremas-app/ferremas-backend/internal/catalog"
)

func setupRepo(t *testing.T) *Repo {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRepo(client)
}

func producto(id, nombre string, precio int64) catalog.Producto {
	return catalog.Producto{ID: id, Nombre: nombre, Precio: precio, Stock: 10}
}

func TestAgregarItemIncrementaCantidad(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	martillo := producto("p1", "Martillo", 5990)

	require.NoError(t, repo.AgregarItem(ctx, "uid-1", martillo))
	require.NoError(t, repo.AgregarItem(ctx, "uid-1", martillo))

	items, err := repo.Items(ctx, "uid-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Cantidad)
	assert.Equal(t, int64(11980), items[0].Subtotal())
}

func TestQuitarItem(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	martillo := producto("p1", "Martillo", 5990)

	require.NoError(t, repo.AgregarItem(ctx, "uid-1", martillo))
	require.NoError(t, repo.AgregarItem(ctx, "uid-1", martillo))

	t.Run("decrementa cuando hay más de uno", func(t *testing.T) {
		require.NoError(t, repo.QuitarItem(ctx, "uid-1", "p1"))
		items, err := repo.Items(ctx, "uid-1")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, 1, items[0].Cantidad)
	})

	t.Run("elimina la línea en uno", func(t *testing.T) {
		require.NoError(t, repo.QuitarItem(ctx, "uid-1", "p1"))
		items, err := repo.Items(ctx, "uid-1")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("quitar lo que no existe no falla", func(t *testing.T) {
		assert.NoError(t, repo.QuitarItem(ctx, "uid-1", "no-existe"))
	})
}

func TestItemsOrdenadosPorNombre(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AgregarItem(ctx, "uid-1", producto("p2", "Taladro", 39990)))
	require.NoError(t, repo.AgregarItem(ctx, "uid-1", producto("p1", "Alicate", 3490)))

	items, err := repo.Items(ctx, "uid-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Alicate", items[0].Producto.Nombre)
	assert.Equal(t, "Taladro", items[1].Producto.Nombre)
}

func TestTotalYVaciar(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AgregarItem(ctx, "uid-1", producto("p1", "Martillo", 5990)))
	require.NoError(t, repo.AgregarItem(ctx, "uid-1", producto("p2", "Taladro", 39990)))

	total, err := repo.Total(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(45980), total)

	require.NoError(t, repo.Vaciar(ctx, "uid-1"))
	total, err = repo.Total(ctx, "uid-1")
	require.NoError(t, err)
	assert.Zero(t, total)

	// idempotente
	assert.NoError(t, repo.Vaciar(ctx, "uid-1"))
}

func TestCarritosPorSesionSonIndependientes(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AgregarItem(ctx, "uid-1", producto("p1", "Martillo", 5990)))
	require.NoError(t, repo.AgregarItem(ctx, "uid-2", producto("p2", "Taladro", 39990)))

	items1, err := repo.Items(ctx, "uid-1")
	require.NoError(t, err)
	items2, err := repo.Items(ctx, "uid-2")
	require.NoError(t, err)

	require.Len(t, items1, 1)
	require.Len(t, items2, 1)
	assert.Equal(t, "p1", items1[0].Producto.ID)
	assert.Equal(t, "p2", items2[0].Producto.ID)
}

func TestReemplazar(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AgregarItem(ctx, "uid-1", producto("p1", "Martillo", 5990)))
	require.NoError(t, repo.Reemplazar(ctx, "uid-1", []Item{
		{Producto: producto("p3", "Sierra", 12990), Cantidad: 2},
	}))

	items, err := repo.Items(ctx, "uid-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p3", items[0].Producto.ID)
	assert.Equal(t, 2, items[0].Cantidad)
}

func TestRecuperacion(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.ObtenerRecuperacion(ctx, "uid-1")
	assert.ErrorIs(t, err, ErrSinRecuperacion)

	rec := Recuperacion{
		OrdenCompra: "OC17567000001abcde",
		Items:       []Item{{Producto: producto("p1", "Martillo", 5990), Cantidad: 1}},
		Retiro:      "despacho",
		Direccion:   "Av. Principal 123",
	}
	require.NoError(t, repo.GuardarRecuperacion(ctx, "uid-1", rec))

	leida, err := repo.ObtenerRecuperacion(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, rec.OrdenCompra, leida.OrdenCompra)
	assert.Equal(t, rec.Direccion, leida.Direccion)
	require.Len(t, leida.Items, 1)

	require.NoError(t, repo.LimpiarRecuperacion(ctx, "uid-1"))
	_, err = repo.ObtenerRecuperacion(ctx, "uid-1")
	assert.ErrorIs(t, err, ErrSinRecuperacion)

	// idempotente
	assert.NoError(t, repo.LimpiarRecuperacion(ctx, "uid-1"))
}
