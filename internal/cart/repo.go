package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ferremas-app/ferremas-backend/internal/catalog"
)

const (
	cartKeyPrefix     = "carrito:"        // Hash per session: carrito:{uid} -> productoID => item JSON
	recoveryKeyPrefix = "webpay:recovery:" // Checkout snapshot persisted before the gateway redirect
	cartTTL           = 7 * 24 * time.Hour
)

var ErrSinRecuperacion = errors.New("no hay checkout pendiente de recuperar")

// Item is one cart line. Cantidad starts at 1 and grows when the same
// producto is added again.
type Item struct {
	Producto catalog.Producto `json:"producto"`
	Cantidad int              `json:"cantidad"`
}

// Subtotal returns precio × cantidad, with a missing cantidad read as 1.
func (i Item) Subtotal() int64 {
	cantidad := i.Cantidad
	if cantidad == 0 {
		cantidad = 1
	}
	return i.Producto.Precio * int64(cantidad)
}

// Recuperacion is the snapshot written before redirecting to Webpay so an
// interrupted checkout can be resumed or discarded on the next session.
type Recuperacion struct {
	OrdenCompra string `json:"ordenCompra"`
	Items       []Item `json:"items"`
	Retiro      string `json:"retiro"`
	Direccion   string `json:"direccion"`
}

// Repo keeps per-session cart state in Redis.
type Repo struct {
	client *redis.Client
}

func NewRepo(client *redis.Client) *Repo {
	return &Repo{client: client}
}

func (r *Repo) cartKey(uid string) string     { return cartKeyPrefix + uid }
func (r *Repo) recoveryKey(uid string) string { return recoveryKeyPrefix + uid }

// AgregarItem adds a producto, incrementing cantidad when it is already in
// the cart.
func (r *Repo) AgregarItem(ctx context.Context, uid string, producto catalog.Producto) error {
	key := r.cartKey(uid)

	raw, err := r.client.HGet(ctx, key, producto.ID).Result()
	item := Item{Producto: producto, Cantidad: 1}
	if err == nil {
		var existente Item
		if jsonErr := json.Unmarshal([]byte(raw), &existente); jsonErr == nil {
			if existente.Cantidad == 0 {
				existente.Cantidad = 1
			}
			item = existente
			item.Cantidad++
		}
	} else if err != redis.Nil {
		return fmt.Errorf("leer item del carrito: %w", err)
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("serializar item: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, producto.ID, data)
	pipe.Expire(ctx, key, cartTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("guardar item en carrito: %w", err)
	}
	return nil
}

// QuitarItem decrements cantidad, removing the line at 1.
func (r *Repo) QuitarItem(ctx context.Context, uid, productoID string) error {
	key := r.cartKey(uid)

	raw, err := r.client.HGet(ctx, key, productoID).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("leer item del carrito: %w", err)
	}

	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil || item.Cantidad <= 1 {
		if _, err := r.client.HDel(ctx, key, productoID).Result(); err != nil {
			return fmt.Errorf("quitar item del carrito: %w", err)
		}
		return nil
	}

	item.Cantidad--
	data, _ := json.Marshal(item)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, productoID, data)
	pipe.Expire(ctx, key, cartTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("actualizar item del carrito: %w", err)
	}
	return nil
}

// Items returns the cart lines ordered by nombre for stable display.
func (r *Repo) Items(ctx context.Context, uid string) ([]Item, error) {
	raw, err := r.client.HGetAll(ctx, r.cartKey(uid)).Result()
	if err != nil {
		return nil, fmt.Errorf("leer carrito: %w", err)
	}

	items := make([]Item, 0, len(raw))
	for _, v := range raw {
		var item Item
		if err := json.Unmarshal([]byte(v), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(a, b int) bool {
		return items[a].Producto.Nombre < items[b].Producto.Nombre
	})
	return items, nil
}

// Total sums precio × cantidad over the cart.
func (r *Repo) Total(ctx context.Context, uid string) (int64, error) {
	items, err := r.Items(ctx, uid)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total, nil
}

// Vaciar empties the cart. Safe to call repeatedly.
func (r *Repo) Vaciar(ctx context.Context, uid string) error {
	if _, err := r.client.Del(ctx, r.cartKey(uid)).Result(); err != nil {
		return fmt.Errorf("vaciar carrito: %w", err)
	}
	return nil
}

// Reemplazar swaps the full cart contents, used when a cancelled checkout is
// resumed.
func (r *Repo) Reemplazar(ctx context.Context, uid string, items []Item) error {
	key := r.cartKey(uid)

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	for _, item := range items {
		if item.Cantidad == 0 {
			item.Cantidad = 1
		}
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("serializar item: %w", err)
		}
		pipe.HSet(ctx, key, item.Producto.ID, data)
	}
	pipe.Expire(ctx, key, cartTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reemplazar carrito: %w", err)
	}
	return nil
}

// GuardarRecuperacion persists the pre-redirect checkout snapshot.
func (r *Repo) GuardarRecuperacion(ctx context.Context, uid string, rec Recuperacion) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("serializar recuperación: %w", err)
	}
	if err := r.client.Set(ctx, r.recoveryKey(uid), data, cartTTL).Err(); err != nil {
		return fmt.Errorf("guardar recuperación: %w", err)
	}
	return nil
}

// ObtenerRecuperacion reads the pending checkout snapshot, if any.
func (r *Repo) ObtenerRecuperacion(ctx context.Context, uid string) (*Recuperacion, error) {
	raw, err := r.client.Get(ctx, r.recoveryKey(uid)).Result()
	if err == redis.Nil {
		return nil, ErrSinRecuperacion
	}
	if err != nil {
		return nil, fmt.Errorf("leer recuperación: %w", err)
	}
	var rec Recuperacion
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decodificar recuperación: %w", err)
	}
	return &rec, nil
}

// LimpiarRecuperacion drops the snapshot. Idempotent.
func (r *Repo) LimpiarRecuperacion(ctx context.Context, uid string) error {
	if _, err := r.client.Del(ctx, r.recoveryKey(uid)).Result(); err != nil {
		return fmt.Errorf("limpiar recuperación: %w", err)
	}
	return nil
}
