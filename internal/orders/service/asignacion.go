package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/ferremas-app/ferremas-backend/internal/users"
)

const cursorAsignacionKey = "asignacion:bodegueros"

var ErrSinBodegueros = errors.New("no hay bodegueros registrados")

// AsignadorBodegueros reparte pedidos entre bodegueros en round-robin. El
// cursor vive en Redis para que varias réplicas del API compartan el turno.
type AsignadorBodegueros struct {
	client   *redis.Client
	usuarios *users.Repo
}

func NewAsignadorBodegueros(client *redis.Client, usuarios *users.Repo) *AsignadorBodegueros {
	return &AsignadorBodegueros{client: client, usuarios: usuarios}
}

// Siguiente returns the next bodeguero in turn. The roster is sorted by UID
// so every replica walks it in the same order.
func (a *AsignadorBodegueros) Siguiente(ctx context.Context) (*users.Usuario, error) {
	bodegueros, err := a.usuarios.ListarPorRol(ctx, users.RolBodeguero)
	if err != nil {
		return nil, fmt.Errorf("listando bodegueros: %w", err)
	}
	if len(bodegueros) == 0 {
		return nil, ErrSinBodegueros
	}
	sort.Slice(bodegueros, func(i, j int) bool {
		return bodegueros[i].UID < bodegueros[j].UID
	})

	turno, err := a.client.Incr(ctx, cursorAsignacionKey).Result()
	if err != nil {
		// Sin cursor no hay turno: se asigna al primero antes que dejar el
		// pedido sin bodeguero.
		return bodegueros[0], nil
	}
	return bodegueros[int((turno-1)%int64(len(bodegueros)))], nil
}
