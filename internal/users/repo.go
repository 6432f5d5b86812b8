package users

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-playground/validator/v10"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	colUsuarios   = "usuarios"
	colTokensPush = "tokens_push"
)

type Repo struct {
	client   *firestore.Client
	validate *validator.Validate
}

func NewRepo(client *firestore.Client) *Repo {
	return &Repo{
		client:   client,
		validate: validator.New(),
	}
}

// Get loads a usuario document and validates its shape before anything
// downstream trusts it.
func (r *Repo) Get(ctx context.Context, uid string) (*Usuario, error) {
	snap, err := r.client.Collection(colUsuarios).Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrUsuarioNoEncontrado
	}
	if err != nil {
		return nil, fmt.Errorf("get usuario %s: %w", uid, err)
	}

	var u Usuario
	if err := snap.DataTo(&u); err != nil {
		return nil, fmt.Errorf("decode usuario %s: %w", uid, err)
	}
	u.UID = snap.Ref.ID

	if err := r.validate.Struct(&u); err != nil {
		return nil, fmt.Errorf("usuario %s inválido: %w", uid, err)
	}
	return &u, nil
}

// Crear writes the usuario document under its auth UID.
func (r *Repo) Crear(ctx context.Context, u *Usuario) error {
	if err := r.validate.Struct(u); err != nil {
		return fmt.Errorf("usuario inválido: %w", err)
	}
	if _, err := r.client.Collection(colUsuarios).Doc(u.UID).Set(ctx, u); err != nil {
		return fmt.Errorf("crear usuario %s: %w", u.UID, err)
	}
	return nil
}

// Actualizar replaces mutable profile fields.
func (r *Repo) Actualizar(ctx context.Context, uid string, nombre, rol string) error {
	if !RolValido(rol) {
		return ErrRolInvalido
	}
	_, err := r.client.Collection(colUsuarios).Doc(uid).Update(ctx, []firestore.Update{
		{Path: "nombreCompleto", Value: nombre},
		{Path: "rol", Value: rol},
	})
	if status.Code(err) == codes.NotFound {
		return ErrUsuarioNoEncontrado
	}
	if err != nil {
		return fmt.Errorf("actualizar usuario %s: %w", uid, err)
	}
	return nil
}

// Eliminar removes the usuario document.
func (r *Repo) Eliminar(ctx context.Context, uid string) error {
	if _, err := r.client.Collection(colUsuarios).Doc(uid).Delete(ctx); err != nil {
		return fmt.Errorf("eliminar usuario %s: %w", uid, err)
	}
	return nil
}

// Listar returns every usuario. The admin screen is the only caller.
func (r *Repo) Listar(ctx context.Context) ([]*Usuario, error) {
	return r.collect(ctx, r.client.Collection(colUsuarios).Query)
}

// ListarPorRol returns the usuarios carrying any of the given role tags.
func (r *Repo) ListarPorRol(ctx context.Context, roles ...string) ([]*Usuario, error) {
	q := r.client.Collection(colUsuarios).Where("rol", "in", roles)
	return r.collect(ctx, q)
}

func (r *Repo) collect(ctx context.Context, q firestore.Query) ([]*Usuario, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*Usuario
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listar usuarios: %w", err)
		}

		var u Usuario
		if err := snap.DataTo(&u); err != nil {
			// Malformed documents are skipped, not fatal: the store has no
			// schema and old clients wrote partial shapes.
			continue
		}
		u.UID = snap.Ref.ID
		if r.validate.Struct(&u) != nil {
			continue
		}
		out = append(out, &u)
	}
	return out, nil
}

// RegistrarTokenPush stores the device token on the usuario and appends a
// registration entry to tokens_push.
func (r *Repo) RegistrarTokenPush(ctx context.Context, uid, token, platform string) error {
	_, err := r.client.Collection(colUsuarios).Doc(uid).Update(ctx, []firestore.Update{
		{Path: "pushToken", Value: token},
	})
	if status.Code(err) == codes.NotFound {
		return ErrUsuarioNoEncontrado
	}
	if err != nil {
		return fmt.Errorf("registrar token push de %s: %w", uid, err)
	}

	_, _, err = r.client.Collection(colTokensPush).Add(ctx, &TokenPush{
		UsuarioID: uid,
		Token:     token,
		Platform:  platform,
		Fecha:     time.Now(),
	})
	if err != nil {
		return fmt.Errorf("guardar registro de token push: %w", err)
	}
	return nil
}
