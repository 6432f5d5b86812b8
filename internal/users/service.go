package users

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
)

// Service pairs the usuarios repository with the identity provider: account
// creation and deletion have to touch both.
type Service struct {
	repo   *Repo
	auth   *auth.Client
	logger *zap.Logger
}

func NewService(repo *Repo, authClient *auth.Client, logger *zap.Logger) *Service {
	return &Service{repo: repo, auth: authClient, logger: logger}
}

type RegistroRequest struct {
	NombreCompleto string `json:"nombreCompleto" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=6"`
	Rol            string `json:"rol" binding:"required"`
}

// Registrar creates the auth account and its usuario document. If the
// document write fails the auth account is removed again so the email is
// not burned.
func (s *Service) Registrar(ctx context.Context, req RegistroRequest) (*Usuario, error) {
	if !RolValido(req.Rol) {
		return nil, ErrRolInvalido
	}

	params := (&auth.UserToCreate{}).
		Email(req.Email).
		Password(req.Password).
		DisplayName(req.NombreCompleto)

	record, err := s.auth.CreateUser(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("crear cuenta: %w", err)
	}

	u := &Usuario{
		UID:            record.UID,
		NombreCompleto: req.NombreCompleto,
		Email:          req.Email,
		Rol:            req.Rol,
	}
	if err := s.repo.Crear(ctx, u); err != nil {
		if delErr := s.auth.DeleteUser(ctx, record.UID); delErr != nil {
			s.logger.Error("rollback de cuenta falló, cuenta huérfana",
				zap.String("uid", record.UID), zap.Error(delErr))
		}
		return nil, err
	}
	return u, nil
}

// Eliminar removes the usuario document and, best effort, the auth account.
func (s *Service) Eliminar(ctx context.Context, uid string) error {
	if err := s.repo.Eliminar(ctx, uid); err != nil {
		return err
	}
	if err := s.auth.DeleteUser(ctx, uid); err != nil {
		s.logger.Warn("no se pudo eliminar la cuenta de auth",
			zap.String("uid", uid), zap.Error(err))
	}
	return nil
}

func (s *Service) Get(ctx context.Context, uid string) (*Usuario, error) {
	return s.repo.Get(ctx, uid)
}

func (s *Service) Listar(ctx context.Context) ([]*Usuario, error) {
	return s.repo.Listar(ctx)
}

func (s *Service) Actualizar(ctx context.Context, uid, nombre, rol string) error {
	return s.repo.Actualizar(ctx, uid, nombre, rol)
}

func (s *Service) RegistrarTokenPush(ctx context.Context, uid, token, platform string) error {
	return s.repo.RegistrarTokenPush(ctx, uid, token, platform)
}
