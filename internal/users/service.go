package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rootsreach/rootsreach-backend/pkg/db/models"
	"github.com/rootsreach/rootsreach-backend/pkg/enums"
	pkgerrors "github.com/rootsreach/rootsreach-backend/pkg/errors"
	"github.com/rootsreach/rootsreach-backend/pkg/logger"
)

// Service covers profile reads and edits plus the administrative role and
// activation changes.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input ProfileInput) (*UserDTO, error)
	PromoteRole(ctx context.Context, id uuid.UUID, role enums.Role) (*UserDTO, error)
	PromoteByEmail(ctx context.Context, email string, role enums.Role) (*UserDTO, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*UserDTO, error)
}

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.Role) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// sessionRevoker drops every live session of a user.
type sessionRevoker interface {
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     userStore
	sessions sessionRevoker
	logg     *logger.Logger
}

// ServiceParams bundles the dependencies of the users service. Sessions is optional.
type ServiceParams struct {
	Repo     userStore
	Sessions sessionRevoker
	Logger   *logger.Logger
}

// NewService builds the users service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: params.Repo, sessions: params.Sessions, logg: params.Logger}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, input ProfileInput) (*UserDTO, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty").
			WithDetails(map[string]string{"name": "required"})
	}
	user, err := s.repo.UpdateProfile(ctx, id, input.updates())
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(user), nil
}

func (s *service) PromoteRole(ctx context.Context, id uuid.UUID, role enums.Role) (*UserDTO, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").
			WithDetails(map[string]string{"role": "must be one of admin, artisan, distributor, buyer"})
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if user.Role == role {
		return FromModel(user), nil
	}
	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		return nil, mapLookupError(err)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"target_user_id": id.String(),
		"from_role":      user.Role.String(),
		"to_role":        role.String(),
	})
	s.logg.Info(logCtx, "users.role_changed")

	s.revokeSessions(logCtx, id)
	user.Role = role
	return FromModel(user), nil
}

func (s *service) PromoteByEmail(ctx context.Context, email string, role enums.Role) (*UserDTO, error) {
	if strings.TrimSpace(email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return s.PromoteRole(ctx, user.ID, role)
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*UserDTO, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, mapLookupError(err)
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"target_user_id": id.String(), "active": active})
	s.logg.Info(logCtx, "users.status_changed")
	if !active {
		s.revokeSessions(logCtx, id)
	}
	return FromModel(user), nil
}

// revokeSessions is best effort; the auth gate rejects stale roles and
// inactive users on its own.
func (s *service) revokeSessions(ctx context.Context, id uuid.UUID) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.RevokeAll(ctx, id); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "users.revoke_sessions_failed")
	}
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "user lookup failed")
}
