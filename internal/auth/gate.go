package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/rootsreach/rootsreach-backend/pkg/auth"
	"github.com/rootsreach/rootsreach-backend/pkg/auth/session"
	"github.com/rootsreach/rootsreach-backend/pkg/config"
	"github.com/rootsreach/rootsreach-backend/pkg/db/models"
	"github.com/rootsreach/rootsreach-backend/pkg/enums"
	pkgerrors "github.com/rootsreach/rootsreach-backend/pkg/errors"
)

// Identity is the authenticated caller handed to downstream handlers.
type Identity struct {
	UserID  uuid.UUID
	Role    enums.Role
	TokenID string
}

type identityResolver interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Gate is the single authorization check applied to every protected request.
type Gate struct {
	jwtCfg   config.JWTConfig
	sessions session.AccessSessionChecker
	users    identityResolver
}

// NewGate builds a gate. A nil session checker skips the revocation lookup.
func NewGate(cfg config.JWTConfig, sessions session.AccessSessionChecker, users identityResolver) (*Gate, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user resolver is required")
	}
	return &Gate{jwtCfg: cfg, sessions: sessions, users: users}, nil
}

// Authenticate resolves a raw bearer token to a live identity.
func (g *Gate) Authenticate(ctx context.Context, rawToken string) (*Identity, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgAuth.ParseAccessToken(g.jwtCfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}

	if g.sessions != nil {
		live, err := g.sessions.HasSession(ctx, claims.TokenID())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "session lookup failed")
		}
		if !live {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session revoked")
		}
	}

	user, err := g.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account disabled")
	}
	if user.Role != claims.Role {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "role changed, sign in again")
	}

	return &Identity{UserID: user.ID, Role: user.Role, TokenID: claims.TokenID()}, nil
}

// Admit checks an authenticated identity against the required roles.
func Admit(identity *Identity, required enums.RoleSet) error {
	if identity == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	if !required.Admits(identity.Role) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient permissions")
	}
	return nil
}

// Authorize runs the full gate: authentication followed by the role check.
func (g *Gate) Authorize(ctx context.Context, rawToken string, required enums.RoleSet) (*Identity, error) {
	identity, err := g.Authenticate(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if err := Admit(identity, required); err != nil {
		return nil, err
	}
	return identity, nil
}
