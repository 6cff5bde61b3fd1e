package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/rootsreach/rootsreach-backend/api/middleware"
	"github.com/rootsreach/rootsreach-backend/api/responses"
	"github.com/rootsreach/rootsreach-backend/api/validators"
	"github.com/rootsreach/rootsreach-backend/internal/users"
	"github.com/rootsreach/rootsreach-backend/pkg/enums"
	pkgerrors "github.com/rootsreach/rootsreach-backend/pkg/errors"
	"github.com/rootsreach/rootsreach-backend/pkg/logger"
)

type roleChangeRequest struct {
	Role string `json:"role" validate:"required"`
}

type statusChangeRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// noBody marks handlers that read nothing from the request body.
type noBody struct{}

type userTarget func(r *http.Request) (uuid.UUID, error)

// userHandler resolves the target user, decodes In unless it is noBody, and
// writes the profile act returns.
func userHandler[In any](svc users.Service, logg *logger.Logger, target userTarget, act func(ctx context.Context, id uuid.UUID, body In) (*users.UserDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}
		id, err := target(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body In
		if _, skip := any(body).(noBody); !skip {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}
		profile, err := act(ctx, id, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// callerID targets the authenticated caller.
func callerID(r *http.Request) (uuid.UUID, error) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return uuid.Nil, errMissingCredentials
	}
	return identity.UserID, nil
}

// pathUserID targets the {userId} route parameter.
func pathUserID(r *http.Request) (uuid.UUID, error) {
	return validators.ParseUUIDParam(r, "userId")
}

func UserProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return userHandler(svc, logg, callerID, func(ctx context.Context, id uuid.UUID, _ noBody) (*users.UserDTO, error) {
		return svc.Get(ctx, id)
	})
}

// UserUpdateProfile applies a partial edit to the caller's own profile.
func UserUpdateProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return userHandler(svc, logg, callerID, func(ctx context.Context, id uuid.UUID, body users.ProfileInput) (*users.UserDTO, error) {
		return svc.UpdateProfile(ctx, id, body)
	})
}

func AdminUserRole(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return userHandler(svc, logg, pathUserID, func(ctx context.Context, id uuid.UUID, body roleChangeRequest) (*users.UserDTO, error) {
		role, err := enums.ParseRole(body.Role)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role").
				WithDetails(map[string]string{"role": "is invalid"})
		}
		return svc.PromoteRole(ctx, id, role)
	})
}

func AdminUserStatus(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return userHandler(svc, logg, pathUserID, func(ctx context.Context, id uuid.UUID, body statusChangeRequest) (*users.UserDTO, error) {
		return svc.SetActive(ctx, id, *body.IsActive)
	})
}
