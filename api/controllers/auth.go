package controllers

import (
	"context"
	"net/http"

	"github.com/rootsreach/rootsreach-backend/api/middleware"
	"github.com/rootsreach/rootsreach-backend/api/responses"
	"github.com/rootsreach/rootsreach-backend/api/validators"
	"github.com/rootsreach/rootsreach-backend/internal/auth"
	pkgerrors "github.com/rootsreach/rootsreach-backend/pkg/errors"
	"github.com/rootsreach/rootsreach-backend/pkg/logger"
)

// TokenHeader repeats the access token of every response that issues one.
const TokenHeader = "X-RR-Token"

// issueFunc runs one auth operation that ends in a signed-in session.
type issueFunc[T any] func(ctx context.Context, svc auth.Service, r *http.Request, body T) (*auth.LoginResponse, error)

// issuing decodes a T body, runs issue and answers with the new session.
func issuing[T any](svc auth.Service, logg *logger.Logger, status int, issue issueFunc[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		var body T
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := issue(ctx, svc, r, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		w.Header().Set(TokenHeader, result.AccessToken)
		responses.WriteSuccessStatus(w, status, result)
	}
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return issuing(svc, logg, http.StatusOK,
		func(ctx context.Context, svc auth.Service, _ *http.Request, body auth.LoginRequest) (*auth.LoginResponse, error) {
			return svc.Login(ctx, body)
		})
}

// AdminAuthLogin only admits admin accounts.
func AdminAuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return issuing(svc, logg, http.StatusOK,
		func(ctx context.Context, svc auth.Service, _ *http.Request, body auth.LoginRequest) (*auth.LoginResponse, error) {
			return svc.AdminLogin(ctx, body)
		})
}

// AuthRegister creates a self-service account and signs it in.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return issuing(svc, logg, http.StatusCreated,
		func(ctx context.Context, svc auth.Service, _ *http.Request, body auth.RegisterRequest) (*auth.LoginResponse, error) {
			return svc.Register(ctx, body)
		})
}

// AuthRefresh rotates the refresh token. The bearer access token may already
// be expired but must still carry a valid signature.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return issuing(svc, logg, http.StatusOK,
		func(ctx context.Context, svc auth.Service, r *http.Request, body auth.RefreshRequest) (*auth.LoginResponse, error) {
			token := middleware.BearerToken(r)
			if token == "" {
				return nil, errMissingCredentials
			}
			return svc.Refresh(ctx, token, body)
		})
}

// AuthLogout revokes the session behind the bearer token.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token := middleware.BearerToken(r)
		switch {
		case svc == nil:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
		case token == "":
			responses.WriteError(ctx, logg, w, errMissingCredentials)
		default:
			if err := svc.Logout(ctx, token); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
		}
	}
}

var errMissingCredentials = pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
