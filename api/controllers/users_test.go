package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rootsreach/rootsreach-backend/internal/users"
	"github.com/rootsreach/rootsreach-backend/pkg/enums"
)

type stubUsersService struct {
	gotID     uuid.UUID
	gotRole   enums.Role
	gotActive *bool
	gotName   string
}

func (s *stubUsersService) Get(ctx context.Context, id uuid.UUID) (*users.UserDTO, error) {
	s.gotID = id
	return &users.UserDTO{ID: id, Role: enums.RoleArtisan}, nil
}

func (s *stubUsersService) UpdateProfile(ctx context.Context, id uuid.UUID, input users.ProfileInput) (*users.UserDTO, error) {
	s.gotID = id
	if input.Name != nil {
		s.gotName = *input.Name
	}
	return &users.UserDTO{ID: id}, nil
}

func (s *stubUsersService) PromoteRole(ctx context.Context, id uuid.UUID, role enums.Role) (*users.UserDTO, error) {
	s.gotID, s.gotRole = id, role
	return &users.UserDTO{ID: id, Role: role}, nil
}

func (s *stubUsersService) PromoteByEmail(ctx context.Context, email string, role enums.Role) (*users.UserDTO, error) {
	return nil, nil
}

func (s *stubUsersService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*users.UserDTO, error) {
	s.gotID, s.gotActive = id, &active
	return &users.UserDTO{ID: id}, nil
}

func TestUserProfileTargetsCaller(t *testing.T) {
	svc := &stubUsersService{}
	caller := uuid.New()

	resp := httptest.NewRecorder()
	UserProfile(svc, nil).ServeHTTP(resp, withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil), caller, enums.RoleArtisan))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, caller, svc.gotID)
	assert.Contains(t, resp.Body.String(), caller.String())
}

func TestUserProfileWithoutIdentity(t *testing.T) {
	resp := httptest.NewRecorder()
	UserProfile(&stubUsersService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestUserUpdateProfileDecodesBody(t *testing.T) {
	svc := &stubUsersService{}
	caller := uuid.New()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/me", strings.NewReader(`{"name":"Meera"}`))

	resp := httptest.NewRecorder()
	UserUpdateProfile(svc, nil).ServeHTTP(resp, withCaller(req, caller, enums.RoleArtisan))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Meera", svc.gotName)
}

func TestAdminUserRole(t *testing.T) {
	svc := &stubUsersService{}
	target := uuid.New()

	req := withURLParam(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"role":"distributor"}`)), "userId", target.String())
	resp := httptest.NewRecorder()
	AdminUserRole(svc, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, target, svc.gotID)
	assert.Equal(t, enums.RoleDistributor, svc.gotRole)

	req = withURLParam(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"role":"wizard"}`)), "userId", target.String())
	resp = httptest.NewRecorder()
	AdminUserRole(svc, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req = withURLParam(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"role":"buyer"}`)), "userId", "not-a-uuid")
	resp = httptest.NewRecorder()
	AdminUserRole(svc, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdminUserStatusRequiresFlag(t *testing.T) {
	svc := &stubUsersService{}
	target := uuid.New()

	req := withURLParam(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{}`)), "userId", target.String())
	resp := httptest.NewRecorder()
	AdminUserStatus(svc, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Nil(t, svc.gotActive)

	req = withURLParam(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"is_active":false}`)), "userId", target.String())
	resp = httptest.NewRecorder()
	AdminUserStatus(svc, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.NotNil(t, svc.gotActive)
	assert.False(t, *svc.gotActive)
}

func TestHandlersWithoutServiceAnswer500(t *testing.T) {
	for name, h := range map[string]http.HandlerFunc{
		"profile": UserProfile(nil, nil),
		"login":   AuthLogin(nil, nil),
		"logout":  AuthLogout(nil, nil),
		"ai":      AITranslate(nil, nil),
	} {
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusInternalServerError, resp.Code, name)
	}
}
