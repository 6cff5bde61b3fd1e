package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/rootsreach/rootsreach-backend/pkg/errors"
)

type signupBody struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=artisan distributor buyer"`
	Age   int    `json:"age" validate:"omitempty,min=18"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func fieldDetails(t *testing.T, err error) map[string]string {
	t.Helper()
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "expected validation error, got %v", err)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok, "expected field details, got %#v", pkgerrors.As(err).Details())
	return details
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	var body signupBody
	details := fieldDetails(t, DecodeJSONBody(post(`{"email":"nope","role":"admin","age":12}`), &body))

	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must be one of artisan distributor buyer", details["role"])
	assert.Equal(t, "must be at least 18", details["age"])
}

func TestDecodeJSONBodyAcceptsValidBody(t *testing.T) {
	var body signupBody
	require.NoError(t, DecodeJSONBody(post(`{"email":"weaver@example.com","role":"artisan"}`), &body))
	assert.Equal(t, "weaver@example.com", body.Email)
}

func TestDecodeJSONBodyReportsShapeErrors(t *testing.T) {
	var body signupBody

	details := fieldDetails(t, DecodeJSONBody(post(`{"email":"a@b.co","extra":1}`), &body))
	assert.Equal(t, "is not a known field", details["extra"])

	details = fieldDetails(t, DecodeJSONBody(post(`{"email":"a@b.co","age":"old"}`), &body))
	assert.Equal(t, "must be a number", details["age"])

	err := DecodeJSONBody(post(""), &body)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.Equal(t, "request body is required", pkgerrors.As(err).Message())

	err = DecodeJSONBody(post(`{"email":`), &body)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.Equal(t, "malformed JSON", pkgerrors.As(err).Message())

	err = DecodeJSONBody(post(`{"email":"a@b.co"} {"email":"c@d.co"}`), &body)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.Equal(t, "request body must hold a single JSON object", pkgerrors.As(err).Message())
}

func TestDecodeJSONBodyLimitsSize(t *testing.T) {
	var body signupBody
	huge := `{"email":"` + strings.Repeat("a", MaxJSONBodyBytes) + `@b.co"}`

	err := DecodeJSONBody(post(huge), &body)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.Equal(t, "request body too large", pkgerrors.As(err).Message())
}

func TestQueryParsers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?lowStock=2.5&supplierId=not-a-uuid&limit=500&offset=abc&page=3", nil)

	low, err := ParseQueryDecimal(req, "lowStock")
	require.NoError(t, err)
	require.NotNil(t, low)
	assert.Equal(t, "2.5", low.String())

	missing, err := ParseQueryDecimal(req, "absent")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = ParseQueryUUID(req, "supplierId")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = ParseQueryInt(req, "limit", 50, 1, 100)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = ParseQueryInt(req, "offset", 0, 0, 10)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	page, err := ParseQueryInt(req, "page", 1, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, page)

	def, err := ParseQueryInt(req, "absent", 50, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 50, def)
}

func TestParseUUIDParam(t *testing.T) {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("id", "3f2b8a4e-8c1d-4d2e-9a61-1c2d3e4f5a6b")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	id, err := ParseUUIDParam(req, "id")
	require.NoError(t, err)
	assert.Equal(t, "3f2b8a4e-8c1d-4d2e-9a61-1c2d3e4f5a6b", id.String())

	_, err = ParseUUIDParam(req, "other")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
