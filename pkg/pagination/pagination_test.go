package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageSize(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{10, 10},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Params{Limit: tt.limit}.PageSize(), "limit %d", tt.limit)
	}
	assert.Equal(t, 11, Params{Limit: 10}.FetchSize())
}

func TestCursorEncodeDecode(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 123, time.UTC), ID: uuid.New()}

	token := in.Encode()
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")

	out, err := Decode(token)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)

	clause, args := out.Predicate()
	assert.Contains(t, clause, "created_at < ?")
	assert.Equal(t, []any{out.CreatedAt, out.CreatedAt, out.ID}, args)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	c, err := Decode("  ")
	assert.NoError(t, err)
	assert.Nil(t, c)

	for _, token := range []string{
		"%%%",
		base64.RawURLEncoding.EncodeToString([]byte("not json")),
		base64.RawURLEncoding.EncodeToString([]byte(`{"t":0,"i":"` + uuid.NewString() + `"}`)),
		Cursor{CreatedAt: time.Now()}.Encode(),
	} {
		_, err := Decode(token)
		assert.ErrorIs(t, err, ErrInvalidCursor, token)
	}
}

func TestTrim(t *testing.T) {
	type row struct {
		id uuid.UUID
		at time.Time
	}
	now := time.Now().UTC()
	rows := []row{{uuid.New(), now}, {uuid.New(), now.Add(-time.Minute)}, {uuid.New(), now.Add(-2 * time.Minute)}}
	cursorOf := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := Trim(rows, Params{Limit: 2}, cursorOf)
	require.Len(t, page, 2)
	require.NotEmpty(t, next)
	parsed, err := Decode(next)
	require.NoError(t, err)
	assert.Equal(t, rows[1].id, parsed.ID)

	page, next = Trim(rows[:2], Params{Limit: 2}, cursorOf)
	assert.Len(t, page, 2)
	assert.Empty(t, next)
}
