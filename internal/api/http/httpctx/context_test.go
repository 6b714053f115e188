package httpctx

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager()
	userID := uuid.New()

	ctx := m.SetUserIDToContext(context.Background(), userID)

	got, ok := m.GetUserIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, userID, got)
}

func TestManager_MissingUserID(t *testing.T) {
	m := NewManager()

	_, ok := m.GetUserIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestManager_NilUserID(t *testing.T) {
	m := NewManager()

	ctx := m.SetUserIDToContext(context.Background(), uuid.Nil)
	_, ok := m.GetUserIDFromContext(ctx)
	assert.False(t, ok)
}
