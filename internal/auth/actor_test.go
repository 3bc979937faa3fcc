package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{UserID: 7, Role: "admin"})

	a, ok := ActorFrom(ctx)
	require.True(t, ok)
	assert.True(t, a.IsAdmin())

	id := UserIDFrom(ctx)
	require.NotNil(t, id)
	assert.Equal(t, int64(7), *id)
}

func TestUserIDFrom_NoActor(t *testing.T) {
	assert.Nil(t, UserIDFrom(context.Background()))

	ctx := WithActor(context.Background(), Actor{Role: "user"})
	assert.Nil(t, UserIDFrom(ctx))
}
