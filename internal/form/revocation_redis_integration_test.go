//go:build integration

package form

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding-gateway/internal/platform/redis"
	id "onboarding-gateway/pkg/domain"
	"onboarding-gateway/pkg/testutil/containers"
)

func TestRedisRevocationList(t *testing.T) {
	ctx := context.Background()
	container := containers.NewRedisContainer(t)

	client, err := redis.New(container.URL)
	require.NoError(t, err)
	list := NewRedisRevocationList(client)

	t.Run("unknown instance is not revoked", func(t *testing.T) {
		revoked, err := list.IsRevoked(ctx, id.NewFormInstanceID())
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("revocation is visible immediately", func(t *testing.T) {
		instanceID := id.NewFormInstanceID()
		require.NoError(t, list.Revoke(ctx, instanceID, time.Hour))

		revoked, err := list.IsRevoked(ctx, instanceID)
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("entry expires with its ttl", func(t *testing.T) {
		instanceID := id.NewFormInstanceID()
		require.NoError(t, list.Revoke(ctx, instanceID, time.Second))

		assert.Eventually(t, func() bool {
			revoked, err := list.IsRevoked(ctx, instanceID)
			return err == nil && !revoked
		}, 5*time.Second, 200*time.Millisecond)
	})
}
