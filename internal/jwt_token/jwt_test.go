package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding-gateway/internal/platform/middleware"
	dErrors "onboarding-gateway/pkg/domain-errors"
)

func TestTokenRoundtrip(t *testing.T) {
	svc := NewService("test-signing-key", "onboarding-gateway", "onboarding-gateway")

	token, err := svc.GenerateToken("risk-1", middleware.RoleRiskManager, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "risk-1", claims.ActorID)
	assert.Equal(t, middleware.RoleRiskManager, claims.Role)
}

func TestValidateToken(t *testing.T) {
	svc := NewService("test-signing-key", "onboarding-gateway", "onboarding-gateway")

	t.Run("expired token rejected", func(t *testing.T) {
		token, err := svc.GenerateToken("am-1", middleware.RoleAccountManager, -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong signing key rejected", func(t *testing.T) {
		other := NewService("another-key", "onboarding-gateway", "onboarding-gateway")
		token, err := other.GenerateToken("crm", middleware.RolePlatform, time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestMiddlewareAdapter(t *testing.T) {
	svc := NewService("test-signing-key", "onboarding-gateway", "onboarding-gateway")
	adapter := NewMiddlewareAdapter(svc)

	token, err := svc.GenerateToken("crm", middleware.RolePlatform, time.Hour)
	require.NoError(t, err)

	claims, err := adapter.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "crm", claims.ActorID)
	assert.Equal(t, middleware.RolePlatform, claims.Role)
}
