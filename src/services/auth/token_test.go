package auth

import (
	"testing"
	"time"

	"go-order-api/src/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager(t *testing.T) {
	manager := NewTokenManager("test-secret", "OrderDeskApp", time.Hour, 5*time.Minute)

	t.Run("session token round trip", func(t *testing.T) {
		token, err := manager.IssueSession("bob@example.com")
		require.NoError(t, err)

		claims, err := manager.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", claims.Subject)
		assert.False(t, claims.TwoFAPending)
	})

	t.Run("pending token carries the 2fa flag", func(t *testing.T) {
		token, err := manager.IssuePending("bob@example.com")
		require.NoError(t, err)

		claims, err := manager.Parse(token)
		require.NoError(t, err)
		assert.True(t, claims.TwoFAPending)
	})

	t.Run("tampered token is rejected", func(t *testing.T) {
		token, err := manager.IssueSession("bob@example.com")
		require.NoError(t, err)

		_, err = manager.Parse(token + "x")
		assert.True(t, apperrors.IsAuthError(err))
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		other := NewTokenManager("other-secret", "OrderDeskApp", time.Hour, 5*time.Minute)
		token, err := other.IssueSession("bob@example.com")
		require.NoError(t, err)

		_, err = manager.Parse(token)
		assert.True(t, apperrors.IsAuthError(err))
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		shortLived := NewTokenManager("test-secret", "OrderDeskApp", -time.Minute, -time.Minute)
		token, err := shortLived.IssueSession("bob@example.com")
		require.NoError(t, err)

		_, err = manager.Parse(token)
		assert.True(t, apperrors.IsAuthError(err))
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := manager.Parse("not-a-jwt")
		assert.True(t, apperrors.IsAuthError(err))
	})
}
