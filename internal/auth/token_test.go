package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/message-bus/internal/models"
)

func TestGenerateDecodeRoundtrip(t *testing.T) {
	tm := NewTokenManager("secret", "message-bus", time.Hour)

	token, err := tm.Generate(models.User{ID: 42, Username: "alice"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.Decode(token)
	require.NoError(t, err)

	id, ok := claims.Identity()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "message-bus", claims.Issuer)
}

func TestDecodeFailures(t *testing.T) {
	tm := NewTokenManager("secret", "message-bus", time.Hour)

	valid, err := tm.Generate(models.User{ID: 7})
	require.NoError(t, err)

	expired, err := NewTokenManager("secret", "message-bus", -time.Minute).
		Generate(models.User{ID: 7})
	require.NoError(t, err)

	misSigned, err := NewTokenManager("other-secret", "message-bus", time.Hour).
		Generate(models.User{ID: 7})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"truncated", valid[:len(valid)/2]},
		{"expired", expired},
		{"wrong secret", misSigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tm.Decode(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestClaimsIdentityAbsent(t *testing.T) {
	id, ok := Claims{}.Identity()
	assert.False(t, ok)
	assert.Zero(t, id)
}
