package auth

import (
	"testing"
	"time"

	"alignlab/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	svc, err := NewTokenService(testSecret, "alignlab", time.Hour)
	require.NoError(t, err)

	signed, record, err := svc.Mint("u-123")
	require.NoError(t, err)
	require.NotEmpty(t, signed)
	assert.Equal(t, "u-123", record.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), record.ExpiresAt, time.Minute)

	tokenID, userID, err := svc.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, record.ID, tokenID)
	assert.Equal(t, "u-123", userID)
}

func TestParseRejectsForeignSignature(t *testing.T) {
	svc, err := NewTokenService(testSecret, "alignlab", time.Hour)
	require.NoError(t, err)

	other, err := NewTokenService("another-secret-another-secret-ab", "alignlab", time.Hour)
	require.NoError(t, err)

	signed, _, err := other.Mint("u-123")
	require.NoError(t, err)

	_, _, err = svc.Parse(signed)
	assert.ErrorIs(t, err, types.ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	svc, err := NewTokenService(testSecret, "alignlab", -time.Minute)
	require.NoError(t, err)

	signed, _, err := svc.Mint("u-123")
	require.NoError(t, err)

	_, _, err = svc.Parse(signed)
	assert.ErrorIs(t, err, types.ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	svc, err := NewTokenService(testSecret, "alignlab", time.Hour)
	require.NoError(t, err)

	_, _, err = svc.Parse("not-a-token")
	assert.ErrorIs(t, err, types.ErrInvalidToken)
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService("", "alignlab", time.Hour)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", hash)

	assert.True(t, CheckPassword("hunter2hunter2", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("hunter2hunter2", ""))
}
