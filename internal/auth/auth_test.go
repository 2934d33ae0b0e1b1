package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour, time.Minute)

	signed, err := tokens.Issue(42, "alice@example.com")
	require.NoError(t, err)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, 42, id)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "42", claims.Subject)
}

func TestTokensRejectWrongPurpose(t *testing.T) {
	tokens := NewTokens("secret", time.Hour, time.Minute)

	verify, err := tokens.IssueVerification(1, "a@example.com")
	require.NoError(t, err)
	_, err = tokens.Verify(verify)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	claims, err := tokens.VerifyEmailToken(verify)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestTokensRejectTamperedAndExpired(t *testing.T) {
	tokens := NewTokens("secret", time.Hour, time.Minute)
	other := NewTokens("other", time.Hour, time.Minute)

	signed, err := other.Issue(1, "a@example.com")
	require.NoError(t, err)
	_, err = tokens.Verify(signed)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := tokens.Issue(1, "a@example.com")
	require.NoError(t, err)
	tokens.now = time.Now
	_, err = tokens.Verify(old)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = tokens.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	ok, err := CheckPassword(hash, "hunter22")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}
