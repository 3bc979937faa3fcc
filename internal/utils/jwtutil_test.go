package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	signer := NewTokenSigner("secret")

	token, exp, err := signer.GenerateToken(42, "admin", time.Hour)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := signer.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserId)
	assert.Equal(t, "admin", claims.Role)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _, err := NewTokenSigner("a").GenerateToken(1, "user", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenSigner("b").ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	signer := NewTokenSigner("secret")
	token, _, err := signer.GenerateToken(1, "user", -time.Minute)
	require.NoError(t, err)

	_, err = signer.ParseToken(token)
	assert.Error(t, err)
}
