package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	tok, err := SignJWT(42, "secret", time.Hour)
	require.NoError(t, err)

	uid, err := ParseJWT(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
}

func TestParse_Rejects(t *testing.T) {
	tok, err := SignJWT(42, "secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(tok, "other")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := SignJWT(42, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseJWT("not-a-token", "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)

	anon, err := SignJWT(0, "secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(anon, "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
