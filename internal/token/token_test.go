package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssue(t *testing.T) {
	id := uuid.New()
	signed, err := Issue("secret", id, time.Hour)
	require.NoError(t, err)

	parsed, err := jwt.Parse(signed, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)

	sub, err := parsed.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, id.String(), sub)
}

func TestIssue_Expired(t *testing.T) {
	signed, err := Issue("secret", uuid.New(), -time.Minute)
	require.NoError(t, err)

	_, err = jwt.Parse(signed, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestIssue_NoSecret(t *testing.T) {
	_, err := Issue("", uuid.New(), time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)
}
