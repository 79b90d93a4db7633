package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken("svc-indexer", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, "svc-indexer", claims.Subject)
	require.NotNil(t, claims.ExpiresAt)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("svc", []byte("a"), time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(token, []byte("b"))
	require.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	secret := []byte("s")
	claims := Claims{RegisteredClaims: jwtlib.RegisteredClaims{
		Subject:   "svc",
		ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	_, err = ParseToken(token, secret)
	require.Error(t, err)
}

func TestGenerateToken_NoTTL(t *testing.T) {
	secret := []byte("s")
	token, err := GenerateToken("svc", secret, 0)
	require.NoError(t, err)
	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	require.Nil(t, claims.ExpiresAt)
}
