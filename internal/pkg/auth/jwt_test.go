package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexlog/flexchat/internal/pkg/apperrors"
)

func newTestJWTService() *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:   "test-secret",
		TokenIssuer: "flexlog.app",
	})
}

func TestJWT_RoundTrip(t *testing.T) {
	svc := newTestJWTService()

	token, err := svc.GenerateToken(42, "Runner Jane", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateAndExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "Runner Jane", claims.DisplayName)
	assert.Equal(t, "flexlog.app", claims.Issuer)
}

func TestJWT_ExpiredToken(t *testing.T) {
	svc := newTestJWTService()

	token, err := svc.GenerateToken(42, "Runner Jane", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateAndExtractClaims(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestJWT_WrongSecret(t *testing.T) {
	svc := newTestJWTService()
	other := NewJWTService(JWTConfig{SecretKey: "different-secret", TokenIssuer: "flexlog.app"})

	token, err := other.GenerateToken(42, "Runner Jane", time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateAndExtractClaims(token)
	require.Error(t, err)
}

func TestJWT_EmptyToken(t *testing.T) {
	svc := newTestJWTService()

	_, err := svc.ValidateAndExtractClaims("")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestExtractBearerToken(t *testing.T) {
	token, err := ExtractBearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = ExtractBearerToken("")
	assert.ErrorIs(t, err, apperrors.ErrInvalidFormat)
}
