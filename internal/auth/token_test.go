package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_IssueAndValidate(t *testing.T) {
	tokens := NewTokens("s3cret", "kisan-portal")

	signed, err := tokens.Issue("ops@kisan.org", time.Hour)
	require.NoError(t, err)

	claims, err := tokens.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "ops@kisan.org", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestTokens_Rejects(t *testing.T) {
	tokens := NewTokens("s3cret", "kisan-portal")

	t.Run("expired", func(t *testing.T) {
		signed, err := tokens.Issue("ops", -time.Minute)
		require.NoError(t, err)
		_, err = tokens.Validate(signed)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("other secret", func(t *testing.T) {
		signed, err := NewTokens("other", "kisan-portal").Issue("ops", time.Hour)
		require.NoError(t, err)
		_, err = tokens.Validate(signed)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("other issuer", func(t *testing.T) {
		signed, err := NewTokens("s3cret", "elsewhere").Issue("ops", time.Hour)
		require.NoError(t, err)
		_, err = tokens.Validate(signed)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
	})

	t.Run("wrong role", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			Role: "editor",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "kisan-portal",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString([]byte("s3cret"))
		require.NoError(t, err)
		_, err = tokens.Validate(signed)
		assert.ErrorIs(t, err, ErrNotAdmin)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Validate("not.a.token")
		assert.Error(t, err)
	})
}

func TestTokens_MissingSecret(t *testing.T) {
	_, err := NewTokens("", "").Issue("ops", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
}
