package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	auth := NewAuthService(&config.Config{JWTSecret: "s3cret"})

	token, err := auth.IssueStudentToken(42, 3, time.Hour)
	require.NoError(t, err)

	claims, err := auth.ValidateStudentToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, 3, claims.ClassID)
	assert.Equal(t, "42", claims.Subject)
}

func TestValidateRejects(t *testing.T) {
	auth := NewAuthService(&config.Config{JWTSecret: "s3cret"})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewAuthService(&config.Config{JWTSecret: "other"})
		token, err := other.IssueStudentToken(1, 1, time.Hour)
		require.NoError(t, err)
		_, err = auth.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := auth.IssueStudentToken(1, 1, -time.Minute)
		require.NoError(t, err)
		_, err = auth.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("admin token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
			TokenType:        TokenTypeAdmin,
			UserID:           1,
		})
		signed, err := token.SignedString([]byte("s3cret"))
		require.NoError(t, err)
		_, err = auth.ValidateStudentToken(signed)
		assert.ErrorIs(t, err, ErrNotStudentToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{TokenType: TokenTypeStudent})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = auth.ValidateToken(signed)
		assert.Error(t, err)
	})
}
