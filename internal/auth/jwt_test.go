package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := NewToken("secret", "user-1", "a@b.com", time.Hour)
	assert.NoError(t, err)

	claims, err := ParseAndValidateToken("secret", tok)
	assert.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)
}

func TestExpiredTokenRejected(t *testing.T) {
	tok, err := NewToken("secret", "user-1", "", -time.Minute)
	assert.NoError(t, err)

	_, err = ParseAndValidateToken("secret", tok)
	assert.Error(t, err)
}

func TestWrongSecretRejected(t *testing.T) {
	tok, _ := NewToken("secret", "user-1", "", time.Hour)
	_, err := ParseAndValidateToken("other", tok)
	assert.Error(t, err)
}

func TestParseBearerToken(t *testing.T) {
	tok, err := ParseBearerToken("Bearer abc")
	assert.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = ParseBearerToken("")
	assert.Error(t, err)

	_, err = ParseBearerToken("Basic abc")
	assert.Error(t, err)
}
