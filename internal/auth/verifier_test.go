package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACRoundTrip(t *testing.T) {
	v := NewHMACVerifier("secret")
	token, err := v.Sign("user-1", "a@example.com", time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "a@example.com", id.Email)
}

func TestHMACRejects(t *testing.T) {
	v := NewHMACVerifier("secret")

	other, err := NewHMACVerifier("other").Sign("user-1", "", 0)
	require.NoError(t, err)
	_, err = v.Verify(other)
	assert.Error(t, err)

	expired, err := v.Sign("user-1", "", -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, HMACClaims{UserID: "user-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Verify(unsigned)
	assert.Error(t, err)
}

type stubVerifier struct {
	id  *Identity
	err error
}

func (s stubVerifier) Verify(string) (*Identity, error) { return s.id, s.err }

func TestChain(t *testing.T) {
	_, err := Chain{}.Verify("x")
	assert.ErrorIs(t, err, ErrNotConfigured)

	id, err := Chain{stubVerifier{err: errors.New("bad")}, stubVerifier{id: &Identity{UserID: "u"}}}.Verify("x")
	require.NoError(t, err)
	assert.Equal(t, "u", id.UserID)

	_, err = Chain{stubVerifier{err: errors.New("bad")}}.Verify("x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	tok, err = BearerToken("bearer  abc ")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "Basic abc", "Bearer", "Bearer "} {
		_, err := BearerToken(h)
		assert.ErrorIs(t, err, ErrMissingToken, h)
	}
}
