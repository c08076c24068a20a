package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = strings.Repeat("ab", KeySize)

func TestNewAESGCMSealer_InvalidKeys(t *testing.T) {
	_, err := NewAESGCMSealer("not-hex")
	assert.ErrorContains(t, err, "invalid encryption key hex")

	_, err = NewAESGCMSealer("abcd")
	assert.ErrorContains(t, err, "must be 32 bytes")
}

func TestSealOpen_Roundtrip(t *testing.T) {
	s, err := NewAESGCMSealer(testKey)
	require.NoError(t, err)

	payload := []byte(`{"token":"jwt.abc.def"}`)
	sealed, err := s.Seal(payload)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "jwt.abc.def")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, payload, opened)
}

func TestSeal_UniqueNonces(t *testing.T) {
	s, err := NewAESGCMSealer(testKey)
	require.NoError(t, err)

	a, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpen_Tampered(t *testing.T) {
	s, err := NewAESGCMSealer(testKey)
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("secret"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff

	_, err = s.Open(sealed)
	assert.ErrorContains(t, err, "failed to decrypt")

	_, err = s.Open([]byte{1, 2})
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestNoopSealer_Passthrough(t *testing.T) {
	var s Sealer = NoopSealer{}
	sealed, err := s.Seal([]byte("plain"))
	require.NoError(t, err)
	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "plain", string(opened))
}
