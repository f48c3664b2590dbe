package secret

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer("top-secret")
	require.NoError(t, err)

	sealed, err := s.Seal("smtp-password")
	require.NoError(t, err)
	assert.NotEqual(t, "smtp-password", sealed)

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "smtp-password", opened)
}

func TestSealer_WrongSecret(t *testing.T) {
	a, err := NewSealer("one")
	require.NoError(t, err)
	b, err := NewSealer("two")
	require.NoError(t, err)

	sealed, err := a.Seal("value")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.Error(t, err)
}

func TestSealer_TooShort(t *testing.T) {
	s, err := NewSealer("k")
	require.NoError(t, err)

	_, err = s.Open(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorContains(t, err, "too short")
}

func TestNewSealer_RequiresSecret(t *testing.T) {
	_, err := NewSealer("")
	assert.Error(t, err)
}
