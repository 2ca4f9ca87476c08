package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureStringRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
	}{
		{name: "passphrase", value: "correct horse battery staple"},
		{name: "token", value: "hvs.CAESIJ"},
		{name: "unicode", value: "pässwörd-🔑"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewSecureString(tt.value)
			defer s.Destroy()

			assert.False(t, s.IsEmpty())
			got, err := s.Reveal()
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)

			again, err := s.Reveal()
			require.NoError(t, err)
			assert.Equal(t, tt.value, again, "reveal can be repeated")
		})
	}
}

func TestSecureStringEmpty(t *testing.T) {
	t.Parallel()

	s := NewSecureString("")
	assert.True(t, s.IsEmpty())

	got, err := s.Reveal()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSecureStringDestroy(t *testing.T) {
	t.Parallel()

	s := NewSecureString("value")
	s.Destroy()
	s.Destroy()

	assert.True(t, s.IsEmpty())
	got, err := s.Reveal()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSecureStringNil(t *testing.T) {
	t.Parallel()

	var s *SecureString
	assert.True(t, s.IsEmpty())
	got, err := s.Reveal()
	require.NoError(t, err)
	assert.Empty(t, got)
	s.Destroy()
}
