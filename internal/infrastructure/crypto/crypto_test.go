package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealRoundTrip(t *testing.T) {
	a, err := New(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	ct, err := a.EncryptToString("access-token")
	require.NoError(t, err)
	assert.NotContains(t, ct, "access-token")

	pt, err := a.DecryptString(ct)
	require.NoError(t, err)
	assert.Equal(t, "access-token", pt)

	other, err := New(bytes.Repeat([]byte{8}, 32))
	require.NoError(t, err)
	_, err = other.DecryptString(ct)
	assert.Error(t, err)
}

func TestRejectsShortKey(t *testing.T) {
	_, err := New([]byte("short"))
	assert.Error(t, err)
}
