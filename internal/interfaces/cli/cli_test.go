package cli

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/themepark-booking/internal/domain/orderdetails"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	root := NewRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestVersion(t *testing.T) {
	assert.Contains(t, run(t, "version"), "themeparkd dev")
}

func TestKeysPrintsDecodableKeys(t *testing.T) {
	out := run(t, "keys")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for _, l := range lines {
		_, val, ok := strings.Cut(strings.TrimPrefix(l, "export "), "=")
		require.True(t, ok, l)
		b, err := base64.StdEncoding.DecodeString(val)
		require.NoError(t, err)
		assert.Len(t, b, 32)
	}
	assert.Contains(t, out, "TOKEN_ENC_KEY=")
	assert.Contains(t, out, "VOUCHER_LINK_BLOCK_KEY=")
}

func TestSubcommandsRegistered(t *testing.T) {
	root := NewRoot()
	for _, path := range [][]string{
		{"serve"}, {"sync"}, {"test-connection"}, {"status"}, {"migrate"},
		{"order", "redeam", "hold"}, {"order", "universal", "book"}, {"order", "voucher"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestOrderFlags(t *testing.T) {
	f := &orderFlags{
		supplier: "United_Parks",
		product:  "P1",
		date:     "2025-07-04",
		quantity: 2,
		first:    "Ada",
		last:     "Lovelace",
		email:    "ada@example.com",
	}
	s, err := f.supplierType()
	require.NoError(t, err)
	assert.Equal(t, orderdetails.SupplierUnitedParks, s)

	req, err := f.request()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC), req.Date)
	assert.Equal(t, "Ada Lovelace", req.Customer.FullName())
	assert.Nil(t, f.actor())

	f.supplier = "seaworld"
	_, err = f.supplierType()
	assert.Error(t, err)

	f.date = "04/07/2025"
	_, err = f.request()
	assert.Error(t, err)

	f.date, f.quantity = "2025-07-04", 0
	_, err = f.request()
	assert.Error(t, err)
}
