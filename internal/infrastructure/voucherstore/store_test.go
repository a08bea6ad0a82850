package voucherstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/themepark-booking/internal/internaltypes"
)

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := New(ctx, Config{Disk: DiskLocal, LocalRoot: root})
	require.NoError(t, err)

	key := "vouchers/redeam/voucher-VCH-1.html"
	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, key, []byte("<html>ok</html>"), "text/html"))
	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	b, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(b))
	_, err = os.Stat(filepath.Join(root, "vouchers", "redeam", "voucher-VCH-1.html"))
	assert.NoError(t, err)

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, internaltypes.ErrNotFound)
}

func TestLocalKeysStayUnderRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocal(filepath.Join(root, "inner"))
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "../../escape.html", []byte("x"), "text/html"))
	_, err = os.Stat(filepath.Join(root, "inner", "escape.html"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "escape.html"))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, s.Put(ctx, "  ", []byte("x"), "text/html"))
}

func TestNewRejectsMisconfiguredDisks(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, Config{Disk: DiskS3})
	assert.Error(t, err)
	_, err = New(ctx, Config{Disk: DiskGCS})
	assert.Error(t, err)
	_, err = New(ctx, Config{Disk: "ftp"})
	assert.Error(t, err)
}
