package adapterkit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingRT struct {
	base  http.RoundTripper
	calls int
}

func (c *countingRT) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls++
	return c.base.RoundTrip(r)
}

func TestHTTPClientWrapsTransport(t *testing.T) {
	var wrapped *countingRT
	d := Deps{Wrap: func(rt http.RoundTripper) http.RoundTripper {
		wrapped = &countingRT{base: rt}
		return wrapped
	}}.WithDefaults()

	c := d.HTTPClient(0, true)
	assert.Equal(t, 600*time.Second, c.Timeout)
	assert.Same(t, wrapped, c.Transport)
}

func TestLastSync(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	d := Deps{Now: func() time.Time { return now }}.WithDefaults()

	_, ok := d.LastSync(ctx, "smartorder")
	assert.False(t, ok)

	d.MarkSynced(ctx, "smartorder")
	got, ok := d.LastSync(ctx, "smartorder")
	assert.True(t, ok)
	assert.True(t, got.Equal(now))
}
