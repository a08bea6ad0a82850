package adapterkit

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/themepark-booking/internal/infrastructure/cache"
)

// LastSyncTTL is how long a sync timestamp is remembered.
const LastSyncTTL = 30 * 24 * time.Hour

type TTLs struct {
	Products     time.Duration
	Availability time.Duration
	Pricing      time.Duration
}

// Deps are the collaborators shared by vendor adapters. Zero values are usable.
type Deps struct {
	Log   logrus.FieldLogger
	Cache cache.Store
	TTL   TTLs
	Now   func() time.Time
	// Wrap decorates the base transport (rate limiting, circuit breaking).
	Wrap func(http.RoundTripper) http.RoundTripper
}

func (d Deps) WithDefaults() Deps {
	if d.Log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		d.Log = l
	}
	if d.Cache == nil {
		d.Cache = cache.NewMemory()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// HTTPClient builds the per-adapter client. insecure disables TLS verification
// for vendor sandboxes with self-signed certificates.
func (d Deps) HTTPClient(timeout time.Duration, insecure bool) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	var rt http.RoundTripper = base
	if d.Wrap != nil {
		rt = d.Wrap(base)
	}
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: rt}
}

func (d Deps) MarkSynced(ctx context.Context, adapter string) {
	_ = d.Cache.Set(ctx, "last_sync_"+adapter, []byte(d.Now().UTC().Format(time.RFC3339)), LastSyncTTL)
}

func (d Deps) LastSync(ctx context.Context, adapter string) (time.Time, bool) {
	b, ok, err := d.Cache.Get(ctx, "last_sync_"+adapter)
	if err != nil || !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, string(b))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
