package booking

import (
	"net/http"

	"github.com/sirupsen/logrus"

	domain "github.com/example/themepark-booking/internal/domain/booking"
	"github.com/example/themepark-booking/internal/infrastructure/adapterkit"
	"github.com/example/themepark-booking/internal/infrastructure/cache"
	"github.com/example/themepark-booking/internal/infrastructure/config"
	"github.com/example/themepark-booking/internal/infrastructure/metrics"
	"github.com/example/themepark-booking/internal/infrastructure/redeam"
	"github.com/example/themepark-booking/internal/infrastructure/resilience"
	"github.com/example/themepark-booking/internal/infrastructure/smartorder"
	"github.com/example/themepark-booking/internal/infrastructure/tokenstore"
)

const (
	AdapterRedeamDisney      = "redeam_disney"
	AdapterRedeamUnitedParks = "redeam_united_parks"
	AdapterSmartOrder        = smartorder.Name
)

type Options struct {
	Log     logrus.FieldLogger
	Cache   cache.Store
	Tokens  tokenstore.Repository
	Metrics *metrics.Metrics
}

func (o Options) deps(name string, cfg config.Config) adapterkit.Deps {
	return adapterkit.Deps{
		Log:   o.Log,
		Cache: o.Cache,
		TTL: adapterkit.TTLs{
			Products:     cfg.Cache.ProductsTTL,
			Availability: cfg.Cache.AvailabilityTTL,
			Pricing:      cfg.Cache.PricingTTL,
		},
		Wrap: Guard(name, cfg.Breaker, cfg.RateLimit, o.Metrics),
	}
}

// Guard puts a rate limiter and circuit breaker in front of an adapter's
// transport. Each call builds fresh state, so every adapter trips on its own.
func Guard(name string, b config.Breaker, rl config.RateLimit, m *metrics.Metrics) func(http.RoundTripper) http.RoundTripper {
	return func(base http.RoundTripper) http.RoundTripper {
		t := &resilience.Transport{Base: base}
		if !rl.Disabled {
			t.Limiter = resilience.NewLimiter(rl.RequestsPerMinute, rl.Burst)
		}
		if !b.Disabled {
			cb := resilience.NewCircuitBreaker(name, resilience.BreakerSettings{
				FailureThreshold: b.FailureThreshold,
				SuccessThreshold: b.SuccessThreshold,
				OpenTimeout:      b.OpenTimeout,
			})
			cb.OnStateChange(m.BreakerHook())
			t.Breaker = cb
		}
		return t
	}
}

func redeamSettings(cfg config.Config, p config.Park) redeam.Settings {
	return redeam.Settings{
		BaseURL:            cfg.Redeam.BaseURL,
		APIKey:             cfg.Redeam.APIKey,
		APISecret:          cfg.Redeam.APISecret,
		SupplierID:         p.SupplierID,
		Timeout:            cfg.Redeam.Timeout,
		InsecureSkipVerify: cfg.Redeam.Insecure,
	}
}

func smartOrderSettings(cfg config.Config, o Options) smartorder.Settings {
	so := cfg.SmartOrder
	return smartorder.Settings{
		BaseURL:            so.BaseURL,
		CustomerID:         so.CustomerID,
		ClientID:           so.ClientUsername,
		ClientSecret:       so.ClientSecret,
		ApprovedSuffix:     so.ApprovedSuffix,
		SalesProgramID:     so.SalesProgramID,
		Timeout:            so.Timeout,
		InsecureSkipVerify: so.Insecure,
		Tokens:             o.Tokens,
		OnTokenRefresh:     func() { o.Metrics.TokenRefreshed(AdapterSmartOrder) },
	}
}

// RegisterDefaults registers the built-in vendor adapters from cfg. Disabled
// adapters stay registered so they show up in status listings.
func RegisterDefaults(m *Manager, cfg config.Config, o Options) {
	park := func(name string, pt redeam.ParkType, p config.Park) {
		m.Register(name, func() (domain.Adapter, error) {
			return redeam.New(pt, redeamSettings(cfg, p), o.deps(name, cfg))
		})
		m.SetEnabled(name, p.Enabled())
	}
	park(AdapterRedeamDisney, redeam.ParkDisney, cfg.Redeam.Disney)
	park(AdapterRedeamUnitedParks, redeam.ParkUnitedParks, cfg.Redeam.UnitedParks)

	m.Register(AdapterSmartOrder, func() (domain.Adapter, error) {
		return smartorder.New(smartOrderSettings(cfg, o), o.deps(AdapterSmartOrder, cfg))
	})
	m.SetEnabled(AdapterSmartOrder, cfg.SmartOrder.Enabled())
}
