package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	appbooking "github.com/example/themepark-booking/internal/application/booking"
	"github.com/example/themepark-booking/internal/application/usecases"
	"github.com/example/themepark-booking/internal/application/voucher"
	"github.com/example/themepark-booking/internal/domain/orderdetails"
	"github.com/example/themepark-booking/internal/infrastructure/cache"
	"github.com/example/themepark-booking/internal/infrastructure/config"
	"github.com/example/themepark-booking/internal/infrastructure/crypto"
	"github.com/example/themepark-booking/internal/infrastructure/logging"
	"github.com/example/themepark-booking/internal/infrastructure/metrics"
	"github.com/example/themepark-booking/internal/infrastructure/postgres"
	"github.com/example/themepark-booking/internal/infrastructure/sqlite"
	"github.com/example/themepark-booking/internal/infrastructure/tokenstore"
	"github.com/example/themepark-booking/internal/infrastructure/voucherstore"
	"github.com/example/themepark-booking/internal/interfaces/web"
)

// app is the process wiring shared by the subcommands.
type app struct {
	cfg      config.Config
	log      *logrus.Logger
	cache    cache.Store
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	manager  *appbooking.Manager

	closers []io.Closer
	closeFn []func()
}

func (a *app) Close() {
	for i := len(a.closeFn) - 1; i >= 0; i-- {
		a.closeFn[i]()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg, log: logging.New(cfg.Log.Level, cfg.Log.Format)}
	if cfg.App.DevMode {
		a.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return nil, err
		}
		r := cache.NewRedis(client, cfg.App.Name+":")
		a.closers = append(a.closers, r)
		a.cache = r
	} else {
		a.cache = cache.NewMemory()
	}

	key, err := cfg.TokenKey()
	if err != nil {
		return nil, err
	}
	var aead *crypto.AEAD
	if key != nil {
		if aead, err = crypto.New(key); err != nil {
			return nil, fmt.Errorf("token key: %w", err)
		}
	}

	a.manager = appbooking.NewManager(a.log, a.metrics)
	appbooking.RegisterDefaults(a.manager, cfg, appbooking.Options{
		Log:     a.log,
		Cache:   a.cache,
		Tokens:  tokenstore.NewCached(a.cache, aead),
		Metrics: a.metrics,
	})
	return a, nil
}

func (a *app) repository(ctx context.Context) (orderdetails.Repository, error) {
	switch a.cfg.Database.Driver {
	case "sqlite":
		s, err := sqlite.Open(ctx, a.cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s)
		return s, nil
	default:
		pool, err := postgres.Open(ctx, a.cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		a.closeFn = append(a.closeFn, pool.Close)
		return postgres.NewOrderDetailsRepo(pool), nil
	}
}

func (a *app) voucherStore(ctx context.Context) (voucherstore.Store, error) {
	v := a.cfg.Voucher
	return voucherstore.New(ctx, voucherstore.Config{
		Disk:      voucherstore.Disk(v.Disk),
		LocalRoot: v.LocalRoot,
		Bucket:    v.Bucket,
		Region:    v.Region,
		Endpoint:  v.Endpoint,
		Prefix:    v.Prefix,
	})
}

func (a *app) links() (*web.LinkSigner, error) {
	hash, block, err := a.cfg.LinkKeys()
	if err != nil {
		return nil, err
	}
	if hash == nil {
		a.log.Warn("VOUCHER_LINK_HASH_KEY not set; voucher links will not survive a restart")
	}
	return web.NewLinkSigner(hash, block), nil
}

// services wires the order use cases on top of persistence and voucher storage.
type services struct {
	redeam    usecases.RedeamOrders
	universal usecases.UniversalOrders
	vouchers  usecases.Vouchers
	store     voucherstore.Store
	links     *web.LinkSigner
}

func (a *app) services(ctx context.Context) (*services, error) {
	repo, err := a.repository(ctx)
	if err != nil {
		return nil, err
	}
	store, err := a.voucherStore(ctx)
	if err != nil {
		return nil, err
	}
	links, err := a.links()
	if err != nil {
		return nil, err
	}
	gen := voucher.New(store, links, a.cfg.HTTP.PublicURL, a.cfg.Voucher.ExpiryDays)
	return &services{
		redeam:    usecases.RedeamOrders{Bookings: a.manager, Repo: repo, Log: a.log},
		universal: usecases.UniversalOrders{Bookings: a.manager, Repo: repo, Log: a.log},
		vouchers:  usecases.Vouchers{Bookings: a.manager, Renderer: gen, Redeam: repo, Universal: repo},
		store:     store,
		links:     links,
	}, nil
}
