package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/example/themepark-booking/internal/application/scheduler"
	"github.com/example/themepark-booking/internal/infrastructure/postgres"
	"github.com/example/themepark-booking/internal/interfaces/web"
)

func newServeCmd(o *rootOpts) *cobra.Command {
	var (
		migrateUp bool
		noSync    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the product sync scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if migrateUp && cfg.Database.Driver == "postgres" {
				if err := runPostgresMigrations(ctx, a.log, cfg.Database.URL); err != nil {
					return err
				}
			}
			svc, err := a.services(ctx)
			if err != nil {
				return err
			}

			var synced chan struct{}
			if !noSync {
				s := &scheduler.Scheduler{
					Syncer:        a.manager,
					Interval:      cfg.Sync.Interval,
					RetryAttempts: cfg.Sync.RetryAttempts,
					RetryDelay:    cfg.Sync.RetryDelay,
					Log:           a.log.WithField("component", "scheduler"),
				}
				synced = make(chan struct{})
				go func() {
					defer close(synced)
					_ = s.Run(ctx)
				}()
			}

			ws := &web.Server{
				Adapters: a.manager,
				Holds:    svc.redeam,
				Vouchers: svc.store,
				Links:    svc.links,
				Gatherer: a.registry,
				Log:      a.log,
			}
			err = web.Start(ctx, cfg.HTTP.Addr, ws.Routes(), a.log)
			cancel()
			if synced != nil {
				<-synced
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "do not start the product sync scheduler")
	return cmd
}

func runPostgresMigrations(ctx context.Context, log logrus.FieldLogger, url string) error {
	pool, err := postgres.Open(ctx, url)
	if err != nil {
		return err
	}
	defer pool.Close()
	applied, err := postgres.Migrate(ctx, pool)
	if err != nil {
		return err
	}
	for _, name := range applied {
		log.WithField("migration", name).Info("Applied migration")
	}
	return nil
}
