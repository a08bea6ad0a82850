package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/themepark-booking/internal/infrastructure/logging"
	"github.com/example/themepark-booking/internal/infrastructure/sqlite"
)

func newMigrateCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the order details tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			if cfg.Database.Driver == "sqlite" {
				s, err := sqlite.Open(ctx, cfg.Database.SQLitePath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sqlite schema ready at %s\n", cfg.Database.SQLitePath)
				return s.Close()
			}
			return runPostgresMigrations(ctx, logging.New(cfg.Log.Level, cfg.Log.Format), cfg.Database.URL)
		},
	}
}
