package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/example/themepark-booking/internal/application/scheduler"
)

func newSyncCmd(o *rootOpts) *cobra.Command {
	var adapter string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync products from one adapter or all enabled adapters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			s := &scheduler.Scheduler{
				Syncer:        a.manager,
				RetryAttempts: cfg.Sync.RetryAttempts,
				RetryDelay:    cfg.Sync.RetryDelay,
				Log:           a.log,
			}
			names := a.manager.AvailableAdapters()
			if adapter != "" {
				names = []string{adapter}
			}
			failed := 0
			for _, name := range names {
				res := s.SyncWithRetry(ctx, name)
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", name, res.Summary())
				if !res.Success {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d syncs failed", failed, len(names))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&adapter, "adapter", "", "adapter name (default: every enabled adapter)")
	return cmd
}
