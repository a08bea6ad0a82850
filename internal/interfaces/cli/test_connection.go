package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/themepark-booking/internal/application/usecases"
)

func newTestConnectionCmd(o *rootOpts) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "test-connection [adapter...]",
		Short: "Check that vendor APIs are reachable with the configured credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			names := args
			if len(names) == 0 {
				names = a.manager.AvailableAdapters()
			}
			ping := usecases.PingProvider{Bookings: a.manager}
			var firstErr error
			for _, name := range names {
				if err := ping.Execute(ctx, name); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%-22s FAIL %v\n", name, err)
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s OK\n", name)
			}
			return firstErr
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")
	return cmd
}
