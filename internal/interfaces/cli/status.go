package cli

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print adapter configuration status as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(a.manager.AdapterStatuses(ctx))
		},
	}
}
