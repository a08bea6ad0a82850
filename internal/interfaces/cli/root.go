// Package cli holds the themeparkd subcommands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/themepark-booking/internal/infrastructure/config"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

type rootOpts struct {
	configPath string
}

func (o *rootOpts) load() (config.Config, error) {
	return config.FromEnv(o.configPath)
}

func NewRoot() *cobra.Command {
	o := &rootOpts{}
	root := &cobra.Command{
		Use:           "themeparkd",
		Short:         "Theme-park ticket booking against Redeam and SmartOrder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&o.configPath, "config", "themepark.yaml", "config file (environment variables override it)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newServeCmd(o))
	root.AddCommand(newSyncCmd(o))
	root.AddCommand(newTestConnectionCmd(o))
	root.AddCommand(newStatusCmd(o))
	root.AddCommand(newMigrateCmd(o))
	root.AddCommand(newOrderCmd(o))
	return root
}

func Execute() {
	if err := NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
