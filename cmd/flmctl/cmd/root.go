// Package cmd implements flmctl's cobra command tree.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/GeauxEric/flame/internal/config"
	"github.com/GeauxEric/flame/pkg/flameclient"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "flmctl",
		Short: "Manage Flame sessions and tasks",
		Long:  `flmctl is the command-line client for a Flame session manager.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "flame-conf", "", "path to flame-conf.yaml (default $HOME/.flame/flame-conf.yaml)")

	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(taskCmd)
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// newClient loads FlameContext and builds a flameclient.Client dialing
// its resolved endpoint (FLAME_SERVER env var takes priority, per §6).
func newClient() (*flameclient.Client, error) {
	fctx, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	endpoint := config.Endpoint(fctx)
	return flameclient.New(endpoint), nil
}
