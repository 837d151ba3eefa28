package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bnema/boxtoplay-keeper/internal/config"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "keeper",
		Short:         "BoxToPlay session keeper: keep account sessions alive and synced",
		Long:          "keeper probes the BoxToPlay sessions of every stored account, persists rotated cookies back to the remote document, and serves a liveness endpoint for free-tier hosts.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	v := config.New()

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(v),
		newInfoCmd(v),
		newSyncCmd(v),
		newRefreshCmd(v),
		newStatusCmd(v),
	)

	return rootCmd
}

// withApp wires the application for a one-shot command, logging text to
// stderr, and closes it afterwards.
func withApp(cmd *cobra.Command, v *viper.Viper, run func(*app) error) error {
	a, err := wireApp(cmd.Context(), v, cmd.ErrOrStderr(), "text")
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return run(a)
}
