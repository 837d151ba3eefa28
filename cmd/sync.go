package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSyncCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Load the document and write it back to the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, v, func(a *app) error {
				if err := a.keeper.Start(cmd.Context()); err != nil {
					return err
				}

				syncedAt, err := a.commands.ForceSync(cmd.Context())
				if err != nil {
					return err
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Document synced at %s\n", syncedAt.UTC().Format(time.RFC3339))
				return err
			})
		},
	}
}
