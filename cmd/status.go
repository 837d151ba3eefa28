package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatusCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the public status of the game server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, v, func(a *app) error {
				target, err := a.commands.TargetStatus(cmd.Context())
				if err != nil {
					return err
				}

				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(target)
				}

				rendered, err := a.targetRenderer(target)
				if err != nil {
					return fmt.Errorf("render server status: %w", err)
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON output")

	return cmd
}
