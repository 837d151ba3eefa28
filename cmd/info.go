package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bnema/boxtoplay-keeper/internal/adapters/httpapi"
	statusadapter "github.com/bnema/boxtoplay-keeper/internal/adapters/render/status"
)

func newInfoCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Load the document and show the stored sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, v, func(a *app) error {
				// A failed load is shown as the not_loaded state.
				_ = a.keeper.Start(cmd.Context())
				return writeInfoOutput(cmd, a, asJSON)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON output")

	return cmd
}

func writeInfoOutput(cmd *cobra.Command, a *app, asJSON bool) error {
	info := a.commands.SessionInfo()

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(httpapi.NewSessionResponse(info))
	}

	rendered, err := a.infoRenderer(info, statusadapter.RenderOptions{
		Now:        a.now(),
		StaleAfter: a.cfg.Probe.SyncInterval,
	})
	if err != nil {
		return fmt.Errorf("render session info: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
