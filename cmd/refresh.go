package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bnema/boxtoplay-keeper/internal/adapters/httpapi"
	"github.com/bnema/boxtoplay-keeper/internal/application"
)

func newRefreshCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Probe every account once and persist rotated cookies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, v, func(a *app) error {
				return runRefresh(cmd, a, asJSON)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON output")

	return cmd
}

func runRefresh(cmd *cobra.Command, a *app, asJSON bool) error {
	if err := a.keeper.Start(cmd.Context()); err != nil {
		return err
	}

	var report application.CycleReport
	refresh := func(ctx context.Context, progress func(application.CycleProgress)) error {
		report = a.commands.Refresh(ctx, progress)
		return report.PersistErr
	}

	var err error
	if asJSON {
		err = refresh(cmd.Context(), nil)
	} else {
		err = runCycleSpinner(cmd.Context(), cmd.ErrOrStderr(), "Probing sessions...", refresh)
	}
	if err != nil {
		return fmt.Errorf("persist rotated cookies: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(httpapi.NewCycleResponse(report))
	}

	return writeInfoOutput(cmd, a, false)
}
