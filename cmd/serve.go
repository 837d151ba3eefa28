package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/boxtoplay-keeper/internal/adapters/httpapi"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	var requireLoad bool
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the keeper loop and the liveness server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := wireApp(ctx, v, cmd.OutOrStdout(), "json")
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			return runServe(ctx, a, addr, requireLoad)
		},
	}

	cmd.Flags().BoolVar(&requireLoad, "require-load", false, "exit when the initial document load fails instead of serving degraded")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :$PORT)")

	return cmd
}

func runServe(ctx context.Context, a *app, addr string, requireLoad bool) error {
	if addr == "" {
		addr = net.JoinHostPort("", a.cfg.Port)
	}

	if err := a.keeper.Start(ctx); err != nil {
		if requireLoad {
			return fmt.Errorf("initial load: %w", err)
		}
		a.log.Warn(ctx, "serving without a document, POST /reload to retry", "error", err)
	}

	server := httpapi.NewServer(a.commands, a.log.With("component", "httpapi"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, addr)
	})
	g.Go(func() error {
		return a.keeper.Run(gctx)
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	a.log.Info(context.Background(), "keeper stopped")
	return nil
}
