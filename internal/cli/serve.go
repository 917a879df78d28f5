package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/agentic-planner/internal/api"
	"github.com/nhle/agentic-planner/internal/inbox"
)

const shutdownTimeout = 10 * time.Second

func addServeCommand(parent *cobra.Command, rt *runtime) {
	var (
		addr      string
		withInbox bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the planning and progress API until interrupted.

Examples:
  planner serve                    # listen on server.addr from config
  planner serve --addr :9000       # override the listen address
  planner serve --inbox            # also poll the configured inbox`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = rt.cfg.Server.Addr
			}
			return runServe(cmd, rt, addr, withInbox)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().BoolVar(&withInbox, "inbox", false, "poll the configured inbox alongside the server")
	parent.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, rt *runtime, addr string, withInbox bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := rt.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := api.NewServer(a.Plans, a.Progress,
		api.WithLogger(rt.logger),
		api.WithAllowedOrigins(rt.cfg.Server.AllowedOrigins),
	).Handler()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var poller *inbox.Poller
	if withInbox {
		if poller, err = a.Poller(); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rt.logger.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		rt.logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if poller != nil {
		g.Go(func() error {
			return poller.Run(gctx)
		})
	}

	return g.Wait()
}
