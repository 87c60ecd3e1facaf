package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/koyomi-dev/koyomi/internal/logging"
	"github.com/koyomi-dev/koyomi/internal/server"
	"github.com/koyomi-dev/koyomi/internal/store"
)

func serveCmd() *cobra.Command {
	var addr string
	var noAWS bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger := logging.New("serve")

			var remote server.Remote
			if !noAWS {
				client, err := newRemote(cmd.Context(), cfg, logger)
				if err != nil {
					return err
				}
				remote = client
			}

			snapshots, err := store.Open(cfg.StorePath, logger)
			if err != nil {
				return err
			}

			srv := server.New(server.Config{
				ListenAddr:      cfg.Server.Addr,
				RefreshSchedule: cfg.Server.RefreshSchedule,
				Logger:          logger,
			}, newHolidayProvider(cfg, logger), remote, snapshots)
			defer srv.Close()

			if err := srv.Start(); err != nil {
				return err
			}

			httpServer := srv.HTTPServer()
			errCh := make(chan error, 1)
			go func() {
				errCh <- httpServer.ListenAndServe()
			}()
			logger.Info("server listening", logging.Field{Key: "addr", Value: cfg.Server.Addr})

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case sig := <-sigCh:
				fmt.Fprintf(cmd.ErrOrStderr(), "received %s, shutting down\n", sig)
				ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				return httpServer.Shutdown(ctx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&noAWS, "no-aws", false, "run without the AWS client (local endpoints only)")
	return cmd
}
