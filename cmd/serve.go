package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tlsutil "github.com/opd-ai/storyverse/srv/tls"
	"github.com/opd-ai/storyverse/srv/ui"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr   string
		useTLS bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the story writer in the browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(opts, "")
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			engine, illustrator, err := a.collaborators(ctx)
			if err != nil {
				return err
			}
			storyUI, err := ui.NewStoryUI(a.cfg, engine, illustrator, a.logger)
			if err != nil {
				return err
			}

			if addr == "" {
				addr = a.cfg.Addr
			}
			server := tlsutil.NewServer(addr, storyUI)

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("server starting", zap.String("addr", addr), zap.Bool("tls", useTLS))
				if useTLS {
					errCh <- tlsutil.ListenAndServeTLS(server, a.cfg.CertFile, a.cfg.KeyFile)
				} else {
					errCh <- server.ListenAndServe()
				}
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				a.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to ADDR)")
	cmd.Flags().BoolVar(&useTLS, "tls", false, "serve HTTPS, generating a self-signed certificate if needed")
	return cmd
}
