package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hanpama/typegraph/internal/config"
	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/logging"
	"github.com/hanpama/typegraph/internal/mapping"
	"github.com/hanpama/typegraph/internal/otel"
	"github.com/hanpama/typegraph/internal/server"
)

const shutdownGrace = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		configFile string
		addr       string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the schema over HTTP",
		Long: `Serve the schema over HTTP. Settings come from the YAML file given with
--config; flags given on the command line take precedence over it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if !cmd.Flags().Changed("log-level") && !cmd.Flags().Changed("log-format") {
				if a.log, err = logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			return a.serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to the YAML configuration file")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, overriding the configuration")
	return cmd
}

func (a *app) serve(ctx context.Context, cfg *config.Config) error {
	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(cfg.Telemetry.Endpoint, cfg.Telemetry.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	h, err := a.handler(cfg)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	a.log.WithFields(logrus.Fields{
		"addr": cfg.Server.Addr,
		"path": cfg.Server.Path,
	}).Info("GraphQL server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	a.log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handler builds the schema and mounts it at the configured path.
func (a *app) handler(cfg *config.Config) (http.Handler, error) {
	built, err := a.build(mapping.WithIntrospection(cfg.Server.Introspection))
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	opts := []server.Option{
		server.WithLogger(a.log),
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(cfg.Server.CORS) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORS...))
	}
	if len(cfg.Server.ForwardHeaders) > 0 {
		opts = append(opts, server.WithMetadataHeaders(cfg.Server.ForwardHeaders...))
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.Path, server.New(built, opts...))
	return mux, nil
}
