package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gabrielmiguelok/stepform/client"
	"github.com/gabrielmiguelok/stepform/internal/config"
	"github.com/gabrielmiguelok/stepform/internal/signup"
	"github.com/gabrielmiguelok/stepform/pkg/health"
	"github.com/gabrielmiguelok/stepform/pkg/logging"
	"github.com/gabrielmiguelok/stepform/pkg/metrics"
	"github.com/gabrielmiguelok/stepform/pkg/protocol"
	"github.com/gabrielmiguelok/stepform/pkg/router"
	"github.com/gabrielmiguelok/stepform/pkg/transport"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the wizard over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			handler, err := newServer(cfg, logger)
			if err != nil {
				return err
			}
			return serve(ctx, cfg, handler, logger)
		},
	}

	f := cmd.Flags()
	f.StringP("addr", "a", ":3000", "address to listen on")
	f.String("codec", "json", "wire codec: json or msgpack")
	f.StringSlice("allowed-origins", nil, "extra WebSocket origins to accept")
	f.Bool("insecure-dev-mode", false, "disable WebSocket origin checks")
	f.Int("max-sessions", 0, "live sessions before /readyz reports unready (0 is unlimited)")
	return cmd
}

// newServer wires the wizard component, metrics and client assets into a
// router.
func newServer(cfg *config.Config, logger logging.Logger) (*router.Router, error) {
	def, err := loadDefinition(cfg)
	if err != nil {
		return nil, err
	}
	steps, _, err := def.Build()
	if err != nil {
		return nil, err
	}
	codec, err := protocol.CodecFor(cfg.Codec)
	if err != nil {
		return nil, err
	}
	if codec.Name() != (protocol.JSONCodec{}).Name() {
		logger.Warn("the bundled browser client only speaks json; pages served at / will not connect",
			logging.String("codec", codec.Name()))
	}

	collector := metrics.New("stepform")
	factory, err := signup.Factory(signup.Config{
		Definition: def,
		Sink:       signup.LogSink(logger),
		Hooks:      collector.Hooks(steps),
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	tc := transport.DefaultConfig()
	tc.ReadTimeout = cfg.Timeouts.Read
	tc.WriteTimeout = cfg.Timeouts.Write
	tc.AllowedOrigins = cfg.AllowedOrigins
	tc.InsecureDevMode = cfg.InsecureDevMode

	r := router.New(
		router.WithCodec(codec),
		router.WithTransportConfig(tc),
		router.WithTimeouts(router.Timeouts{Mount: cfg.Timeouts.Mount, Event: cfg.Timeouts.Event}),
		router.WithLogger(logger),
		router.WithSessionObserver(collector.SetLiveSessions),
		router.WithEventObserver(collector.ObserveEvent),
	)
	r.Live("/", factory)
	r.Handle("/_live/*", http.StripPrefix("/_live/", client.Handler()))
	r.Handle("/metrics", collector.Handler())

	checker := health.NewChecker(version)
	checker.AddCritical("sessions", health.SessionCapacity(r.Sessions().Count, cfg.MaxSessions), 0)
	r.Handle("/livez", checker.LivenessHandler())
	r.Handle("/readyz", checker.ReadinessHandler())
	return r, nil
}

// serve runs the HTTP server until ctx is cancelled, then drains live
// sessions and in-flight requests within the shutdown timeout.
func serve(ctx context.Context, cfg *config.Config, r *router.Router, logger logging.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: cfg.Timeouts.Write,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", logging.String("addr", cfg.Addr), logging.String("codec", cfg.Codec))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", logging.Duration("timeout", cfg.Timeouts.Shutdown))

		sctx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
		defer cancel()
		if err := r.Shutdown(sctx); err != nil {
			logger.Warn("live sessions did not close in time", logging.Err(err))
		}
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
