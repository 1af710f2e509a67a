package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zereker/stomp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := newLogger(cfg.logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("feed stopped")
	}
	logger.Info().Msg("feed stopped")
}

func newLogger(level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", "pushport").Logger()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		logger.Warn().Str("level", level).Msg("unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}

// run connects, subscribes and writes every message to out, one per line, until
// the feed ends or ctx is done.
func run(ctx context.Context, cfg config, logger zerolog.Logger, out io.Writer) error {
	metrics := stomp.NewMetrics("pushport")
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		return err
	}

	opts := []stomp.Option{
		stomp.LoggerOption(stomp.NewZerologLogger(logger)),
		stomp.MetricsOption(metrics),
		stomp.HandshakeTimeoutOption(cfg.handshakeTimeout),
		stomp.MaxFrameSizeOption(cfg.maxFrameSize),
	}

	conn, err := dial(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Subscribe(cfg.topic); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, child := errgroup.WithContext(ctx)

	if cfg.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: cfg.metricsAddr, Handler: mux}

		group.Go(func() error {
			logger.Info().Str("addr", cfg.metricsAddr).Msg("serving metrics")
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-child.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return server.Shutdown(shutdownCtx)
		})
	}

	group.Go(func() error {
		defer cancel()
		return conn.Run(child, func(message string) error {
			_, err := fmt.Fprintln(out, message)
			return err
		})
	})

	return group.Wait()
}

func dial(ctx context.Context, cfg config, opts []stomp.Option) (*stomp.Conn, error) {
	creds := stomp.Credentials{Login: cfg.login, Passcode: cfg.passcode}

	if cfg.url != "" {
		return stomp.DialWebSocket(ctx, cfg.url, creds, opts...)
	}
	if cfg.tls {
		opts = append(opts, stomp.TLSConfigOption(&tls.Config{ServerName: cfg.host}))
	}
	return stomp.Connect(ctx, cfg.host, cfg.port, creds, opts...)
}
