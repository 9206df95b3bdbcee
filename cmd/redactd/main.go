package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	"github.com/wudi/redactkit/api"
	"github.com/wudi/redactkit/config"
	"github.com/wudi/redactkit/enhance"
	"github.com/wudi/redactkit/export"
	"github.com/wudi/redactkit/loader"
	"github.com/wudi/redactkit/observability"
	_ "github.com/wudi/redactkit/ocr/tesseract"
	"github.com/wudi/redactkit/session"
	"github.com/wudi/redactkit/settings"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	envFile := flag.String("env", ".env", "Environment file with REDACT_* variables")
	listen := flag.String("listen", "", "Listen address (overrides config)")
	root := flag.String("root", "", "Directory that documents and exports must live in")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, *configPath, *envFile, *listen, *root); err != nil {
		fmt.Fprintf(os.Stderr, "redactd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, envFile, listen, root string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}
	if root != "" {
		cfg.Server.Root = root
	}
	logger := cfg.Logger(os.Stderr)

	store, closeStore, err := cfg.SettingsStore()
	if err != nil {
		return err
	}
	defer closeStore()

	editor := session.New(
		session.WithSettings(settings.LoadOrDefault(store, logger)),
		session.WithLoader(loader.New(
			loader.WithScale(cfg.Scale),
			loader.WithEnhancement(enhance.NewPipeline(logger), cfg.Enhance),
			loader.WithLogger(logger),
			loader.WithTracer(cfg.Tracer(logger)),
		)),
		session.WithWorkStore(cfg.WorkStore(logger)),
		session.WithExporter(export.New(nil, logger).WithTracer(cfg.Tracer(logger))),
		session.WithLogger(logger),
	)
	handler := api.New(editor,
		api.WithRoot(cfg.Server.Root),
		api.WithSettingsStore(store),
		api.WithLogger(logger),
	)

	ln, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Listen, err)
	}
	if cfg.Server.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConns)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	logger.Info("listening",
		observability.String("addr", ln.Addr().String()),
		observability.String("root", cfg.Server.Root),
		observability.Int("max_conns", cfg.Server.MaxConns))

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", observability.Error("error", err))
	}
	if err := editor.Close(); err != nil {
		logger.Warn("auto-save on shutdown failed", observability.Error("error", err))
	}
	return nil
}
