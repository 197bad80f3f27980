package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/zoomify/internal/adapters/http"
	"github.com/dkeye/zoomify/internal/adapters/rtc"
	"github.com/dkeye/zoomify/internal/adapters/signature"
	"github.com/dkeye/zoomify/internal/adapters/vendorimpl/loopback"
	"github.com/dkeye/zoomify/internal/app"
	"github.com/dkeye/zoomify/internal/app/orch"
	"github.com/dkeye/zoomify/internal/config"
	"github.com/dkeye/zoomify/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.ApplyLogLevel(cfg.LogLevel)

	var signatures core.SignatureSource
	if cfg.Signature.Endpoint != "" {
		signatures = signature.NewClient(cfg.Signature.Endpoint, cfg.Signature.Timeout)
	}

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Vendors: loopback.Factory{Opts: loopback.Options{
			MultipleVideos: cfg.Vendor.MultipleVideos,
			RTC:            rtc.Config(cfg.Vendor.ICEServers),
		}},
		Signatures: signatures,
		Settings: orch.Settings{
			Defaults:  cfg.Meeting.Args(),
			Locale:    cfg.Vendor.Locale,
			AssetBase: cfg.Vendor.AssetBase,
			Grace:     cfg.Session.Grace,
		},
	}

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Zoomify server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		o.Shutdown()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}
