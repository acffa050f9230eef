package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/handlers"
	"github.com/ledgerlens/defi-insight/internal/middleware"
	"github.com/ledgerlens/defi-insight/internal/orchestrator"
)

const shutdownTimeout = 15 * time.Second

var (
	apiCmd = &cobra.Command{
		Use:   "api",
		Short: "Serve the job and classification API",
		Long:  "Serve the HTTP API that starts wallet export jobs, reports their progress and serves the resulting files",
		Run: func(cmd *cobra.Command, args []string) {
			RunApi(cmd, args)
		},
	}
)

func RunApi(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigChan
		log.Info().Msgf("Received signal %v, initiating graceful shutdown", sig)
		cancel()
	}()

	svc, err := newServices(ctx, &config.Cfg, true)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer svc.Close()
	for network, err := range svc.rpc.Verify(ctx) {
		log.Warn().Err(err).Str("network", network).Msg("RPC endpoint check failed, the explorer path is still used")
	}

	if err := svc.migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate storage")
	}

	manager := svc.manager()
	defer manager.Shutdown()
	go manager.StartJanitor(ctx, orchestrator.DEFAULT_JANITOR_INTERVAL)

	if config.Cfg.Log.Level != "debug" && config.Cfg.Log.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Logger())
	r.Use(gin.Recovery())

	handlers.New(manager, svc.classifier, svc.storage, svc.networks()).Register(r, handlers.BasicAuth{
		Username: config.Cfg.API.BasicAuth.Username,
		Password: config.Cfg.API.BasicAuth.Password,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Cfg.API.Host, config.Cfg.API.Port),
		Handler: r,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("API server shutdown failed")
		}
	}()

	log.Info().Str("addr", srv.Addr).Msg("Starting API server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("API server error")
	}
	log.Info().Msg("API server stopped")
}
