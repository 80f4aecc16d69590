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

	"github.com/gin-gonic/gin"

	"github.com/LJTian/TrendRadar/internal/api"
	"github.com/LJTian/TrendRadar/internal/app"
	"github.com/LJTian/TrendRadar/internal/config"
	"github.com/LJTian/TrendRadar/internal/logging"
)

func main() {
	logging.Init(logging.FromEnv())
	if err := run(); err != nil {
		log := logging.Named("main")
		log.Error().Err(err).Msg("api exit")
		os.Exit(1)
	}
}

// run 返回前总会停止调度并关闭存储
func run() error {
	log := logging.Named("main")
	cfg := config.Load()

	ctx, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer ctx.Close()

	gin.SetMode(gin.ReleaseMode)
	apiServer := api.NewServer(ctx.News, logging.Named("api"))
	if cfg.EnableCrawler {
		ctx.Scheduler.Start()
		apiServer.WithRefresher(ctx.Scheduler)
	} else {
		log.Warn().Msg("crawler disabled, serving stored data only")
	}
	r := api.NewEngine(apiServer, logging.Named("http"), cfg.BasicAuthUser, cfg.BasicAuthPass)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting api server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
