package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"wealthtracker/internal/app/client"
	"wealthtracker/internal/app/client/config"
	"wealthtracker/internal/app/server/api"
	serverconfig "wealthtracker/internal/app/server/config"
	"wealthtracker/internal/utils/logger"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.MustLoad()
	srvCfg := serverconfig.MustLoad()
	log := logger.NewWithFile(cfg.Env, cfg.LogFile)

	app, err := client.New(cfg, log)
	if err != nil {
		log.Error("failed to create storage", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Init(ctx); err != nil {
		log.Error("failed to init storage", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              srvCfg.Server.RunAddress,
		Handler:           api.New(app.Storage(), srvCfg.Auth.Token, prometheus.DefaultGatherer, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("storage API listening", "address", srvCfg.Server.RunAddress, "auth", srvCfg.Auth.Token != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}
	app.Shutdown()
}
