package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ferremas-app/ferremas-backend/config"
	"github.com/ferremas-app/ferremas-backend/internal/bootstrap"
	"github.com/ferremas-app/ferremas-backend/internal/jobs"
	"github.com/ferremas-app/ferremas-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Environment, cfg.App.LogLevel)
	defer log.Sync()

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clients, err := bootstrap.InitClients(ctx, &cfg.Firebase)
	if err != nil {
		log.Fatal("inicialización de firebase fallida", zap.Error(err))
	}
	defer clients.Close()

	rdb, err := bootstrap.OpenRedis(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal("conexión a redis fallida", zap.Error(err))
	}
	defer rdb.Close()

	app := bootstrap.Build(cfg, log, clients, rdb)

	go app.Processor.Run(ctx)

	scheduler := jobs.NewScheduler(app.Cola, app.Reportes, log)
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: app.Router,
	}

	go func() {
		log.Info("servidor escuchando", zap.String("puerto", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("servidor caído", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("apagando servidor")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("apagado forzado", zap.Error(err))
		os.Exit(1)
	}
}
