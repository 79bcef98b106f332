package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arcade_bot/internal/config"
	"arcade_bot/internal/db"
	"arcade_bot/internal/logger"
	"arcade_bot/internal/service"
	"arcade_bot/internal/session"
	"arcade_bot/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version устанавливается при сборке
var Version = "dev"

func main() {
	cfg := config.Load()

	// Инициализация структурированного логгера
	logger.Init(cfg.LogLevel, cfg.LogFormat == "json")
	log := logger.Get()

	// Хранилище снапшотов: redis если настроен, иначе память процесса
	var snapStore store.SnapshotStore
	if cfg.RedisAddr != "" {
		rs, err := store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("подключение к redis не удалось", "error", err)
		}
		snapStore = rs
		log.Info("хранилище снапшотов: redis", "addr", cfg.RedisAddr)
	} else {
		snapStore = store.NewMemoryStore()
		log.Warn("REDIS_ADDR не задан, снапшоты живут только в памяти процесса")
	}

	registry := session.NewRegistry(snapStore)

	// История матчей пишется в postgres, если база настроена
	if cfg.DatabaseURL != "" {
		dbPool := db.Connect(cfg.DatabaseURL)
		defer dbPool.Close()

		matches := service.NewMatchService(dbPool)
		registry.OnSettle(matches.Settle)
		log.Info("история матчей включена")
	} else {
		log.Warn("DATABASE_URL не задан, итоги матчей не сохраняются")
	}

	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"version":  Version,
			"sessions": registry.Count(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		log.Info("server started", "port", cfg.AppPort, "version", Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
