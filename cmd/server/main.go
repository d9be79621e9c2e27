package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/slide-deidentifier/api/handlers"
	"github.com/feichai0017/slide-deidentifier/api/routes"
	cfg "github.com/feichai0017/slide-deidentifier/config"
	"github.com/feichai0017/slide-deidentifier/internal/service/slide"
	"github.com/feichai0017/slide-deidentifier/pkg/logger"
)

func main() {
	// init logger
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/server.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	serviceCfg, err := cfg.LoadServiceConfig(os.Getenv("DEID_CONFIG"))
	if err != nil {
		log.Fatal("Failed to load config:", logger.Error(err))
	}

	// init slide service
	slideService, err := slide.GetService(log, serviceCfg)
	if err != nil {
		log.Fatal("Failed to get slide service:", logger.Error(err))
	}

	// init handlers
	h := handlers.NewHandlers(slideService, log)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, h)

	srv := &http.Server{
		Addr:    serviceCfg.Server.Addr,
		Handler: r,
	}

	// start server
	go func() {
		log.Info("Server starting", logger.String("addr", serviceCfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error:", logger.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serviceCfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown:", logger.Error(err))
	}
}
