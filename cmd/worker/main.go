package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cfg "github.com/feichai0017/slide-deidentifier/config"
	"github.com/feichai0017/slide-deidentifier/internal/service/slide"
	"github.com/feichai0017/slide-deidentifier/pkg/logger"
	"github.com/feichai0017/slide-deidentifier/pkg/worker"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	serviceCfg, err := cfg.LoadServiceConfig(os.Getenv("DEID_CONFIG"))
	if err != nil {
		log.Error("Failed to load config", logger.Error(err))
		os.Exit(1)
	}

	slideService, err := slide.GetService(log, serviceCfg)
	if err != nil {
		log.Error("Failed to create slide service", logger.Error(err))
		os.Exit(1)
	}

	redisCfg := cfg.GetRedisConfig()
	workerCfg := &worker.Config{
		RedisAddr:     redisCfg.Addr,
		RedisPassword: redisCfg.Password,
		RedisDB:       redisCfg.DB,
		Concurrency:   serviceCfg.Worker.Concurrency,
		Queues:        serviceCfg.Worker.Queues,
	}

	slideWorker, err := worker.NewSlideWorker(workerCfg, slideService, log)
	if err != nil {
		log.Error("Failed to create slide worker", logger.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := slideWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	slideWorker.Stop()
	log.Info("Worker stopped")
}
