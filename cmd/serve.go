package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/atelierdevis/devis-gateway/internal/config"
	"github.com/atelierdevis/devis-gateway/internal/db"
	"github.com/atelierdevis/devis-gateway/internal/events"
	httpSrv "github.com/atelierdevis/devis-gateway/internal/http"
	"github.com/atelierdevis/devis-gateway/internal/logger"
	"github.com/atelierdevis/devis-gateway/internal/mailer"
	"github.com/atelierdevis/devis-gateway/internal/metrics"
	"github.com/atelierdevis/devis-gateway/internal/repository"
	"github.com/atelierdevis/devis-gateway/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)
		defer logger.Sync()

		mysqlDB, err := db.NewMySQL(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		redisClient, err := db.NewRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		store, err := storage.NewS3(cmd.Context(), cfg.Storage)
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}

		notifier, err := mailer.New(cfg.Mail)
		if err != nil {
			return fmt.Errorf("mail relay: %w", err)
		}

		publisher := events.NewPublisher(cfg.Kafka)
		defer func() { _ = publisher.Close() }()

		metrics.MustRegister(prometheus.DefaultRegisterer)

		server := httpSrv.NewServer(
			cfg,
			repository.NewOrdersRepository(mysqlDB),
			redisClient,
			store,
			notifier,
			publisher,
		)

		errCh := make(chan error, 1)
		go func() {
			log.Printf("starting http on %s", cfg.HTTP.Addr)
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Printf("signal received: %s, shutting down...", sig)
		case err := <-errCh:
			if err != nil {
				log.Printf("http server exited: %v", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
