package worker

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

	"github.com/jmehdipour/energymon/internal/config"
	"github.com/jmehdipour/energymon/internal/db"
	"github.com/jmehdipour/energymon/internal/kafka"
	"github.com/jmehdipour/energymon/internal/logger"
	"github.com/jmehdipour/energymon/internal/metrics"
	"github.com/jmehdipour/energymon/internal/repository"
	"github.com/jmehdipour/energymon/internal/service/replica"
	"github.com/jmehdipour/energymon/internal/worker"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Start sync consumer (user | device)",
}

var syncUserCmd = &cobra.Command{
	Use:   "user",
	Short: "Run the user replica sync consumer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, "user")
	},
}

var syncDeviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Run the device replica sync consumer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, "device")
	},
}

func init() {
	syncCmd.AddCommand(syncUserCmd)
	syncCmd.AddCommand(syncDeviceCmd)
}

func runSync(cmd *cobra.Command, entity string) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.LogLevel)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
		PingTimeout:     cfg.MySQL.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	defer dbx.Close()

	var handler worker.HandlerFunc
	switch entity {
	case "user":
		handler = worker.NewSyncHandler("user", replica.NewUserSync(repository.NewSyncedUsersRepository(dbx)))
	case "device":
		handler = worker.NewSyncHandler("device", replica.NewDeviceSync(repository.NewSyncedDevicesRepository(dbx)))
	}

	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "energymon"
	}
	// Separate groups so USER and DEVICE consumers each see the full topic.
	groupID = groupID + "-sync-" + entity

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Topics.Sync,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	loop := &worker.Loop{
		Name:     "sync-" + entity,
		Consumer: consumer,
		Handler:  handler,
		// Single processor: keeps partition order, which is the per-entity
		// apply order (the sync topic is keyed by entity id).
		Workers: 1,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf(">> sync consumer started entity=%s topic=%s group=%s", entity, cfg.Topics.Sync, groupID)

	return loop.Run(ctx)
}
