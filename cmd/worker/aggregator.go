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
	"github.com/jmehdipour/energymon/internal/service/aggregator"
	"github.com/jmehdipour/energymon/internal/service/notifier"
	"github.com/jmehdipour/energymon/internal/worker"
)

var aggQueueIndex int

var aggregatorCmd = &cobra.Command{
	Use:   "aggregator",
	Short: "Run a consumption aggregator replica",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.LogLevel)
		metrics.MustRegister(prometheus.DefaultRegisterer)

		if aggQueueIndex < 0 || aggQueueIndex >= len(cfg.Topics.ReplicaQueues) {
			return fmt.Errorf("queue index %d out of range, %d replica queues configured",
				aggQueueIndex, len(cfg.Topics.ReplicaQueues))
		}
		queue := cfg.Topics.ReplicaQueues[aggQueueIndex]

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

		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()

		notifierOpts := []notifier.Option{}

		// Alert history in ClickHouse is reporting sugar: skip it when the
		// store is unreachable rather than refusing to aggregate.
		if chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
			DSN:         cfg.ClickHouse.DSN,
			PingTimeout: cfg.ClickHouse.PingTimeout,
		}); err != nil {
			log.Printf("[aggregator] clickhouse unavailable, alert history disabled: %v", err)
		} else {
			defer chDB.Close()
			notifierOpts = append(notifierOpts, notifier.WithHistory(repository.NewCHAlertsRepository(chDB)))
		}

		if cfg.Alerts.Cooldown > 0 {
			rdb, err := db.NewRedisClient(db.RedisOpts{
				Addr:        cfg.Redis.Addr,
				Password:    cfg.Redis.Password,
				DB:          cfg.Redis.DB,
				DialTimeout: cfg.Redis.DialTimeout,
			})
			if err != nil {
				return fmt.Errorf("redis connect (alert cooldown enabled): %w", err)
			}
			defer func() { _ = rdb.Close() }()
			notifierOpts = append(notifierOpts, notifier.WithCooldown(rdb, cfg.Alerts.Cooldown))
		}

		alerts := notifier.New(producer, cfg.Topics.Notifications, notifierOpts...)

		svc := aggregator.New(
			repository.NewHourlyConsumptionRepository(dbx),
			repository.NewSyncedDevicesRepository(dbx),
			alerts,
		)

		groupID := cfg.Kafka.GroupID
		if groupID == "" {
			groupID = "energymon"
		}
		groupID = fmt.Sprintf("%s-aggregator-%d", groupID, aggQueueIndex)

		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          queue,
			GroupID:        groupID,
			MinBytes:       cfg.Kafka.MinBytes,
			MaxBytes:       cfg.Kafka.MaxBytes,
			CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
		})
		defer consumer.Close()

		workers := cfg.Worker.Count
		if workers <= 0 {
			workers = 16
		}

		loop := &worker.Loop{
			Name:     fmt.Sprintf("aggregator-%d", aggQueueIndex),
			Consumer: consumer,
			Handler:  worker.NewAggregatorHandler(fmt.Sprintf("aggregator-%d", aggQueueIndex), svc),
			Workers:  workers,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf(">> aggregator started queue=%s group=%s workers=%d", queue, groupID, workers)

		return loop.Run(ctx)
	},
}

func init() {
	aggregatorCmd.Flags().IntVar(&aggQueueIndex, "queue", 0, "replica queue index this instance consumes")
}
