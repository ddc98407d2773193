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
	"github.com/jmehdipour/energymon/internal/kafka"
	"github.com/jmehdipour/energymon/internal/logger"
	"github.com/jmehdipour/energymon/internal/metrics"
	"github.com/jmehdipour/energymon/internal/service/balancer"
	"github.com/jmehdipour/energymon/internal/worker"
)

var balancerCmd = &cobra.Command{
	Use:   "balancer",
	Short: "Run the measurement load balancer (round-robin fan-out)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.LogLevel)
		metrics.MustRegister(prometheus.DefaultRegisterer)

		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()

		bal, err := balancer.New(producer, cfg.Topics.ReplicaQueues)
		if err != nil {
			return err
		}

		groupID := cfg.Kafka.GroupID
		if groupID == "" {
			groupID = "energymon"
		}
		groupID = groupID + "-balancer"

		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          cfg.Topics.Measurements,
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
			Name:     "balancer",
			Consumer: consumer,
			Handler:  worker.NewBalancerHandler(bal),
			Workers:  workers,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf(">> balancer started inbound=%s queues=%v workers=%d",
			cfg.Topics.Measurements, bal.Queues(), workers)

		return loop.Run(ctx)
	},
}
