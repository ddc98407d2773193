package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jmehdipour/energymon/internal/config"
	"github.com/jmehdipour/energymon/internal/kafka"
	"github.com/jmehdipour/energymon/internal/logger"
	"github.com/jmehdipour/energymon/internal/service/simulator"
)

var (
	simDeviceID    string
	simSeedFullDay bool
	simTestValue   float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the device simulator (periodic measurements)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.LogLevel)

		idStr := simDeviceID
		if idStr == "" {
			idStr = cfg.Simulator.DeviceID
		}
		deviceID, err := uuid.Parse(idStr)
		if err != nil {
			return fmt.Errorf("invalid device id %q: %w", idStr, err)
		}

		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()

		sim := simulator.New(
			producer,
			cfg.Topics.Measurements,
			deviceID,
			cfg.Simulator.BaseLoad,
			cfg.Simulator.Interval,
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("test-value") {
			return sim.SendTest(ctx, simTestValue)
		}

		if simSeedFullDay {
			if err := sim.SeedFullDay(ctx, time.Now().UTC()); err != nil {
				return err
			}
		}

		log.Printf(">> simulator started device=%s topic=%s interval=%s",
			deviceID, cfg.Topics.Measurements, cfg.Simulator.Interval)

		if err := sim.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simDeviceID, "device", "", "device id (uuid), defaults to simulator.device_id from config")
	simulateCmd.Flags().BoolVar(&simSeedFullDay, "seed-full-day", false, "backfill a full day of measurements before starting")
	simulateCmd.Flags().Float64Var(&simTestValue, "test-value", 0, "send a single measurement with this value and exit")
}
