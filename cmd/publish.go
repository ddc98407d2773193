package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jmehdipour/energymon/internal/config"
	"github.com/jmehdipour/energymon/internal/kafka"
	"github.com/jmehdipour/energymon/internal/logger"
	"github.com/jmehdipour/energymon/internal/model"
	"github.com/jmehdipour/energymon/internal/service/syncpub"
)

var (
	pubEntity   string
	pubAction   string
	pubID       string
	pubUsername string
	pubEmail    string
	pubName     string
	pubOwner    string
	pubMax      float64
)

// publishCmd publishes a single SyncEvent from flags. In production the
// owning user/device services publish these after their local commit; this
// command stands in for them in demos and smoke tests.
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a sync event (stand-in for the owning services)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.LogLevel)

		entityID, err := uuid.Parse(pubID)
		if err != nil {
			return fmt.Errorf("invalid --id: %w", err)
		}

		ev := model.SyncEvent{
			EntityType: model.EntityType(strings.ToUpper(pubEntity)),
			ActionType: model.ActionType(strings.ToUpper(pubAction)),
			EntityID:   entityID,
			Username:   pubUsername,
			Email:      pubEmail,
			DeviceName: pubName,
			Timestamp:  time.Now().UTC(),
		}
		if pubOwner != "" {
			owner, err := uuid.Parse(pubOwner)
			if err != nil {
				return fmt.Errorf("invalid --owner: %w", err)
			}
			ev.OwnerUserID = &owner
		}
		if cmd.Flags().Changed("max") {
			ev.MaxConsumption = &pubMax
		}

		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()

		pub := syncpub.New(producer, cfg.Topics.Sync)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := pub.Publish(ctx, ev); err != nil {
			return err
		}

		fmt.Printf(">> Published %s %s for %s\n", ev.EntityType, ev.ActionType, ev.EntityID)
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&pubEntity, "entity", "DEVICE", "entity type: USER | DEVICE")
	publishCmd.Flags().StringVar(&pubAction, "action", "CREATED", "action: CREATED | UPDATED | DELETED | ASSIGNED | UNASSIGNED")
	publishCmd.Flags().StringVar(&pubID, "id", "", "entity id (uuid)")
	publishCmd.Flags().StringVar(&pubUsername, "username", "", "username (USER events)")
	publishCmd.Flags().StringVar(&pubEmail, "email", "", "email (USER events)")
	publishCmd.Flags().StringVar(&pubName, "name", "", "device name (DEVICE events)")
	publishCmd.Flags().StringVar(&pubOwner, "owner", "", "owner user id (DEVICE events)")
	publishCmd.Flags().Float64Var(&pubMax, "max", 0, "max hourly consumption in kWh (DEVICE events)")
	_ = publishCmd.MarkFlagRequired("id")
}
