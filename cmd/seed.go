package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jmehdipour/energymon/internal/config"
	"github.com/jmehdipour/energymon/internal/db"
	"github.com/jmehdipour/energymon/internal/model"
	"github.com/jmehdipour/energymon/internal/repository"
)

// Deterministic demo ids, aligned with simulator.device_id in defaults.yaml.
var (
	seedUserID    = uuid.MustParse("9a7f8e46-2f0f-4a4b-b1de-31337f00aa01")
	seedDeviceIDs = []uuid.UUID{
		uuid.MustParse("6b1c6ff6-65e7-4f9e-9f3b-0f2f2f6f2a10"),
		uuid.MustParse("6b1c6ff6-65e7-4f9e-9f3b-0f2f2f6f2a11"),
		uuid.MustParse("6b1c6ff6-65e7-4f9e-9f3b-0f2f2f6f2a12"),
	}
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the replica with demo synced users and devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo replica rows...")

		ctx := context.Background()
		now := time.Now().UTC()

		users := repository.NewSyncedUsersRepository(sqlDB)
		if err := users.Save(ctx, &model.SyncedUser{
			ID:           seedUserID,
			Username:     "demo",
			Email:        "demo@example.com",
			LastSyncTime: now,
		}); err != nil {
			return fmt.Errorf("seed user: %w", err)
		}

		devices := repository.NewSyncedDevicesRepository(sqlDB)
		limits := []*float64{floatptr(5.0), floatptr(3.0), nil} // third device has no limit
		for i, id := range seedDeviceIDs {
			owner := seedUserID
			d := &model.SyncedDevice{
				ID:             id,
				Name:           fmt.Sprintf("Demo Meter %d", i+1),
				OwnerUserID:    &owner,
				MaxConsumption: limits[i],
				LastSyncTime:   now,
			}
			if err := devices.Save(ctx, d); err != nil {
				return fmt.Errorf("seed device %s: %w", id, err)
			}
		}

		log.Println(">> Seed completed")
		return nil
	},
}

func floatptr(f float64) *float64 { return &f }
