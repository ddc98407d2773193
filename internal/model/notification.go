package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationMessage is published on the notification topic, one per
// threshold breach. Consumed by the real-time delivery service.
type NotificationMessage struct {
	UserID   *uuid.UUID `json:"userId"`
	DeviceID uuid.UUID  `json:"deviceId"`
	Message  string     `json:"message"`
}

// AlertRecord is the alert-history row kept in ClickHouse for reporting.
type AlertRecord struct {
	ID               string    `db:"id"` // ULID
	UserID           string    `db:"user_id"`
	DeviceID         string    `db:"device_id"`
	Message          string    `db:"message"`
	TotalConsumption float64   `db:"total_consumption"`
	MaxConsumption   float64   `db:"max_consumption"`
	CreatedAt        time.Time `db:"created_at"`
}
