package model

import (
	"time"

	"github.com/google/uuid"
)

type EntityType string

const (
	EntityTypeUser   EntityType = "USER"
	EntityTypeDevice EntityType = "DEVICE"
)

func (t EntityType) String() string { return string(t) }

func (t EntityType) Valid() bool {
	return t == EntityTypeUser || t == EntityTypeDevice
}

type ActionType string

const (
	ActionCreated    ActionType = "CREATED"
	ActionUpdated    ActionType = "UPDATED"
	ActionDeleted    ActionType = "DELETED"
	ActionAssigned   ActionType = "ASSIGNED"
	ActionUnassigned ActionType = "UNASSIGNED"
)

func (a ActionType) String() string { return string(a) }

func (a ActionType) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted, ActionAssigned, ActionUnassigned:
		return true
	}
	return false
}

// SyncEvent is the change notification published on the sync topic by the
// owning services. USER and DEVICE events share one channel; exactly one of
// the two payload shapes is populated, selected by EntityType. Unknown fields
// on the wire are ignored so producers can evolve independently.
type SyncEvent struct {
	EntityType EntityType `json:"entityType"`
	ActionType ActionType `json:"actionType"`
	EntityID   uuid.UUID  `json:"entityId"`

	// USER payload
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`

	// DEVICE payload
	DeviceName     string     `json:"deviceName,omitempty"`
	OwnerUserID    *uuid.UUID `json:"ownerUserId,omitempty"`
	MaxConsumption *float64   `json:"maxConsumption,omitempty"`

	// Origin-assigned. Not monotonic per entity across redelivery.
	Timestamp time.Time `json:"timestamp"`
}
