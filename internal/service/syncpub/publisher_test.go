package syncpub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/energymon/internal/model"
)

type capturingProducer struct {
	topics   []string
	keys     []string
	payloads [][]byte
	err      error
}

func (p *capturingProducer) Publish(_ context.Context, topic string, key, value []byte) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, string(key))
	p.payloads = append(p.payloads, value)
	return nil
}

func TestPublish_KeyedByEntityID(t *testing.T) {
	prod := &capturingProducer{}
	pub := New(prod, "energymon.sync")

	entityID := uuid.New()
	require.NoError(t, pub.Publish(context.Background(), model.SyncEvent{
		EntityType: model.EntityTypeUser,
		ActionType: model.ActionCreated,
		EntityID:   entityID,
		Username:   "alice",
		Email:      "alice@example.com",
		Timestamp:  time.Now().UTC(),
	}))

	require.Len(t, prod.payloads, 1)
	assert.Equal(t, "energymon.sync", prod.topics[0])
	assert.Equal(t, entityID.String(), prod.keys[0])
}

func TestPublish_WireFieldNames(t *testing.T) {
	prod := &capturingProducer{}
	pub := New(prod, "energymon.sync")

	ownerID := uuid.New()
	max := 3.5
	require.NoError(t, pub.Publish(context.Background(), model.SyncEvent{
		EntityType:     model.EntityTypeDevice,
		ActionType:     model.ActionUpdated,
		EntityID:       uuid.New(),
		DeviceName:     "heat-pump",
		OwnerUserID:    &ownerID,
		MaxConsumption: &max,
		Timestamp:      time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
	}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(prod.payloads[0], &got))
	assert.Equal(t, "DEVICE", got["entityType"])
	assert.Equal(t, "UPDATED", got["actionType"])
	assert.Equal(t, "heat-pump", got["deviceName"])
	assert.Equal(t, ownerID.String(), got["ownerUserId"])
	assert.InDelta(t, 3.5, got["maxConsumption"].(float64), 1e-9)
	assert.Contains(t, got, "timestamp")
}

func TestPublish_RejectsInvalidEvent(t *testing.T) {
	prod := &capturingProducer{}
	pub := New(prod, "energymon.sync")

	err := pub.Publish(context.Background(), model.SyncEvent{
		EntityType: "GATEWAY",
		ActionType: model.ActionCreated,
		EntityID:   uuid.New(),
	})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	err = pub.Publish(context.Background(), model.SyncEvent{
		EntityType: model.EntityTypeUser,
		ActionType: "REBOOTED",
		EntityID:   uuid.New(),
	})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	assert.Empty(t, prod.payloads)
}

func TestPublish_ProducerFailureSurfaces(t *testing.T) {
	prod := &capturingProducer{err: errors.New("kafka down")}
	pub := New(prod, "energymon.sync")

	err := pub.Publish(context.Background(), model.SyncEvent{
		EntityType: model.EntityTypeUser,
		ActionType: model.ActionDeleted,
		EntityID:   uuid.New(),
		Timestamp:  time.Now(),
	})
	assert.Error(t, err)
}
