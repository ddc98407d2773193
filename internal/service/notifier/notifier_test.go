package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

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

type memHistory struct {
	records []model.AlertRecord
	err     error
}

func (m *memHistory) Insert(_ context.Context, rec model.AlertRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memHistory) ListByDevice(_ context.Context, deviceID string, _, _ int) ([]model.AlertRecord, error) {
	var out []model.AlertRecord
	for _, r := range m.records {
		if deviceID == "" || r.DeviceID == deviceID {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestNotify_WireFormat(t *testing.T) {
	prod := &capturingProducer{}
	n := New(prod, "energymon.notifications")

	userID := uuid.New()
	deviceID := uuid.New()
	alert := Alert{
		UserID:   &userID,
		DeviceID: deviceID,
		Message:  "High energy usage detected for 'heat-pump'! Current: 5.30 kWh (Limit: 5.00 kWh)",
		Total:    5.3,
		Limit:    5.0,
	}
	require.NoError(t, n.Notify(context.Background(), alert))

	require.Len(t, prod.payloads, 1)
	assert.Equal(t, "energymon.notifications", prod.topics[0])
	assert.Equal(t, deviceID.String(), prod.keys[0])

	var got map[string]any
	require.NoError(t, json.Unmarshal(prod.payloads[0], &got))
	assert.Equal(t, userID.String(), got["userId"])
	assert.Equal(t, deviceID.String(), got["deviceId"])
	assert.Equal(t, alert.Message, got["message"])
}

func TestNotify_NilUserStillPublishes(t *testing.T) {
	prod := &capturingProducer{}
	n := New(prod, "energymon.notifications")

	deviceID := uuid.New()
	require.NoError(t, n.Notify(context.Background(), Alert{DeviceID: deviceID, Message: "m"}))

	var decoded model.NotificationMessage
	require.NoError(t, json.Unmarshal(prod.payloads[0], &decoded))
	assert.Nil(t, decoded.UserID)
	assert.Equal(t, deviceID, decoded.DeviceID)
}

func TestNotify_NoSuppressionByDefault(t *testing.T) {
	prod := &capturingProducer{}
	n := New(prod, "energymon.notifications")

	alert := Alert{DeviceID: uuid.New(), Message: "over again"}
	require.NoError(t, n.Notify(context.Background(), alert))
	require.NoError(t, n.Notify(context.Background(), alert))

	// Consecutive breaches alert every time unless a cooldown is configured.
	assert.Len(t, prod.payloads, 2)
}

func TestNotify_PublishFailureSurfaces(t *testing.T) {
	prod := &capturingProducer{err: errors.New("kafka down")}
	hist := &memHistory{}
	n := New(prod, "energymon.notifications", WithHistory(hist))

	err := n.Notify(context.Background(), Alert{DeviceID: uuid.New(), Message: "m"})
	assert.Error(t, err)
	assert.Empty(t, hist.records, "failed publish must not be recorded as sent")
}

func TestNotify_HistoryRecordsPublishedAlert(t *testing.T) {
	prod := &capturingProducer{}
	hist := &memHistory{}
	n := New(prod, "energymon.notifications", WithHistory(hist))

	userID := uuid.New()
	deviceID := uuid.New()
	require.NoError(t, n.Notify(context.Background(), Alert{
		UserID:   &userID,
		DeviceID: deviceID,
		Message:  "over",
		Total:    4.2,
		Limit:    3.0,
	}))

	require.Len(t, hist.records, 1)
	rec := hist.records[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, userID.String(), rec.UserID)
	assert.Equal(t, deviceID.String(), rec.DeviceID)
	assert.Equal(t, "over", rec.Message)
	assert.InDelta(t, 4.2, rec.TotalConsumption, 1e-9)
	assert.InDelta(t, 3.0, rec.MaxConsumption, 1e-9)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestNotify_HistoryFailureDoesNotFailAlert(t *testing.T) {
	prod := &capturingProducer{}
	hist := &memHistory{err: errors.New("clickhouse down")}
	n := New(prod, "energymon.notifications", WithHistory(hist))

	assert.NoError(t, n.Notify(context.Background(), Alert{DeviceID: uuid.New(), Message: "m"}))
	assert.Len(t, prod.payloads, 1)
}
