package simulator

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
	payloads [][]byte
	err      error
}

func (p *capturingProducer) Publish(_ context.Context, _ string, _, value []byte) error {
	if p.err != nil {
		return p.err
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	p.payloads = append(p.payloads, cp)
	return nil
}

func TestConsumptionForHour_FollowsDailyCurve(t *testing.T) {
	const baseLoad = 6.0 // makes the per-10-minute slice equal the multiplier
	s := New(&capturingProducer{}, "t", uuid.New(), baseLoad, time.Minute)

	// Band multipliers carry ±10% jitter on top, so widen the bounds by that
	// factor.
	bands := []struct {
		hour     int
		min, max float64
	}{
		{3, 0.3, 0.5},  // night
		{7, 0.6, 1.1},  // morning
		{12, 0.8, 1.4}, // day
		{19, 1.5, 2.3}, // evening peak
		{23, 0.5, 0.9}, // late evening
	}
	for _, band := range bands {
		for i := 0; i < 200; i++ {
			v := s.ConsumptionForHour(band.hour)
			assert.GreaterOrEqual(t, v, band.min*0.9, "hour %d", band.hour)
			assert.LessOrEqual(t, v, band.max*1.1, "hour %d", band.hour)
		}
	}
}

func TestConsumptionForHour_EveningPeaksAboveNight(t *testing.T) {
	s := New(&capturingProducer{}, "t", uuid.New(), 1.0, time.Minute)

	var night, evening float64
	const samples = 500
	for i := 0; i < samples; i++ {
		night += s.ConsumptionForHour(2)
		evening += s.ConsumptionForHour(19)
	}
	assert.Greater(t, evening/samples, night/samples)
}

func TestConsumptionForHour_ScalesWithBaseLoad(t *testing.T) {
	small := New(&capturingProducer{}, "t", uuid.New(), 1.0, time.Minute)
	big := New(&capturingProducer{}, "t", uuid.New(), 10.0, time.Minute)

	// Even the smallest possible sample at 10x base load clears the largest
	// possible sample at 1x for the same hour band.
	var smallMax, bigMin float64 = 0, 1e9
	for i := 0; i < 300; i++ {
		if v := small.ConsumptionForHour(12); v > smallMax {
			smallMax = v
		}
		if v := big.ConsumptionForHour(12); v < bigMin {
			bigMin = v
		}
	}
	assert.Greater(t, bigMin, smallMax)
}

func TestSeedFullDay_Publishes144SamplesInsideTheDay(t *testing.T) {
	prod := &capturingProducer{}
	deviceID := uuid.New()
	s := New(prod, "energymon.measurements", deviceID, 2.0, time.Minute)

	day := time.Date(2026, 1, 15, 13, 45, 0, 0, time.UTC) // any time of day works
	require.NoError(t, s.SeedFullDay(context.Background(), day))

	require.Len(t, prod.payloads, 24*6)

	dayStart := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	for i, payload := range prod.payloads {
		var msg model.MeasurementMessage
		require.NoError(t, json.Unmarshal(payload, &msg), "sample %d", i)
		assert.Equal(t, deviceID, msg.DeviceID)
		require.NotNil(t, msg.MeasurementValue)
		assert.Greater(t, *msg.MeasurementValue, 0.0)
		ts := msg.Timestamp.Time
		assert.False(t, ts.Before(dayStart), "sample %d before day start", i)
		assert.True(t, ts.Before(dayEnd), "sample %d after day end", i)
	}

	// Six samples per hour bucket.
	perHour := map[int]int{}
	for _, payload := range prod.payloads {
		var msg model.MeasurementMessage
		require.NoError(t, json.Unmarshal(payload, &msg))
		perHour[msg.Timestamp.Hour()]++
	}
	for hour := 0; hour < 24; hour++ {
		assert.Equal(t, 6, perHour[hour], "hour %d", hour)
	}
}

func TestSeedFullDay_StopsOnPublishFailure(t *testing.T) {
	prod := &capturingProducer{err: errors.New("kafka down")}
	s := New(prod, "energymon.measurements", uuid.New(), 2.0, time.Minute)

	err := s.SeedFullDay(context.Background(), time.Now())
	assert.Error(t, err)
}

func TestSendTest_PublishesExactValue(t *testing.T) {
	prod := &capturingProducer{}
	s := New(prod, "energymon.measurements", uuid.New(), 2.0, time.Minute)

	require.NoError(t, s.SendTest(context.Background(), 4.25))

	require.Len(t, prod.payloads, 1)
	var msg model.MeasurementMessage
	require.NoError(t, json.Unmarshal(prod.payloads[0], &msg))
	require.NotNil(t, msg.MeasurementValue)
	assert.InDelta(t, 4.25, *msg.MeasurementValue, 1e-9)
	assert.WithinDuration(t, time.Now(), msg.Timestamp.Time, time.Minute)
}
