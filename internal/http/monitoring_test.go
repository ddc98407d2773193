package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/energymon/internal/model"
)

type memBuckets struct {
	rows map[uuid.UUID][]model.HourlyConsumption
	err  error
}

func (m *memBuckets) AddToBucket(_ context.Context, deviceID uuid.UUID, hourStart time.Time, value float64) (float64, error) {
	m.rows[deviceID] = append(m.rows[deviceID], model.HourlyConsumption{
		DeviceID: deviceID, HourStart: hourStart, TotalConsumption: value,
	})
	return value, nil
}

func (m *memBuckets) ListDay(_ context.Context, deviceID uuid.UUID, dayStart time.Time) ([]model.HourlyConsumption, error) {
	if m.err != nil {
		return nil, m.err
	}
	dayEnd := dayStart.Add(24 * time.Hour)
	var out []model.HourlyConsumption
	for _, r := range m.rows[deviceID] {
		if !r.HourStart.Before(dayStart) && r.HourStart.Before(dayEnd) {
			out = append(out, r)
		}
	}
	return out, nil
}

func callDaily(t *testing.T, buckets *memBuckets, target string, paramValue string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/monitoring/:deviceId")
	c.SetParamNames("deviceId")
	c.SetParamValues(paramValue)
	require.NoError(t, dailyConsumptionHandler(buckets)(c))
	return rec
}

func TestDailyConsumption_Returns24HoursWithGapsAtZero(t *testing.T) {
	deviceID := uuid.New()
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	buckets := &memBuckets{rows: map[uuid.UUID][]model.HourlyConsumption{
		deviceID: {
			{DeviceID: deviceID, HourStart: day.Add(9 * time.Hour), TotalConsumption: 3.5},
			{DeviceID: deviceID, HourStart: day.Add(18 * time.Hour), TotalConsumption: 1.25},
		},
	}}

	rec := callDaily(t, buckets, "/monitoring/"+deviceID.String()+"?date=2026-01-15", deviceID.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var out []hourlyDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 24)

	for hour, row := range out {
		assert.Equal(t, hour, row.Hour)
	}
	assert.InDelta(t, 3.5, out[9].TotalConsumption, 1e-9)
	assert.InDelta(t, 1.25, out[18].TotalConsumption, 1e-9)
	assert.InDelta(t, 0.0, out[0].TotalConsumption, 1e-9)
	assert.InDelta(t, 0.0, out[23].TotalConsumption, 1e-9)
}

func TestDailyConsumption_EmptyDayIsAllZeros(t *testing.T) {
	deviceID := uuid.New()
	buckets := &memBuckets{rows: map[uuid.UUID][]model.HourlyConsumption{}}

	rec := callDaily(t, buckets, "/monitoring/"+deviceID.String()+"?date=2026-01-15", deviceID.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var out []hourlyDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 24)
	for _, row := range out {
		assert.Zero(t, row.TotalConsumption)
	}
}

func TestDailyConsumption_RejectsBadDeviceID(t *testing.T) {
	buckets := &memBuckets{rows: map[uuid.UUID][]model.HourlyConsumption{}}
	rec := callDaily(t, buckets, "/monitoring/not-a-uuid?date=2026-01-15", "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDailyConsumption_RejectsBadDate(t *testing.T) {
	deviceID := uuid.New()
	buckets := &memBuckets{rows: map[uuid.UUID][]model.HourlyConsumption{}}

	for _, date := range []string{"", "15-01-2026", "2026-13-40"} {
		rec := callDaily(t, buckets, "/monitoring/"+deviceID.String()+"?date="+date, deviceID.String())
		assert.Equal(t, http.StatusBadRequest, rec.Code, "date %q", date)
	}
}

func TestDailyConsumption_QueryFailureIs500(t *testing.T) {
	deviceID := uuid.New()
	buckets := &memBuckets{err: errors.New("mysql gone")}

	rec := callDaily(t, buckets, "/monitoring/"+deviceID.String()+"?date=2026-01-15", deviceID.String())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
