package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Wire layout of measurement timestamps: millisecond precision with an
// explicit offset, e.g. "2026-01-15T09:30:00.000+02:00".
const MeasurementTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// MeasurementTime marshals with millisecond precision and tolerates plain
// RFC3339 on the way in.
type MeasurementTime struct {
	time.Time
}

func (t MeasurementTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(MeasurementTimeLayout) + `"`), nil
}

func (t *MeasurementTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{MeasurementTimeLayout, time.RFC3339Nano, time.RFC3339} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unparseable measurement timestamp %q", s)
}

// MeasurementMessage is a single raw sample from the simulator queue. It is
// never persisted as-is; it only feeds the hourly buckets. A null value is
// legal and counts as zero consumption.
type MeasurementMessage struct {
	DeviceID         uuid.UUID       `json:"deviceId"`
	MeasurementValue *float64        `json:"measurementValue"`
	Timestamp        MeasurementTime `json:"timestamp"`
}

// Value returns the sample value, treating null as 0.
func (m MeasurementMessage) Value() float64 {
	if m.MeasurementValue == nil {
		return 0
	}
	return *m.MeasurementValue
}
