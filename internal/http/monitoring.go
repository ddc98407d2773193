package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/jmehdipour/energymon/internal/repository"
)

type hourlyDto struct {
	Hour             int     `json:"hour"`
	TotalConsumption float64 `json:"totalConsumption"`
}

// dailyConsumptionHandler serves the aggregate query interface: 24 hourly
// totals for one device and calendar date, missing hours as 0.0. Dates and
// bucket boundaries are UTC, matching how the aggregator truncates.
func dailyConsumptionHandler(buckets repository.HourlyConsumptionRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		deviceID, err := uuid.Parse(c.Param("deviceId"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid device id"})
		}

		date, err := time.ParseInLocation("2006-01-02", c.QueryParam("date"), time.UTC)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
		}

		rows, err := buckets.ListDay(c.Request().Context(), deviceID, date)
		if err != nil {
			log.Errorf("hourly consumption query failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		byHour := make(map[int]float64, len(rows))
		for _, r := range rows {
			byHour[r.HourStart.UTC().Hour()] += r.TotalConsumption
		}

		out := make([]hourlyDto, 24)
		for hour := 0; hour < 24; hour++ {
			out[hour] = hourlyDto{Hour: hour, TotalConsumption: byHour[hour]}
		}

		return c.JSON(http.StatusOK, out)
	}
}
