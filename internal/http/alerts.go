package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/jmehdipour/energymon/internal/repository"
)

// listAlertsHandler lists the alert history from ClickHouse, newest first,
// optionally filtered by device.
func listAlertsHandler(alerts repository.CHAlertsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		deviceID := strings.TrimSpace(c.QueryParam("deviceId"))

		rows, err := alerts.ListByDevice(c.Request().Context(), deviceID, limit, offset)
		if err != nil {
			log.Errorf("clickhouse alert list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
