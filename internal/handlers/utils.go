package handlers

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
)

const dateLayout = "2006-01-02"

func getIntParam(c echo.Context, name string, defaultValue int) int {
	param := c.QueryParam(name)
	if param == "" {
		return defaultValue
	}

	var value int
	if _, err := fmt.Sscanf(param, "%d", &value); err != nil {
		return defaultValue
	}

	return value
}

// getDateParam parses a YYYY-MM-DD query parameter in UTC. A missing parameter
// returns nil.
func getDateParam(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s format, use YYYY-MM-DD", name)
	}
	return &t, nil
}
