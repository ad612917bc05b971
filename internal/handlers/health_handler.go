package handlers

import (
	"net/http"
	"time"

	"spending-guard/internal/errors"
	"spending-guard/internal/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// RealtimeStats reports the notification stream's connection figures
type RealtimeStats interface {
	Stats() map[string]any
}

// HealthCheckHandler handles the health check endpoint
type HealthCheckHandler struct {
	db       *gorm.DB
	session  *services.Session
	realtime RealtimeStats
}

// NewHealthCheckHandler creates a new health check handler. db and realtime may be nil
// when the service runs without persistence or a websocket stream.
func NewHealthCheckHandler(db *gorm.DB, session *services.Session, realtime RealtimeStats) *HealthCheckHandler {
	return &HealthCheckHandler{db: db, session: session, realtime: realtime}
}

// HealthCheck reports service status
// @Summary Health check
// @Description Check API and database connectivity status. An open store breaker is reported
// @Description as degraded since the in-memory state keeps serving.
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,time=string,store=string,transactions=int,tracking=bool,realtime=object} "Service is healthy"
// @Failure 503 {object} errors.ErrorResponse "SYSTEM_003 - Service unavailable (database connection failed)"
// @Router /health [get]
func (h *HealthCheckHandler) HealthCheck(c echo.Context) error {
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request().Context())
		}
		if err != nil {
			return SendError(c, errors.SystemServiceUnavailable, errors.WithDetails("Database connection failed"))
		}
	}

	status := "healthy"
	storeState := h.session.Ledger.StoreState()
	if storeState == services.StateOpen {
		status = "degraded"
	}

	body := map[string]interface{}{
		"status":       status,
		"time":         time.Now().UTC().Format(time.RFC3339),
		"store":        storeState.String(),
		"transactions": h.session.Ledger.Len(),
		"tracking":     h.session.Geofences.IsTracking(),
	}
	if h.realtime != nil {
		body["realtime"] = h.realtime.Stats()
	}
	return c.JSON(http.StatusOK, body)
}
