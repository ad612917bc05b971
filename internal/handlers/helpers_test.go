package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"time"

	"spending-guard/internal/config"
	"spending-guard/internal/errors"
	"spending-guard/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession() *services.Session {
	cfg := &config.Config{
		Risk: config.DefaultRiskConfig(),
		Scheduler: config.SchedulerConfig{
			ShallowScanInterval: time.Minute,
			DeepScanInterval:    time.Hour,
		},
		Defaults: config.PreferenceDefaults{
			DailyLimit:    decimal.NewFromInt(200),
			WeeklyLimit:   decimal.NewFromInt(1000),
			MonthlyLimit:  decimal.NewFromInt(4000),
			AlertsEnabled: true,
		},
	}
	return services.NewSession(cfg, services.SessionStores{}, nil, discardLogger())
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

// doRequest sends body (marshalled to JSON when not nil) through e and returns the recorder
func doRequest(e *echo.Echo, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			reader = bytes.NewBufferString(raw)
		} else {
			payload, _ := json.Marshal(body)
			reader = bytes.NewReader(payload)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(rec *httptest.ResponseRecorder) errors.ErrorResponse {
	var resp errors.ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return resp
}
