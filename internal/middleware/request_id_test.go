package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"spending-guard/internal/logging"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
)

type RequestIDTestSuite struct {
	suite.Suite
	echo *echo.Echo
}

func (s *RequestIDTestSuite) SetupTest() {
	s.echo = echo.New()
	s.echo.HTTPErrorHandler = CustomHTTPErrorHandler
}

func TestRequestIDTestSuite(t *testing.T) {
	suite.Run(t, new(RequestIDTestSuite))
}

func (s *RequestIDTestSuite) TestRequestID_GeneratesTraceID() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	var seen string
	handler := RequestID()(func(c echo.Context) error {
		seen = GetTraceID(c)
		return c.NoContent(http.StatusOK)
	})

	s.NoError(handler(c))
	s.NotEmpty(seen)
	s.Equal(seen, rec.Header().Get(TraceIDHeader))
}

func (s *RequestIDTestSuite) TestRequestID_UsesExistingTraceID() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDHeader, "existing-trace-id-12345")
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	handler := RequestID()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	s.NoError(handler(c))
	s.Equal("existing-trace-id-12345", GetTraceID(c))
	s.Equal("existing-trace-id-12345", rec.Header().Get(TraceIDHeader))
}

func (s *RequestIDTestSuite) TestGetTraceID_Missing() {
	c := s.echo.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	s.Empty(GetTraceID(c))
}

func (s *RequestIDTestSuite) TestRequestLogger() {
	testCases := []struct {
		name      string
		handler   echo.HandlerFunc
		wantCode  int
		wantLevel string
	}{
		{
			name:      "success",
			handler:   func(c echo.Context) error { return c.NoContent(http.StatusOK) },
			wantCode:  http.StatusOK,
			wantLevel: "level=INFO",
		},
		{
			name:      "handler error is rendered before logging",
			handler:   func(c echo.Context) error { return errors.New("boom") },
			wantCode:  http.StatusInternalServerError,
			wantLevel: "level=ERROR",
		},
		{
			name:      "client error",
			handler:   func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound, "missing") },
			wantCode:  http.StatusNotFound,
			wantLevel: "level=WARN",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			req := httptest.NewRequest(http.MethodGet, "/things", nil)
			req.Header.Set(TraceIDHeader, "trace-abc")
			rec := httptest.NewRecorder()
			c := s.echo.NewContext(req, rec)

			handler := RequestID()(RequestLogger(logger)(tc.handler))

			s.NoError(handler(c))
			s.Equal(tc.wantCode, rec.Code)
			s.Contains(buf.String(), tc.wantLevel)
			s.Contains(buf.String(), "trace_id=trace-abc")
			s.Contains(buf.String(), "path=/things")
		})
	}
}

func (s *RequestIDTestSuite) TestRequestLogger_StoresLoggerInContext() {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	req := httptest.NewRequest(http.MethodGet, "/things", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	handler := RequestLogger(logger)(func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("from handler")
		return c.NoContent(http.StatusOK)
	})

	s.NoError(handler(c))
	s.Contains(buf.String(), "msg=\"from handler\"")
}
