package handlers

import (
	stderrors "errors"
	"net/http"

	"spending-guard/internal/errors"
	"spending-guard/internal/logging"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Handlers report failures through SendError (4xx, client-correctable) or
// SendSystemError (5xx, details withheld from the client and logged with the trace ID).
// Do not return echo.NewHTTPError or write error JSON directly.

const (
	// TraceIDContextKey is the context key for storing the trace ID
	TraceIDContextKey = "trace_id"
)

// ErrorResponse is an alias for the standardized error response type
type ErrorResponse = errors.ErrorResponse

// getTraceID extracts the trace ID from the Echo context
func getTraceID(c echo.Context) string {
	traceID, ok := c.Get(TraceIDContextKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// SendError sends a standardized error response with trace ID from context
func SendError(c echo.Context, code errors.ErrorCode, opts ...errors.ErrorOption) error {
	traceID := getTraceID(c)
	errorResponse := errors.NewErrorResponse(code, traceID, opts...)
	return c.JSON(errorResponse.GetHTTPStatus(), errorResponse)
}

// SendSystemError wraps a system error with generic message and logs the internal error
func SendSystemError(c echo.Context, err error) error {
	traceID := getTraceID(c)
	errorResponse, internal := errors.WrapSystemError(err, traceID)
	logging.FromContext(c.Request().Context()).Error("internal error",
		"trace_id", traceID,
		"path", c.Path(),
		"error", internal,
	)
	return c.JSON(http.StatusInternalServerError, errorResponse)
}

// SendValidationError reports struct validation failures per field.
func SendValidationError(c echo.Context, err error) error {
	var validationErrs validator.ValidationErrors
	if !stderrors.As(err, &validationErrs) {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(err.Error()))
	}

	fields := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		fields[fe.Namespace()] = validationMessage(fe)
	}
	response := errors.NewValidationError(fields, getTraceID(c))
	return c.JSON(http.StatusBadRequest, response)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "money":
		return "must be a positive amount with at most 2 decimal places"
	case "money_string":
		return "must be a positive decimal amount"
	case "latitude_deg":
		return "must be between -90 and 90"
	case "longitude_deg":
		return "must be between -180 and 180"
	case "geofence_kind":
		return "must be merchant, high_risk or safe_zone"
	case "category":
		return "is not a known category"
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}
