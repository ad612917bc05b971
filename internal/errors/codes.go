package errors

// ErrorCode represents a standardized error code used throughout the API
type ErrorCode string

// Validation error codes (VALIDATION_*)
const (
	ValidationGeneral       ErrorCode = "VALIDATION_001"
	ValidationRequiredField ErrorCode = "VALIDATION_002"
	ValidationInvalidFormat ErrorCode = "VALIDATION_003"
	ValidationOutOfRange    ErrorCode = "VALIDATION_004"
)

// Transaction error codes (TRANSACTION_*)
const (
	TransactionInvalidAmount    ErrorCode = "TRANSACTION_001"
	TransactionDuplicate        ErrorCode = "TRANSACTION_002"
	TransactionValidationFailed ErrorCode = "TRANSACTION_003"
	TransactionNotFound         ErrorCode = "TRANSACTION_004"
)

// Risk error codes (RISK_*)
const (
	RiskInvalidAmount   ErrorCode = "RISK_001"
	RiskInvalidMerchant ErrorCode = "RISK_002"
)

// Pattern error codes (PATTERN_*)
const (
	PatternNotFound ErrorCode = "PATTERN_001"
)

// Geofence error codes (GEOFENCE_*)
const (
	GeofenceNotFound    ErrorCode = "GEOFENCE_001"
	GeofenceInvalid     ErrorCode = "GEOFENCE_002"
	GeofenceInvalidKind ErrorCode = "GEOFENCE_003"
)

// Location error codes (LOCATION_*)
const (
	LocationInvalidCoordinate ErrorCode = "LOCATION_001"
	LocationUnavailable       ErrorCode = "LOCATION_002"
)

// Preferences error codes (PREFERENCES_*)
const (
	PreferencesInvalid ErrorCode = "PREFERENCES_001"
)

// System error codes (SYSTEM_*)
const (
	SystemInternalError      ErrorCode = "SYSTEM_001"
	SystemDatabaseError      ErrorCode = "SYSTEM_002"
	SystemServiceUnavailable ErrorCode = "SYSTEM_003"
	SystemNotFound           ErrorCode = "SYSTEM_004"
	SystemRateLimitExceeded  ErrorCode = "SYSTEM_005"
)

// errorMessages maps error codes to their default human-readable messages
var errorMessages = map[ErrorCode]string{
	ValidationGeneral:       "Validation failed",
	ValidationRequiredField: "Required field is missing",
	ValidationInvalidFormat: "Invalid field format",
	ValidationOutOfRange:    "Field value is out of allowed range",

	TransactionInvalidAmount:    "Invalid amount",
	TransactionDuplicate:        "Transaction with this ID was already recorded",
	TransactionValidationFailed: "Transaction validation failed",
	TransactionNotFound:         "Transaction not found",

	RiskInvalidAmount:   "Invalid amount",
	RiskInvalidMerchant: "Merchant name is required for risk assessment",

	PatternNotFound: "No spending pattern recorded for this merchant",

	GeofenceNotFound:    "Geofence not found",
	GeofenceInvalid:     "Invalid geofence definition",
	GeofenceInvalidKind: "Geofence kind must be merchant, high_risk or safe_zone",

	LocationInvalidCoordinate: "Invalid coordinate",
	LocationUnavailable:       "Location provider is unavailable; use location simulation",

	PreferencesInvalid: "Invalid spending limits",

	SystemInternalError:      "An unexpected error occurred. Please contact support with trace ID",
	SystemDatabaseError:      "Database connection error",
	SystemServiceUnavailable: "Service temporarily unavailable",
	SystemNotFound:           "Resource not found",
	SystemRateLimitExceeded:  "Rate limit exceeded. Please try again later",
}

// GetErrorMessage returns the default message for a given error code
// If the error code is not found, it returns a generic error message
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "An error occurred"
}

// IsValidErrorCode checks if the provided error code is a valid registered code
func IsValidErrorCode(code ErrorCode) bool {
	_, ok := errorMessages[code]
	return ok
}
