package validation

import (
	"math"
	"reflect"
	"strings"
	"sync"

	"spending-guard/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Validator wraps the go-playground validator with custom rules
type Validator struct {
	validate *validator.Validate
}

var (
	instance *Validator
	once     sync.Once
)

// GetValidator returns the shared validator instance
func GetValidator() *Validator {
	once.Do(func() {
		instance = NewValidator()
	})
	return instance
}

// NewValidator creates a new validator instance with custom rules and configuration
func NewValidator() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("money", validateMoney)
	_ = v.RegisterValidation("money_string", validateMoneyString)
	_ = v.RegisterValidation("latitude_deg", validateLatitude)
	_ = v.RegisterValidation("longitude_deg", validateLongitude)
	_ = v.RegisterValidation("geofence_kind", validateGeofenceKind)
	_ = v.RegisterValidation("category", validateCategory)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Validate implements echo.Validator
func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// GetValidate returns the underlying validator.Validate instance
func (v *Validator) GetValidate() *validator.Validate {
	return v.validate
}

// validateMoney accepts finite, strictly positive amounts with at most 2 decimal places
func validateMoney(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.Float64 && fl.Field().Kind() != reflect.Float32 {
		return false
	}
	amount := fl.Field().Float()
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return false
	}
	return decimal.NewFromFloat(amount).Exponent() >= -2
}

// validateMoneyString accepts a positive decimal string such as "250.00"
func validateMoneyString(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.IsPositive()
}

func validateLatitude(fl validator.FieldLevel) bool {
	lat := fl.Field().Float()
	return !math.IsNaN(lat) && lat >= -90 && lat <= 90
}

func validateLongitude(fl validator.FieldLevel) bool {
	lng := fl.Field().Float()
	return !math.IsNaN(lng) && lng >= -180 && lng <= 180
}

func validateGeofenceKind(fl validator.FieldLevel) bool {
	return models.IsValidGeofenceKind(fl.Field().String())
}

// validateCategory allows an empty category (it will be inferred) or a known one
func validateCategory(fl validator.FieldLevel) bool {
	category := fl.Field().String()
	return category == "" || models.IsValidCategory(strings.ToUpper(category))
}
