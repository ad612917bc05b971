package dto

import (
	"time"

	"spending-guard/internal/models"
)

// AssessRiskRequest describes a prospective purchase. An out-of-range location is
// ignored rather than rejected.
type AssessRiskRequest struct {
	Amount   float64            `json:"amount" validate:"money"`
	Merchant string             `json:"merchant" validate:"required,max=255"`
	Category string             `json:"category,omitempty" validate:"omitempty,category"`
	Location *CoordinateRequest `json:"location,omitempty" validate:"-"`
	At       *time.Time         `json:"at,omitempty"`
}

// RiskAssessmentResponse wraps an assessment for the API
type RiskAssessmentResponse struct {
	Assessment *models.RiskAssessment `json:"assessment"`
}
