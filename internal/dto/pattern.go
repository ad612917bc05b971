package dto

import (
	"time"

	"spending-guard/internal/models"
)

// PatternResponse is a merchant's rolling statistics with the derived average
type PatternResponse struct {
	Merchant      string          `json:"merchant"`
	TotalSpent    string          `json:"total_spent"`
	VisitCount    int             `json:"visit_count"`
	AverageAmount string          `json:"average_amount"`
	LastVisit     time.Time       `json:"last_visit"`
	RiskTier      models.RiskTier `json:"risk_tier"`
}

func NewPatternResponse(p models.SpendingPattern) PatternResponse {
	return PatternResponse{
		Merchant:      p.Merchant,
		TotalSpent:    p.TotalSpent.StringFixed(2),
		VisitCount:    p.VisitCount,
		AverageAmount: p.AverageAmount().StringFixed(2),
		LastVisit:     p.LastVisit,
		RiskTier:      p.RiskTier,
	}
}

type ListPatternsResponse struct {
	Patterns []PatternResponse `json:"patterns"`
	Count    int               `json:"count"`
}
