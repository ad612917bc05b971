package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RiskTier string

const (
	RiskTierLow    RiskTier = "low"
	RiskTierMedium RiskTier = "medium"
	RiskTierHigh   RiskTier = "high"
)

// SpendingPattern holds rolling statistics for one merchant.
// RiskTier is derived by the aggregator and must not be assigned by callers.
type SpendingPattern struct {
	Merchant   string          `json:"merchant"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	VisitCount int             `json:"visit_count"`
	LastVisit  time.Time       `json:"last_visit"`
	RiskTier   RiskTier        `json:"risk_tier"`
}

// AverageAmount is always TotalSpent / VisitCount; it is never stored.
func (p SpendingPattern) AverageAmount() decimal.Decimal {
	if p.VisitCount == 0 {
		return decimal.Zero
	}
	return p.TotalSpent.Div(decimal.NewFromInt(int64(p.VisitCount)))
}
