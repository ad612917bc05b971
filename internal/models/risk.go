package models

import "time"

type FactorCategory string

const (
	FactorAmount    FactorCategory = "amount"
	FactorHistory   FactorCategory = "history"
	FactorLocation  FactorCategory = "location"
	FactorTime      FactorCategory = "time"
	FactorFrequency FactorCategory = "frequency"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Multiplier maps a severity onto its score multiplier.
func (s Severity) Multiplier() float64 {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

type RiskLevel string

const (
	RiskLevelSafe     RiskLevel = "safe"
	RiskLevelCaution  RiskLevel = "caution"
	RiskLevelWarning  RiskLevel = "warning"
	RiskLevelDanger   RiskLevel = "danger"
	RiskLevelCritical RiskLevel = "critical"
)

type GatingAction string

const (
	ActionAllow           GatingAction = "allow"
	ActionWarn            GatingAction = "warn"
	ActionRequireApproval GatingAction = "require_approval"
	ActionBlock           GatingAction = "block"
)

// RiskFactor is one scored dimension of an assessment. Produced per call, never stored.
type RiskFactor struct {
	Category FactorCategory `json:"category"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Weight   float64        `json:"weight"`
}

// Contribution is the factor's share of the total score.
func (f RiskFactor) Contribution() float64 {
	return f.Weight * f.Severity.Multiplier()
}

// RiskAssessment is the result of scoring one prospective purchase.
type RiskAssessment struct {
	Score          float64      `json:"score"`
	Level          RiskLevel    `json:"level"`
	Factors        []RiskFactor `json:"factors"`
	Recommendation string       `json:"recommendation"`
	Action         GatingAction `json:"action"`
	Merchant       string       `json:"merchant"`
	Amount         string       `json:"amount"`
	AssessedAt     time.Time    `json:"assessed_at"`
}

// Factor returns the factor for the given category, if present.
func (a *RiskAssessment) Factor(category FactorCategory) (RiskFactor, bool) {
	for _, f := range a.Factors {
		if f.Category == category {
			return f, true
		}
	}
	return RiskFactor{}, false
}
