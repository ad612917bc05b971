package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InsightType string

const (
	InsightTrend          InsightType = "trend"
	InsightAnomaly        InsightType = "anomaly"
	InsightRecommendation InsightType = "recommendation"
)

type InsightSeverity string

const (
	InsightSeverityInfo    InsightSeverity = "info"
	InsightSeverityWarning InsightSeverity = "warning"
	InsightSeverityHigh    InsightSeverity = "high"
)

// Insight is a human-readable observation produced by a scan.
type Insight struct {
	ID          uuid.UUID       `json:"id"`
	Key         string          `json:"key"`
	Type        InsightType     `json:"type"`
	Severity    InsightSeverity `json:"severity"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	Merchant    string          `json:"merchant,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Forecast is the projected spend for the coming week.
type Forecast struct {
	NextWeek          decimal.Decimal `json:"next_week"`
	RecentWeek        decimal.Decimal `json:"recent_week"`
	HistoricalAverage decimal.Decimal `json:"historical_weekly_average"`
	TrendFactor       float64         `json:"trend_factor"`
	Confidence        float64         `json:"confidence"`
	WeeksOfHistory    int             `json:"weeks_of_history"`
	GeneratedAt       time.Time       `json:"generated_at"`
}
