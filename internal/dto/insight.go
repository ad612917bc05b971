package dto

import "spending-guard/internal/models"

type InsightsResponse struct {
	Insights []models.Insight `json:"insights"`
	Count    int              `json:"count"`
}

type ForecastResponse struct {
	Forecast models.Forecast `json:"forecast"`
}
