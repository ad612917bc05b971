package handlers

import (
	"net/http"

	"spending-guard/internal/dto"
	"spending-guard/internal/models"
	"spending-guard/internal/services"

	"github.com/labstack/echo/v4"
)

type InsightHandler struct {
	session *services.Session
}

func NewInsightHandler(session *services.Session) *InsightHandler {
	return &InsightHandler{session: session}
}

// ListInsights returns generated insights, newest first
// @Summary List insights
// @Tags Insights
// @Produce json
// @Success 200 {object} dto.InsightsResponse
// @Router /insights [get]
func (h *InsightHandler) ListInsights(c echo.Context) error {
	insights := h.session.Insights.Insights()
	return c.JSON(http.StatusOK, dto.InsightsResponse{Insights: nonNilInsights(insights), Count: len(insights)})
}

// ScanInsights runs the shallow and deep scans now and returns only new insights
// @Summary Run insight scan
// @Tags Insights
// @Produce json
// @Success 200 {object} dto.InsightsResponse
// @Router /insights/scan [post]
func (h *InsightHandler) ScanInsights(c echo.Context) error {
	insights := h.session.ScanInsights(c.Request().Context())
	return c.JSON(http.StatusOK, dto.InsightsResponse{Insights: nonNilInsights(insights), Count: len(insights)})
}

// WeeklyForecast projects next week's spend from recent and historical weeks
// @Summary Weekly spend forecast
// @Tags Insights
// @Produce json
// @Success 200 {object} dto.ForecastResponse
// @Router /predictions/weekly [get]
func (h *InsightHandler) WeeklyForecast(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.ForecastResponse{Forecast: h.session.Insights.ForecastNextWeek()})
}

func nonNilInsights(insights []models.Insight) []models.Insight {
	if insights == nil {
		return []models.Insight{}
	}
	return insights
}
