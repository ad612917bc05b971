package handlers

import (
	"net/http"
	"net/url"

	"spending-guard/internal/dto"
	"spending-guard/internal/errors"
	"spending-guard/internal/services"

	"github.com/labstack/echo/v4"
)

// PatternHandler exposes per-merchant spending patterns
type PatternHandler struct {
	patterns *services.PatternAggregator
}

func NewPatternHandler(patterns *services.PatternAggregator) *PatternHandler {
	return &PatternHandler{patterns: patterns}
}

// ListPatterns returns every merchant pattern, highest spend first
// @Summary List spending patterns
// @Tags Patterns
// @Produce json
// @Success 200 {object} dto.ListPatternsResponse
// @Router /patterns [get]
func (h *PatternHandler) ListPatterns(c echo.Context) error {
	snapshot := h.patterns.Snapshot()
	patterns := make([]dto.PatternResponse, 0, len(snapshot))
	for _, p := range snapshot {
		patterns = append(patterns, dto.NewPatternResponse(p))
	}
	return c.JSON(http.StatusOK, dto.ListPatternsResponse{Patterns: patterns, Count: len(patterns)})
}

// GetPattern returns a single merchant's pattern
// @Summary Get merchant pattern
// @Tags Patterns
// @Produce json
// @Param merchant path string true "Merchant name (case-insensitive)"
// @Success 200 {object} dto.PatternResponse
// @Failure 404 {object} errors.ErrorResponse "PATTERN_001 - Pattern not found"
// @Router /patterns/{merchant} [get]
func (h *PatternHandler) GetPattern(c echo.Context) error {
	merchant, err := url.PathUnescape(c.Param("merchant"))
	if err != nil {
		return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails("Invalid merchant name"))
	}

	pattern, ok := h.patterns.Pattern(merchant)
	if !ok {
		return SendError(c, errors.PatternNotFound)
	}
	return c.JSON(http.StatusOK, dto.NewPatternResponse(pattern))
}
