package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"spending-guard/internal/dto"
	"spending-guard/internal/errors"
	"spending-guard/internal/models"
	"spending-guard/internal/services"

	"github.com/labstack/echo/v4"
)

// RiskAssessorInterface scores a prospective purchase
type RiskAssessorInterface interface {
	Assess(ctx context.Context, req services.AssessmentRequest) (*models.RiskAssessment, error)
}

// RiskHandler handles pre-purchase risk checks
type RiskHandler struct {
	assessor RiskAssessorInterface
}

func NewRiskHandler(assessor RiskAssessorInterface) *RiskHandler {
	return &RiskHandler{assessor: assessor}
}

// AssessRisk scores a prospective purchase and returns the gating action
// @Summary Assess purchase risk
// @Description Scores amount, merchant history, location, time of day and visit frequency.
// @Tags Risk
// @Accept json
// @Produce json
// @Param request body dto.AssessRiskRequest true "Prospective purchase"
// @Success 200 {object} dto.RiskAssessmentResponse
// @Failure 400 {object} errors.ErrorResponse "RISK_001 - Invalid amount, RISK_002 - Merchant required"
// @Router /risk/assess [post]
func (h *RiskHandler) AssessRisk(c echo.Context) error {
	var req dto.AssessRiskRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	// Amount and merchant get their own codes so clients can tell them apart
	amount, err := models.AmountFromFloat(req.Amount)
	if err != nil {
		return SendError(c, errors.RiskInvalidAmount)
	}
	if strings.TrimSpace(req.Merchant) == "" {
		return SendError(c, errors.RiskInvalidMerchant)
	}

	if err := c.Validate(req); err != nil {
		return SendValidationError(c, err)
	}

	assessReq := services.AssessmentRequest{
		Amount:   amount,
		Merchant: strings.TrimSpace(req.Merchant),
		Category: strings.ToUpper(req.Category),
	}
	if req.Location != nil {
		loc := req.Location.ToModel()
		assessReq.Location = &loc
	}
	if req.At != nil {
		assessReq.At = *req.At
	}

	assessment, err := h.assessor.Assess(c.Request().Context(), assessReq)
	if err != nil {
		switch {
		case stderrors.Is(err, models.ErrInvalidAmount):
			return SendError(c, errors.RiskInvalidAmount)
		case stderrors.Is(err, models.ErrMerchantRequired):
			return SendError(c, errors.RiskInvalidMerchant)
		default:
			return SendSystemError(c, err)
		}
	}

	return c.JSON(http.StatusOK, dto.RiskAssessmentResponse{Assessment: assessment})
}
