package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"spending-guard/internal/dto"
	"spending-guard/internal/errors"
	"spending-guard/internal/models"
	"spending-guard/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const (
	defaultPageLimit     = 20
	maxPageLimit         = 100
	defaultSummaryWindow = 30 * 24 * time.Hour
)

// TransactionHandler handles transaction-related HTTP requests
type TransactionHandler struct {
	session *services.Session
	now     func() time.Time
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(session *services.Session) *TransactionHandler {
	return &TransactionHandler{session: session, now: time.Now}
}

// CreateTransaction records a completed purchase and updates the merchant pattern
// @Summary Record transaction
// @Tags Transactions
// @Accept json
// @Produce json
// @Param request body dto.CreateTransactionRequest true "Transaction"
// @Success 201 {object} dto.CreateTransactionResponse
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 or TRANSACTION_001"
// @Failure 409 {object} errors.ErrorResponse "TRANSACTION_002 - Duplicate transaction ID"
// @Failure 422 {object} errors.ErrorResponse "TRANSACTION_003 - Validation failed"
// @Router /transactions [post]
func (h *TransactionHandler) CreateTransaction(c echo.Context) error {
	var req dto.CreateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := c.Validate(req); err != nil {
		return SendValidationError(c, err)
	}

	amount, err := models.AmountFromFloat(req.Amount)
	if err != nil {
		return SendError(c, errors.TransactionInvalidAmount, errors.WithDetails("Amount must be greater than 0"))
	}

	tx := &models.Transaction{
		Amount:    amount,
		Merchant:  strings.TrimSpace(req.Merchant),
		Category:  strings.ToUpper(req.Category),
		Timestamp: h.now().UTC(),
	}
	if req.ID != nil {
		tx.ID = *req.ID
	}
	if req.Timestamp != nil {
		tx.Timestamp = req.Timestamp.UTC()
	}
	if req.Location != nil {
		loc := req.Location.ToModel()
		tx.SetLocation(&loc)
	}

	if err := h.session.RecordTransaction(c.Request().Context(), tx); err != nil {
		switch {
		case stderrors.Is(err, models.ErrInvalidAmount):
			return SendError(c, errors.TransactionInvalidAmount)
		case stderrors.Is(err, services.ErrDuplicateTransaction):
			return SendError(c, errors.TransactionDuplicate)
		case stderrors.Is(err, models.ErrMerchantRequired),
			stderrors.Is(err, models.ErrTimestampRequired),
			stderrors.Is(err, models.ErrInvalidCategory),
			stderrors.Is(err, models.ErrInvalidCoordinate):
			return SendError(c, errors.TransactionValidationFailed, errors.WithDetails(err.Error()))
		default:
			return SendSystemError(c, err)
		}
	}

	response := dto.CreateTransactionResponse{Transaction: dto.NewTransactionResponse(tx)}
	if p, ok := h.session.Patterns.Pattern(tx.Merchant); ok {
		pattern := dto.NewPatternResponse(p)
		response.Pattern = &pattern
	}

	return c.JSON(http.StatusCreated, response)
}

// ListTransactions returns recorded transactions, newest first
// @Summary List transactions
// @Tags Transactions
// @Produce json
// @Param offset query int false "Offset" default(0)
// @Param limit query int false "Number of results per page (max 100)" default(20)
// @Param start_date query string false "Filter by start date (YYYY-MM-DD)"
// @Param end_date query string false "Filter by end date (YYYY-MM-DD)"
// @Param category query string false "Filter by category code"
// @Param merchant query string false "Filter by merchant name"
// @Param min_amount query string false "Filter by minimum amount"
// @Param max_amount query string false "Filter by maximum amount"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 - Invalid parameters"
// @Router /transactions [get]
func (h *TransactionHandler) ListTransactions(c echo.Context) error {
	filters, err := parseTransactionFilters(c)
	if err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(err.Error()))
	}

	transactions, total := h.session.Ledger.Filter(filters)

	items := make([]dto.TransactionResponse, 0, len(transactions))
	for i := range transactions {
		items = append(items, dto.NewTransactionResponse(&transactions[i]))
	}

	return c.JSON(http.StatusOK, dto.ListTransactionsResponse{
		Transactions: items,
		Pagination: dto.PaginationInfo{
			Offset:  filters.Offset,
			Limit:   filters.Limit,
			Total:   total,
			HasMore: filters.Offset+len(items) < total,
		},
	})
}

// parseTransactionFilters parses and validates transaction filter parameters
func parseTransactionFilters(c echo.Context) (models.TransactionFilters, error) {
	filters := models.TransactionFilters{
		Offset: getIntParam(c, "offset", 0),
		Limit:  getIntParam(c, "limit", defaultPageLimit),
	}
	if filters.Offset < 0 {
		return filters, fmt.Errorf("offset must not be negative")
	}
	if filters.Limit < 1 {
		return filters, fmt.Errorf("limit must be at least 1")
	}
	if filters.Limit > maxPageLimit {
		filters.Limit = maxPageLimit
	}

	startDate, err := getDateParam(c, "start_date")
	if err != nil {
		return filters, err
	}
	filters.StartDate = startDate

	endDate, err := getDateParam(c, "end_date")
	if err != nil {
		return filters, err
	}
	if endDate != nil {
		// Set to end of day
		endOfDay := endDate.Add(24*time.Hour - time.Nanosecond)
		filters.EndDate = &endOfDay
	}

	if category := c.QueryParam("category"); category != "" {
		category = strings.ToUpper(category)
		if !models.IsValidCategory(category) {
			return filters, fmt.Errorf("invalid category")
		}
		filters.Category = category
	}

	if minAmountStr := c.QueryParam("min_amount"); minAmountStr != "" {
		minAmount, err := decimal.NewFromString(minAmountStr)
		if err != nil {
			return filters, fmt.Errorf("invalid min_amount format")
		}
		filters.MinAmount = &minAmount
	}

	if maxAmountStr := c.QueryParam("max_amount"); maxAmountStr != "" {
		maxAmount, err := decimal.NewFromString(maxAmountStr)
		if err != nil {
			return filters, fmt.Errorf("invalid max_amount format")
		}
		filters.MaxAmount = &maxAmount
	}

	filters.Merchant = c.QueryParam("merchant")

	return filters, nil
}

// GetTransaction retrieves a specific transaction by ID
// @Summary Get transaction by ID
// @Tags Transactions
// @Produce json
// @Param id path string true "Transaction ID (UUID)"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_003 - Invalid transaction ID"
// @Failure 404 {object} errors.ErrorResponse "TRANSACTION_004 - Transaction not found"
// @Router /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails("Invalid transaction ID"))
	}

	tx, ok := h.session.Ledger.Get(id)
	if !ok {
		return SendError(c, errors.TransactionNotFound)
	}

	return c.JSON(http.StatusOK, dto.NewTransactionResponse(&tx))
}

// GetSummary groups spending by category
// @Summary Spending by category
// @Tags Transactions
// @Produce json
// @Param start_date query string false "Start date (YYYY-MM-DD), default 30 days ago"
// @Param end_date query string false "End date inclusive (YYYY-MM-DD), default today"
// @Success 200 {object} dto.CategorySummaryResponse
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 - Invalid parameters"
// @Router /transactions/summary [get]
func (h *TransactionHandler) GetSummary(c echo.Context) error {
	now := h.now().UTC()
	to := now
	from := now.Add(-defaultSummaryWindow)

	start, err := getDateParam(c, "start_date")
	if err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(err.Error()))
	}
	if start != nil {
		from = *start
	}
	end, err := getDateParam(c, "end_date")
	if err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(err.Error()))
	}
	if end != nil {
		to = end.Add(24 * time.Hour)
	}
	if !from.Before(to) {
		return SendError(c, errors.ValidationOutOfRange, errors.WithDetails("start_date must be before end_date"))
	}

	categories := h.session.Ledger.CategorySummary(from, to)
	total := decimal.Zero
	for _, summary := range categories {
		total = total.Add(summary.TotalAmount)
	}

	return c.JSON(http.StatusOK, dto.CategorySummaryResponse{
		From:       from,
		To:         to,
		Total:      total.StringFixed(2),
		Categories: categories,
	})
}
