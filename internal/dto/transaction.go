package dto

import (
	"time"

	"spending-guard/internal/models"

	"github.com/google/uuid"
)

// CoordinateRequest is a latitude/longitude pair in degrees
type CoordinateRequest struct {
	Lat float64 `json:"lat" validate:"latitude_deg"`
	Lng float64 `json:"lng" validate:"longitude_deg"`
}

func (c CoordinateRequest) ToModel() models.Coordinate {
	return models.Coordinate{Latitude: c.Lat, Longitude: c.Lng}
}

// CreateTransactionRequest records a completed purchase. Category is inferred from the
// merchant when omitted; timestamp defaults to now.
type CreateTransactionRequest struct {
	ID        *uuid.UUID         `json:"id,omitempty"`
	Amount    float64            `json:"amount" validate:"money"`
	Merchant  string             `json:"merchant" validate:"required,max=255"`
	Category  string             `json:"category,omitempty" validate:"omitempty,category"`
	Timestamp *time.Time         `json:"timestamp,omitempty"`
	Location  *CoordinateRequest `json:"location,omitempty" validate:"omitempty"`
}

// TransactionResponse is the API view of a recorded transaction
type TransactionResponse struct {
	ID        uuid.UUID          `json:"id"`
	Amount    string             `json:"amount"`
	Merchant  string             `json:"merchant"`
	Category  string             `json:"category"`
	Timestamp time.Time          `json:"timestamp"`
	Location  *models.Coordinate `json:"location,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

func NewTransactionResponse(tx *models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        tx.ID,
		Amount:    tx.Amount.StringFixed(2),
		Merchant:  tx.Merchant,
		Category:  tx.Category,
		Timestamp: tx.Timestamp,
		Location:  tx.Location(),
		CreatedAt: tx.CreatedAt,
	}
}

// CreateTransactionResponse returns the stored transaction with the merchant pattern it updated
type CreateTransactionResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Pattern     *PatternResponse    `json:"pattern,omitempty"`
}

// PaginationInfo contains offset pagination metadata
type PaginationInfo struct {
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// ListTransactionsResponse represents the response for listing transactions
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Pagination   PaginationInfo        `json:"pagination"`
}

// CategorySummaryResponse groups spend over a period by category
type CategorySummaryResponse struct {
	From       time.Time                `json:"from"`
	To         time.Time                `json:"to"`
	Total      string                   `json:"total"`
	Categories []models.CategorySummary `json:"categories"`
}
