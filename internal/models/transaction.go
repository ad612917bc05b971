package models

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrMerchantRequired     = errors.New("merchant name is required")
	ErrTimestampRequired    = errors.New("transaction timestamp is required")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrTransactionImmutable = errors.New("transactions are immutable once recorded")
)

const maxMerchantLength = 255

// Transaction is a single recorded purchase. It is never updated after being appended.
type Transaction struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Amount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Merchant  string          `gorm:"type:varchar(255);not null;index" json:"merchant"`
	Category  string          `gorm:"type:varchar(50)" json:"category"`
	Timestamp time.Time       `gorm:"not null;index" json:"timestamp"`
	Latitude  *float64        `json:"latitude,omitempty"`
	Longitude *float64        `json:"longitude,omitempty"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
}

// BeforeCreate hook for Transaction
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	return t.Validate()
}

// BeforeUpdate rejects every update; the ledger is append-only.
func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	return ErrTransactionImmutable
}

// TableName returns the table name for Transaction
func (t *Transaction) TableName() string {
	return "transactions"
}

// Validate validates the transaction fields
func (t *Transaction) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}

	if strings.TrimSpace(t.Merchant) == "" {
		return ErrMerchantRequired
	}
	if len(t.Merchant) > maxMerchantLength {
		return errors.New("merchant name too long")
	}

	if t.Timestamp.IsZero() {
		return ErrTimestampRequired
	}

	if t.Category != "" && !IsValidCategory(t.Category) {
		return ErrInvalidCategory
	}

	if loc := t.Location(); loc != nil && !loc.IsValid() {
		return ErrInvalidCoordinate
	}

	return nil
}

// Location returns the purchase location, or nil when none was captured.
func (t *Transaction) Location() *Coordinate {
	if t.Latitude == nil || t.Longitude == nil {
		return nil
	}
	return &Coordinate{Latitude: *t.Latitude, Longitude: *t.Longitude}
}

// SetLocation stores the coordinate; nil clears it.
func (t *Transaction) SetLocation(c *Coordinate) {
	if c == nil {
		t.Latitude, t.Longitude = nil, nil
		return
	}
	lat, lng := c.Latitude, c.Longitude
	t.Latitude, t.Longitude = &lat, &lng
}

// MerchantKey is the normalized merchant name used to group patterns.
func (t *Transaction) MerchantKey() string {
	return NormalizeMerchant(t.Merchant)
}

// NormalizeMerchant lowercases and collapses whitespace so "Starbucks " and
// "STARBUCKS" aggregate together.
func NormalizeMerchant(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// AmountFromFloat converts a client-supplied amount, failing fast on NaN, infinities
// and non-positive values so they never reach scoring.
func AmountFromFloat(v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	return decimal.NewFromFloat(v).Round(2), nil
}

// ValidateAmount checks a decimal amount is strictly positive.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
