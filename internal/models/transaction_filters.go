package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionFilters contains filtering options for transaction queries
type TransactionFilters struct {
	Merchant  string
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Offset    int
	Limit     int
}

// Matches reports whether tx satisfies every set filter. Merchant matching is a
// case-insensitive substring match. Offset and Limit are applied by the caller.
func (f TransactionFilters) Matches(tx *Transaction) bool {
	if f.Merchant != "" && !strings.Contains(tx.MerchantKey(), NormalizeMerchant(f.Merchant)) {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.StartDate != nil && tx.Timestamp.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && tx.Timestamp.After(*f.EndDate) {
		return false
	}
	if f.MinAmount != nil && tx.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && tx.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	return true
}
