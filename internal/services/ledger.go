package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"spending-guard/internal/models"
	"spending-guard/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateTransaction = errors.New("transaction already recorded")
	ErrTransactionNil       = errors.New("transaction cannot be nil")
)

// MerchantLocation is the last place a merchant was seen in the ledger.
type MerchantLocation struct {
	Merchant string            `json:"merchant"`
	Location models.Coordinate `json:"location"`
}

// Ledger is the append-only, in-memory list of recorded transactions. Every query scans
// the full list, which is fine for a single user's history.
type Ledger struct {
	mu           sync.RWMutex
	transactions []models.Transaction
	ids          map[uuid.UUID]struct{}

	store   repositories.TransactionRepositoryInterface
	breaker CircuitBreakerInterface
	metrics MetricsRecorderInterface
	logger  *slog.Logger
	now     func() time.Time
}

// NewLedger creates a ledger. store may be nil for a purely in-memory session.
func NewLedger(store repositories.TransactionRepositoryInterface, metrics MetricsRecorderInterface, logger *slog.Logger) *Ledger {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		ids:     make(map[uuid.UUID]struct{}),
		store:   store,
		breaker: NewCircuitBreaker(DefaultCircuitBreakerConfig()),
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Append validates tx, assigns an ID when missing and appends a copy. The write-through
// to the store happens after the in-memory append and its failure is only logged.
func (l *Ledger) Append(ctx context.Context, tx *models.Transaction) error {
	if tx == nil {
		return ErrTransactionNil
	}
	if err := tx.Validate(); err != nil {
		l.metrics.IncrementCounter("transaction.rejected", map[string]string{"reason": "validation"})
		return err
	}

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = l.now().UTC()
	}

	l.mu.Lock()
	if _, exists := l.ids[tx.ID]; exists {
		l.mu.Unlock()
		l.metrics.IncrementCounter("transaction.rejected", map[string]string{"reason": "duplicate"})
		return fmt.Errorf("%w: %s", ErrDuplicateTransaction, tx.ID)
	}
	l.ids[tx.ID] = struct{}{}
	l.transactions = append(l.transactions, *tx)
	size := len(l.transactions)
	l.mu.Unlock()

	l.metrics.IncrementCounter("transaction.recorded", map[string]string{"category": tx.Category})
	l.metrics.RecordGauge("ledger.size", float64(size), nil)

	l.persist(ctx, *tx)
	return nil
}

func (l *Ledger) persist(ctx context.Context, tx models.Transaction) {
	if l.store == nil {
		return
	}

	if l.breaker.IsOpen() {
		l.metrics.IncrementCounter("ledger.persist.skipped", nil)
		l.logger.Debug("transaction store circuit open, skipping write", "transaction_id", tx.ID)
		return
	}

	if err := l.store.Create(ctx, &tx); err != nil {
		l.breaker.RecordFailure()
		l.metrics.IncrementCounter("ledger.persist.failed", nil)
		l.logger.Warn("failed to persist transaction",
			"transaction_id", tx.ID,
			"merchant", tx.Merchant,
			"error", err,
		)
	} else {
		l.breaker.RecordSuccess()
	}
	l.metrics.RecordGauge("circuit_breaker.state", float64(l.breaker.GetState()), map[string]string{"service": "transaction_store"})
}

// Hydrate loads persisted transactions into memory and returns those that were added,
// oldest first. Invalid or already-present rows are skipped.
func (l *Ledger) Hydrate(ctx context.Context) ([]models.Transaction, error) {
	if l.store == nil {
		return nil, nil
	}

	stored, err := l.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	added := make([]models.Transaction, 0, len(stored))

	l.mu.Lock()
	for i := range stored {
		tx := stored[i]
		if err := tx.Validate(); err != nil {
			l.logger.Warn("skipping invalid stored transaction", "transaction_id", tx.ID, "error", err)
			continue
		}
		if _, exists := l.ids[tx.ID]; exists {
			continue
		}
		l.ids[tx.ID] = struct{}{}
		l.transactions = append(l.transactions, tx)
		added = append(added, tx)
	}
	size := len(l.transactions)
	l.mu.Unlock()

	l.metrics.RecordGauge("ledger.size", float64(size), nil)
	l.logger.Info("ledger hydrated", "loaded", len(added), "total", size)

	return added, nil
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.transactions)
}

func (l *Ledger) Get(id uuid.UUID) (models.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.ids[id]; !ok {
		return models.Transaction{}, false
	}
	for _, tx := range l.transactions {
		if tx.ID == id {
			return tx, true
		}
	}
	return models.Transaction{}, false
}

// All returns a copy of every transaction in append order.
func (l *Ledger) All() []models.Transaction {
	return l.collect(func(*models.Transaction) bool { return true })
}

// Filter returns matching transactions newest first, paginated, plus the total match count.
func (l *Ledger) Filter(filters models.TransactionFilters) ([]models.Transaction, int) {
	matched := l.collect(filters.Matches)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := len(matched)
	if filters.Offset >= total {
		return []models.Transaction{}, total
	}
	end := total
	if filters.Limit > 0 && filters.Offset+filters.Limit < total {
		end = filters.Offset + filters.Limit
	}
	return matched[filters.Offset:end], total
}

func (l *Ledger) ByMerchant(merchant string) []models.Transaction {
	key := models.NormalizeMerchant(merchant)
	return l.collect(func(tx *models.Transaction) bool { return tx.MerchantKey() == key })
}

// Since returns transactions with a timestamp at or after t.
func (l *Ledger) Since(t time.Time) []models.Transaction {
	return l.collect(func(tx *models.Transaction) bool { return !tx.Timestamp.Before(t) })
}

func (l *Ledger) MerchantSince(merchant string, t time.Time) []models.Transaction {
	key := models.NormalizeMerchant(merchant)
	return l.collect(func(tx *models.Transaction) bool {
		return tx.MerchantKey() == key && !tx.Timestamp.Before(t)
	})
}

// SpentBetween sums amounts with from <= timestamp < to.
func (l *Ledger) SpentBetween(from, to time.Time) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := decimal.Zero
	for i := range l.transactions {
		ts := l.transactions[i].Timestamp
		if !ts.Before(from) && ts.Before(to) {
			total = total.Add(l.transactions[i].Amount)
		}
	}
	return total
}

// MerchantSpentSince sums a merchant's amounts at or after t.
func (l *Ledger) MerchantSpentSince(merchant string, t time.Time) decimal.Decimal {
	return sumAmounts(l.MerchantSince(merchant, t))
}

// KnownMerchantLocations returns the most recent location recorded for each merchant.
func (l *Ledger) KnownMerchantLocations() []MerchantLocation {
	l.mu.RLock()
	latest := make(map[string]models.Transaction)
	for _, tx := range l.transactions {
		if tx.Location() == nil {
			continue
		}
		key := tx.MerchantKey()
		if prev, ok := latest[key]; !ok || !tx.Timestamp.Before(prev.Timestamp) {
			latest[key] = tx
		}
	}
	l.mu.RUnlock()

	locations := make([]MerchantLocation, 0, len(latest))
	for _, tx := range latest {
		locations = append(locations, MerchantLocation{Merchant: tx.Merchant, Location: *tx.Location()})
	}
	sort.Slice(locations, func(i, j int) bool { return locations[i].Merchant < locations[j].Merchant })
	return locations
}

// CategorySummary groups spend with from <= timestamp < to by category, largest first.
// Transactions without a category are reported under OTHER.
func (l *Ledger) CategorySummary(from, to time.Time) []models.CategorySummary {
	byCategory := make(map[string]*models.CategorySummary)
	for _, tx := range l.collect(func(tx *models.Transaction) bool {
		return !tx.Timestamp.Before(from) && tx.Timestamp.Before(to)
	}) {
		category := tx.Category
		if category == "" {
			category = models.CategoryOther
		}
		summary, ok := byCategory[category]
		if !ok {
			summary = &models.CategorySummary{Category: category, TotalAmount: decimal.Zero}
			byCategory[category] = summary
		}
		summary.TransactionCount++
		summary.TotalAmount = summary.TotalAmount.Add(tx.Amount)
	}

	summaries := make([]models.CategorySummary, 0, len(byCategory))
	for _, summary := range byCategory {
		summary.AverageAmount = summary.TotalAmount.Div(decimal.NewFromInt(summary.TransactionCount)).Round(2)
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].TotalAmount.Equal(summaries[j].TotalAmount) {
			return summaries[i].TotalAmount.GreaterThan(summaries[j].TotalAmount)
		}
		return summaries[i].Category < summaries[j].Category
	})
	return summaries
}

// StoreState reports the transaction store circuit breaker state.
func (l *Ledger) StoreState() CircuitBreakerState {
	return l.breaker.GetState()
}

func (l *Ledger) collect(match func(*models.Transaction) bool) []models.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Transaction, 0)
	for i := range l.transactions {
		if match(&l.transactions[i]) {
			out = append(out, l.transactions[i])
		}
	}
	return out
}

func sumAmounts(txs []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}
