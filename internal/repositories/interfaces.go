package repositories

import (
	"context"

	"spending-guard/internal/models"

	"github.com/google/uuid"
)

// TransactionRepositoryInterface defines the contract for the append-only transaction store
type TransactionRepositoryInterface interface {
	Create(ctx context.Context, transaction *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	// ListAll returns every stored transaction ordered by timestamp ascending.
	ListAll(ctx context.Context) ([]models.Transaction, error)
	Count(ctx context.Context) (int64, error)
}

// PreferenceRepositoryInterface defines the contract for the flat key-value preference store
type PreferenceRepositoryInterface interface {
	GetAll(ctx context.Context) (map[string]string, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, key string) error
}
