package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spending-guard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPreferenceNotFound = errors.New("preference not found")
)

type preferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository creates a key-value preference store backed by the preferences table
func NewPreferenceRepository(db *gorm.DB) PreferenceRepositoryInterface {
	return &preferenceRepository{
		db: db,
	}
}

func (r *preferenceRepository) GetAll(ctx context.Context) (map[string]string, error) {
	var entries []models.PreferenceEntry
	if err := r.db.WithContext(ctx).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	values := make(map[string]string, len(entries))
	for _, e := range entries {
		values[e.Key] = e.Value
	}
	return values, nil
}

func (r *preferenceRepository) Get(ctx context.Context, key string) (string, error) {
	var entry models.PreferenceEntry
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrPreferenceNotFound
		}
		return "", fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return entry.Value, nil
}

func (r *preferenceRepository) Set(ctx context.Context, key, value string) error {
	return r.SetMany(ctx, map[string]string{key: value})
}

// SetMany upserts all values in a single database transaction
func (r *preferenceRepository) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	now := time.Now().UTC()
	entries := make([]models.PreferenceEntry, 0, len(values))
	for k, v := range values {
		entries = append(entries, models.PreferenceEntry{Key: k, Value: v, UpdatedAt: now})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&entries).Error
		if err != nil {
			return fmt.Errorf("failed to save preferences: %w", err)
		}
		return nil
	})
}

func (r *preferenceRepository) Delete(ctx context.Context, key string) error {
	result := r.db.WithContext(ctx).Where("key = ?", key).Delete(&models.PreferenceEntry{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPreferenceNotFound
	}
	return nil
}
