package services

import (
	"context"
	"log/slog"
	"sync"

	"spending-guard/internal/config"
	"spending-guard/internal/models"
	"spending-guard/internal/repositories"
)

// PreferencesService holds the current preferences in memory and writes every change
// through to the key-value store. Store failures never surface to callers.
type PreferencesService struct {
	mu       sync.RWMutex
	current  models.Preferences
	defaults models.Preferences
	onChange []func(models.Preferences)

	store  repositories.PreferenceRepositoryInterface
	logger *slog.Logger
}

func NewPreferencesService(store repositories.PreferenceRepositoryInterface, defaults models.Preferences, logger *slog.Logger) *PreferencesService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferencesService{
		current:  defaults,
		defaults: defaults,
		store:    store,
		logger:   logger,
	}
}

// PreferencesFromDefaults converts configured defaults to a preferences record.
func PreferencesFromDefaults(d config.PreferenceDefaults) models.Preferences {
	return models.Preferences{
		DailyLimit:      d.DailyLimit,
		WeeklyLimit:     d.WeeklyLimit,
		MonthlyLimit:    d.MonthlyLimit,
		TrackingEnabled: d.TrackingEnabled,
		AlertsEnabled:   d.AlertsEnabled,
	}
}

// OnChange registers fn to run after every successful Load or Update.
func (s *PreferencesService) OnChange(fn func(models.Preferences)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *PreferencesService) Current() models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *PreferencesService) Defaults() models.Preferences {
	return s.defaults
}

// Load overlays stored values on the defaults. Unreadable or invalid stored values
// leave the defaults in place.
func (s *PreferencesService) Load(ctx context.Context) models.Preferences {
	if s.store == nil {
		return s.Current()
	}

	kv, err := s.store.GetAll(ctx)
	if err != nil {
		s.logger.Warn("failed to load preferences, using defaults", "error", err)
		return s.Current()
	}

	loaded, err := models.PreferencesFromKeyValues(s.defaults, kv)
	if err != nil {
		s.logger.Warn("ignoring malformed stored preferences", "error", err)
	}
	if err := loaded.Validate(); err != nil {
		s.logger.Warn("stored preferences invalid, using defaults", "error", err)
		return s.Current()
	}

	s.set(loaded)
	s.logger.Info("preferences loaded",
		"daily_limit", loaded.DailyLimit.String(),
		"weekly_limit", loaded.WeeklyLimit.String(),
		"monthly_limit", loaded.MonthlyLimit.String(),
	)
	return loaded
}

// Update validates and applies prefs. Only validation errors are returned.
func (s *PreferencesService) Update(ctx context.Context, prefs models.Preferences) (models.Preferences, error) {
	if err := prefs.Validate(); err != nil {
		return models.Preferences{}, err
	}

	s.set(prefs)

	if s.store != nil {
		if err := s.store.SetMany(ctx, prefs.ToKeyValues()); err != nil {
			s.logger.Warn("failed to persist preferences", "error", err)
		}
	}
	return prefs, nil
}

func (s *PreferencesService) set(prefs models.Preferences) {
	s.mu.Lock()
	s.current = prefs
	hooks := append([]func(models.Preferences){}, s.onChange...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(prefs)
	}
}
