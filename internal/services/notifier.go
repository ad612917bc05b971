package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"spending-guard/internal/models"
)

// Notifier fans notifications out to every registered sink. When alerts are disabled in
// the preferences, notifications are dropped.
type Notifier struct {
	mu    sync.RWMutex
	sinks []NotificationSink

	prefs   PreferencesProvider
	metrics MetricsRecorderInterface
	now     func() time.Time
}

func NewNotifier(prefs PreferencesProvider, metrics MetricsRecorderInterface, sinks ...NotificationSink) *Notifier {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Notifier{
		sinks:   sinks,
		prefs:   prefs,
		metrics: metrics,
		now:     time.Now,
	}
}

func (n *Notifier) AddSink(sink NotificationSink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks = append(n.sinks, sink)
}

// Notify implements NotificationSink.
func (n *Notifier) Notify(ctx context.Context, notification models.Notification) {
	tags := map[string]string{"severity": string(notification.Severity)}

	if n.prefs != nil && !n.prefs.Current().AlertsEnabled {
		n.metrics.IncrementCounter("notification.suppressed", tags)
		return
	}
	if notification.Timestamp.IsZero() {
		notification.Timestamp = n.now()
	}

	n.mu.RLock()
	sinks := make([]NotificationSink, len(n.sinks))
	copy(sinks, n.sinks)
	n.mu.RUnlock()

	for _, sink := range sinks {
		sink.Notify(ctx, notification)
	}
	n.metrics.IncrementCounter("notification.sent", tags)
}

// NewLogSink writes notifications as structured log records.
func NewLogSink(logger *slog.Logger) NotificationSink {
	return NotificationSinkFunc(func(ctx context.Context, n models.Notification) {
		level := slog.LevelInfo
		switch n.Severity {
		case models.NotificationWarning:
			level = slog.LevelWarn
		case models.NotificationCritical:
			level = slog.LevelError
		}
		logger.LogAttrs(ctx, level, "notification",
			slog.String("title", n.Title),
			slog.String("message", n.Message),
			slog.String("source", n.Source),
			slog.String("severity", string(n.Severity)),
		)
	})
}
