package models

import "time"

type NotificationSeverity string

const (
	NotificationInfo     NotificationSeverity = "info"
	NotificationWarning  NotificationSeverity = "warning"
	NotificationCritical NotificationSeverity = "critical"
)

// Notification is the structured event handed to notification sinks.
type Notification struct {
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Severity  NotificationSeverity `json:"severity"`
	Source    string               `json:"source"`
	Timestamp time.Time            `json:"timestamp"`
}
