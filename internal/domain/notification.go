package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationLevel is the severity of a user-facing notification.
type NotificationLevel string

// Notification levels.
const (
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

// Notification is a user-facing message about the outcome of an operation.
type Notification struct {
	ID        uuid.UUID         `json:"id"`
	Owner     string            `json:"owner"`
	Level     NotificationLevel `json:"level"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"created_at"`
}
