// Package notifier delivers user-facing notifications about ledger operations.
package notifier

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// Notifier delivers a notification.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Log writes notifications to the request logger.
type Log struct{}

// Notify logs n at info level, or at warn level for errors.
func (Log) Notify(ctx context.Context, n domain.Notification) error {
	l := zerolog.Ctx(ctx)

	event := l.Info()
	if n.Level == domain.LevelError {
		event = l.Warn()
	}

	event.
		Str("notification_id", n.ID.String()).
		Str("owner", n.Owner).
		Str("title", n.Title).
		Msg(n.Message)

	return nil
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify delivers n to every notifier, even if some of them fail.
func (m Multi) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error

	for _, nt := range m {
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
