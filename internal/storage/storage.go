// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"weather_alerts/internal/model"
)

// ErrNotFound is returned when a subscriber lookup matches no row.
var ErrNotFound = errors.New("subscriber not found")

// Storage is the interface for all persistence operations.
type Storage interface {
	CreateSubscriber(ctx context.Context, sub *model.Subscriber) error
	GetSubscriber(ctx context.Context, id int64) (*model.Subscriber, error)
	GetByPhone(ctx context.Context, phone string) (*model.Subscriber, error)
	GetByToken(ctx context.Context, token string) (*model.Subscriber, error)

	// ListActiveSubscribers returns active subscribers ordered by ascending id.
	// A limit of 0 means no cap.
	ListActiveSubscribers(ctx context.Context, limit int) ([]model.Subscriber, error)

	UpdateSubscriber(ctx context.Context, sub *model.Subscriber) error
	Deactivate(ctx context.Context, id int64) error

	// MarkNotified atomically records a successful send for localDate. It is a
	// single conditional write: if another run already recorded the same local
	// date, no row changes and false is returned.
	MarkNotified(ctx context.Context, id int64, localDate string, at time.Time) (bool, error)

	Close() error
}
