package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"weather_alerts/internal/model"
	"weather_alerts/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateSubscriber inserts a new subscriber and populates its ID and CreatedAt.
func (s *SQLite) CreateSubscriber(ctx context.Context, sub *model.Subscriber) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscribers
		   (phone, country, postal_code, location_name, lat, lon, timezone,
		    last_sent_local_date, is_active, unsubscribe_token, created_at, last_notified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.Phone, sub.Country, sub.PostalCode, nullIfEmpty(sub.LocationName),
		sub.Lat, sub.Lon, nullIfEmpty(sub.Timezone), nullIfEmpty(sub.LastSentDate),
		boolToInt(sub.IsActive), sub.UnsubscribeToken, now, nil,
	)
	if err != nil {
		return fmt.Errorf("insert subscriber: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	sub.ID = id
	sub.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

const subscriberColumns = `id, phone, country, postal_code, location_name, lat, lon, timezone,
	last_sent_local_date, is_active, unsubscribe_token, created_at, last_notified_at`

// GetSubscriber returns a single subscriber by its ID.
func (s *SQLite) GetSubscriber(ctx context.Context, id int64) (*model.Subscriber, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE id = ?`, id)
	return scanSubscriber(row)
}

// GetByPhone returns the subscriber with the given phone number.
func (s *SQLite) GetByPhone(ctx context.Context, phone string) (*model.Subscriber, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE phone = ?`, phone)
	return scanSubscriber(row)
}

// GetByToken returns the subscriber with the given unsubscribe token.
func (s *SQLite) GetByToken(ctx context.Context, token string) (*model.Subscriber, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE unsubscribe_token = ?`, token)
	return scanSubscriber(row)
}

// ListActiveSubscribers returns active subscribers ordered by ascending id,
// capped at limit when limit > 0.
func (s *SQLite) ListActiveSubscribers(ctx context.Context, limit int) ([]model.Subscriber, error) {
	q := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE is_active = 1 ORDER BY id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query active subscribers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []model.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// UpdateSubscriber persists changes to an existing subscriber.
func (s *SQLite) UpdateSubscriber(ctx context.Context, sub *model.Subscriber) error {
	var lastNotified *string
	if sub.LastNotifiedAt != nil {
		v := sub.LastNotifiedAt.UTC().Format(timeLayout)
		lastNotified = &v
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE subscribers
		 SET phone = ?, country = ?, postal_code = ?, location_name = ?, lat = ?, lon = ?,
		     timezone = ?, last_sent_local_date = ?, is_active = ?, unsubscribe_token = ?,
		     last_notified_at = ?
		 WHERE id = ?`,
		sub.Phone, sub.Country, sub.PostalCode, nullIfEmpty(sub.LocationName),
		sub.Lat, sub.Lon, nullIfEmpty(sub.Timezone), nullIfEmpty(sub.LastSentDate),
		boolToInt(sub.IsActive), sub.UnsubscribeToken, lastNotified, sub.ID,
	)
	if err != nil {
		return fmt.Errorf("update subscriber: %w", err)
	}
	return nil
}

// Deactivate marks a subscriber inactive.
func (s *SQLite) Deactivate(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE subscribers SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate subscriber: %w", err)
	}
	return nil
}

// MarkNotified records a successful send for localDate in one conditional
// UPDATE, so two overlapping runs cannot both claim the same local day.
func (s *SQLite) MarkNotified(ctx context.Context, id int64, localDate string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscribers
		 SET last_sent_local_date = ?, last_notified_at = ?
		 WHERE id = ? AND (last_sent_local_date IS NULL OR last_sent_local_date <> ?)`,
		localDate, at.UTC().Format(timeLayout), id, localDate,
	)
	if err != nil {
		return false, fmt.Errorf("mark notified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSubscriber(row scannable) (*model.Subscriber, error) {
	var sub model.Subscriber
	var isActive int
	var locationName, timezone, lastSent, created, lastNotified sql.NullString
	err := row.Scan(&sub.ID, &sub.Phone, &sub.Country, &sub.PostalCode, &locationName,
		&sub.Lat, &sub.Lon, &timezone, &lastSent, &isActive, &sub.UnsubscribeToken,
		&created, &lastNotified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscriber: %w", err)
	}
	sub.IsActive = isActive == 1
	sub.LocationName = locationName.String
	sub.Timezone = timezone.String
	sub.LastSentDate = lastSent.String
	if created.Valid {
		sub.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	if lastNotified.Valid {
		t, _ := time.Parse(timeLayout, lastNotified.String)
		sub.LastNotifiedAt = &t
	}
	return &sub, nil
}
