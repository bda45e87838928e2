package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrDuplicateEmail is returned when an insert collides with the unique
// index on subscribers.email. Concurrent subscribe attempts for the same
// address resolve through this error: exactly one insert wins.
var ErrDuplicateEmail = errors.New("subscriber email already exists")

var _ SubscriberRepository = (*SubscriberRepositoryImpl)(nil)

// SubscriberRepositoryImpl handles database operations for subscribers
type SubscriberRepositoryImpl struct {
	db *DB
}

func NewSubscriberRepository(db *DB) *SubscriberRepositoryImpl {
	return &SubscriberRepositoryImpl{db: db}
}

func (r *SubscriberRepositoryImpl) GetByEmail(email string) (*Subscriber, error) {
	var sub Subscriber
	err := r.db.QueryRow(`
		SELECT id, email, state, created_at
		FROM subscribers
		WHERE email = $1
	`, email).Scan(&sub.ID, &sub.Email, &sub.State, &sub.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}

	return &sub, nil
}

// GetActive returns the subscribers eligible for notification fan-out
func (r *SubscriberRepositoryImpl) GetActive() ([]Subscriber, error) {
	return r.getByQuery(`
		SELECT id, email, state, created_at
		FROM subscribers
		WHERE state = $1
		ORDER BY created_at
	`, StateActive)
}

func (r *SubscriberRepositoryImpl) GetAll() ([]Subscriber, error) {
	return r.getByQuery(`
		SELECT id, email, state, created_at
		FROM subscribers
		ORDER BY created_at
	`)
}

func (r *SubscriberRepositoryImpl) getByQuery(query string, args ...any) ([]Subscriber, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscribers: %w", err)
	}
	defer rows.Close()

	var subs []Subscriber
	for rows.Next() {
		var sub Subscriber
		err := rows.Scan(&sub.ID, &sub.Email, &sub.State, &sub.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscriber row: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriber rows: %w", err)
	}

	return subs, nil
}

func (r *SubscriberRepositoryImpl) GetCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM subscribers").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get subscriber count: %w", err)
	}
	return count, nil
}

func (r *SubscriberRepositoryImpl) Insert(email, state string) (*Subscriber, error) {
	var sub Subscriber
	err := r.db.QueryRow(`
		INSERT INTO subscribers (email, state)
		VALUES ($1, $2)
		RETURNING id, email, state, created_at
	`, email, state).Scan(&sub.ID, &sub.Email, &sub.State, &sub.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to insert subscriber: %w", err)
	}

	return &sub, nil
}

// Delete removes a subscriber. Deleting a non-existent record is not an
// error, which makes unsubscribe idempotent.
func (r *SubscriberRepositoryImpl) Delete(email string) error {
	_, err := r.db.Exec(`DELETE FROM subscribers WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("failed to delete subscriber: %w", err)
	}
	return nil
}
