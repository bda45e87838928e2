package database

import (
	"time"
)

// Subscriber lifecycle states. An active subscriber has completed email
// verification (or was vouched for by a trusted sign-in provider).
const (
	StatePending = "pending"
	StateActive  = "active"
)

type NewsItem struct {
	ID          string // Database UUID
	Title       string
	Link        string // Absolute URL, unique within a snapshot
	FirstSeenAt time.Time
}

type Subscriber struct {
	ID        string // Database UUID
	Email     string
	State     string
	CreatedAt time.Time
}
