package mail

import (
	"context"
)

// Message is a single outgoing email. HTML is optional; when set the
// message carries both a plain-text and an HTML part.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender submits one message to one recipient. A send either succeeds or
// fails per recipient; the caller decides what a failure means.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
