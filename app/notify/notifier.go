package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gecanews/newswatch/app/database"
	"github.com/gecanews/newswatch/app/mail"
	"github.com/gecanews/newswatch/app/token"
)

// SendResult is the outcome of one recipient's send.
type SendResult struct {
	Email string
	Err   error
}

// Notifier fans a news digest out to the active subscriber set, one
// personalized message per recipient. Sends are independent: a failure for
// one recipient never prevents the others, and no failure escalates past
// this component.
type Notifier struct {
	sender         mail.Sender
	composer       *mail.Composer
	signer         *token.Signer
	unsubscribeTTL time.Duration
}

func NewNotifier(sender mail.Sender, composer *mail.Composer, signer *token.Signer,
	unsubscribeTTL time.Duration) *Notifier {
	return &Notifier{
		sender:         sender,
		composer:       composer,
		signer:         signer,
		unsubscribeTTL: unsubscribeTTL,
	}
}

// Run dispatches one digest per subscriber concurrently and collects
// per-recipient outcomes.
func (n *Notifier) Run(ctx context.Context, items []mail.DigestItem, subscribers []database.Subscriber) []SendResult {
	if len(items) == 0 || len(subscribers) == 0 {
		return nil
	}

	results := make([]SendResult, len(subscribers))
	var wg sync.WaitGroup

	for i, sub := range subscribers {
		wg.Add(1)
		go func(i int, sub database.Subscriber) {
			defer wg.Done()
			results[i] = SendResult{Email: sub.Email, Err: n.send(ctx, items, sub)}
		}(i, sub)
	}

	wg.Wait()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			slog.Error("Notification send failed", "email", res.Email, "error", res.Err)
		}
	}

	slog.Info("Notification fan-out completed",
		"items", len(items),
		"recipients", len(subscribers),
		"failed", failed)

	return results
}

func (n *Notifier) send(ctx context.Context, items []mail.DigestItem, sub database.Subscriber) error {
	unsubToken, err := n.signer.Issue(sub.Email, token.PurposeUnsubscribe, n.unsubscribeTTL)
	if err != nil {
		return err
	}

	msg := n.composer.DigestMessage(sub.Email, items, unsubToken)
	return n.sender.Send(ctx, msg)
}
