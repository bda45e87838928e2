package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gecanews/newswatch/app/database"
	"github.com/gecanews/newswatch/app/mail"
	"github.com/gecanews/newswatch/app/notify"
)

// NotifyRunner is the fan-out the task delegates to.
type NotifyRunner interface {
	Run(ctx context.Context, items []mail.DigestItem, subscribers []database.Subscriber) []notify.SendResult
}

// NotifyTask delivers one cycle's delta to the active subscriber set.
// Per-recipient failures are already recorded by the notifier; nothing
// here escalates them, so a half-failed fan-out never blocks the next
// poll cycle.
type NotifyTask struct {
	Task
	subscriberRepo database.SubscriberRepository
	notifier       NotifyRunner
	items          []mail.DigestItem
}

func NewNotifyTask(subscriberRepo database.SubscriberRepository, notifier NotifyRunner,
	items []mail.DigestItem) *NotifyTask {
	return &NotifyTask{
		Task:           NewTask(TaskTypeNotify, 0),
		subscriberRepo: subscriberRepo,
		notifier:       notifier,
		items:          items,
	}
}

func (t *NotifyTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	subscribers, err := t.subscriberRepo.GetActive()
	if err != nil {
		return fmt.Errorf("failed to read active subscribers: %w", err)
	}

	if len(subscribers) == 0 {
		slog.Debug("No active subscribers, skipping fan-out", "items", len(t.items))
		return nil
	}

	results := t.notifier.Run(ctx, t.items, subscribers)

	sent := 0
	for _, res := range results {
		if res.Err == nil {
			sent++
		}
	}

	slog.Info("Task completed",
		"type", "Notify",
		"duration", t.GetDuration(),
		"items", len(t.items),
		"sent", sent,
		"failed", len(results)-sent)

	return nil
}
