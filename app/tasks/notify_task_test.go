package tasks

import (
	"context"
	"testing"

	"github.com/gecanews/newswatch/app/database"
	"github.com/gecanews/newswatch/app/mail"
)

func TestNotifyTaskFansOutToActiveOnly(t *testing.T) {
	repo := &MockSubscriberRepo{subs: []database.Subscriber{
		{Email: "active@example.edu", State: database.StateActive},
		{Email: "pending@example.edu", State: database.StatePending},
	}}
	runner := &MockNotifyRunner{}

	items := []mail.DigestItem{{Title: "T1", Link: "https://example.edu/1"}}
	task := NewNotifyTask(repo, runner, items)
	task.Start()

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("Expected 1 fan-out invocation, got: %d", len(runner.calls))
	}
	if len(runner.calls[0]) != 1 || runner.calls[0][0].Title != "T1" {
		t.Errorf("Expected delta passed through, got: %+v", runner.calls[0])
	}
}

func TestNotifyTaskNoSubscribers(t *testing.T) {
	repo := &MockSubscriberRepo{}
	runner := &MockNotifyRunner{}

	task := NewNotifyTask(repo, runner, []mail.DigestItem{{Title: "T1", Link: "https://example.edu/1"}})
	task.Start()

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("Expected no fan-out without subscribers, got: %d", len(runner.calls))
	}
}

func TestTaskRetryBookkeeping(t *testing.T) {
	task := NewTask(TaskTypePollSource, 0)

	if task.CanRetry() {
		t.Error("Expected pipeline task with max retries 0 to never retry")
	}
	if task.GetDuration() != 0 {
		t.Error("Expected zero duration before Start")
	}

	task.Start()
	if task.GetDuration() < 0 {
		t.Error("Expected non-negative duration after Start")
	}

	retryable := NewTask(TaskTypeNotify, 2)
	if !retryable.CanRetry() {
		t.Error("Expected task with retries remaining to be retryable")
	}
	retryable.IncrementRetryCount()
	retryable.IncrementRetryCount()
	if retryable.CanRetry() {
		t.Error("Expected task at max retries to stop retrying")
	}
}
