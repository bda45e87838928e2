package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gecanews/newswatch/app/database"
	"github.com/gecanews/newswatch/app/mail"
	"github.com/gecanews/newswatch/app/scrape"
)

// PollSourceTask runs one scrape cycle: fetch, extract, diff against the
// stored snapshot, replace the snapshot, then hand the delta off to a
// NotifyTask. The run lock serializes cycles so overlapping ticks can never
// interleave their snapshot replaces; a tick that finds a cycle in flight
// is skipped, not queued behind it.
type PollSourceTask struct {
	Task
	runLock          *sync.Mutex
	fetcher          *scrape.Fetcher
	extractor        *scrape.Extractor
	excerptExtractor *scrape.ExcerptExtractor
	newsRepo         database.NewsRepository
	subscriberRepo   database.SubscriberRepository
	scheduler        TaskSchedulerInterface
	notifierRunner   NotifyRunner
	sourceURL        string
	includeExcerpts  bool
}

func NewPollSourceTask(runLock *sync.Mutex, fetcher *scrape.Fetcher, extractor *scrape.Extractor,
	excerptExtractor *scrape.ExcerptExtractor, newsRepo database.NewsRepository,
	subscriberRepo database.SubscriberRepository, scheduler TaskSchedulerInterface,
	notifierRunner NotifyRunner, sourceURL string, includeExcerpts bool) *PollSourceTask {
	return &PollSourceTask{
		Task:             NewTask(TaskTypePollSource, 0),
		runLock:          runLock,
		fetcher:          fetcher,
		extractor:        extractor,
		excerptExtractor: excerptExtractor,
		newsRepo:         newsRepo,
		subscriberRepo:   subscriberRepo,
		scheduler:        scheduler,
		notifierRunner:   notifierRunner,
		sourceURL:        sourceURL,
		includeExcerpts:  includeExcerpts,
	}
}

func (t *PollSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.runLock.TryLock() {
		slog.Warn("Previous poll cycle still in flight, skipping tick")
		return nil
	}
	defer t.runLock.Unlock()

	data, err := t.fetcher.Fetch(ctx, t.sourceURL)
	if err != nil {
		return fmt.Errorf("cycle aborted: %w", err)
	}

	fresh, err := t.extractor.Run(data, t.sourceURL)
	if err != nil {
		return fmt.Errorf("failed to extract news items: %w", err)
	}

	// An empty extraction means the list structure was absent, not that all
	// items were removed. Never wipe the snapshot over a scrape hiccup.
	if len(fresh) == 0 {
		slog.Info("No news items extracted, leaving snapshot untouched")
		return nil
	}

	stored, err := t.newsRepo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	firstSeen := make(map[string]time.Time, len(stored))
	for _, item := range stored {
		firstSeen[item.Link] = item.FirstSeenAt
	}

	known := make(map[string]struct{}, len(firstSeen))
	for link := range firstSeen {
		known[link] = struct{}{}
	}

	delta := scrape.Detect(fresh, known)
	if len(delta) == 0 {
		slog.Debug("No new items this cycle", "total", len(fresh))
		return nil
	}

	now := time.Now().UTC()
	snapshot := make([]database.NewsItem, 0, len(fresh))
	for _, item := range fresh {
		seenAt := now
		if prev, ok := firstSeen[item.Link]; ok {
			seenAt = prev
		}
		snapshot = append(snapshot, database.NewsItem{
			Title:       item.Title,
			Link:        item.Link,
			FirstSeenAt: seenAt,
		})
	}

	// Persist before any notification: notifying about items not durably
	// recorded as seen would duplicate the notification next cycle
	if err := t.newsRepo.ReplaceAll(snapshot); err != nil {
		return fmt.Errorf("cycle aborted before notification: %w", err)
	}

	digest := t.buildDigest(ctx, delta)

	notifyTask := NewNotifyTask(t.subscriberRepo, t.notifierRunner, digest)
	if err := t.scheduler.EnqueueTask(notifyTask); err != nil {
		slog.Error("Failed to enqueue notify task", "items", len(digest), "error", err)
	}

	slog.Info("Task completed",
		"type", "PollSource",
		"duration", t.GetDuration(),
		"total", len(fresh),
		"new", len(delta))

	return nil
}

// buildDigest converts the delta into digest entries, optionally enriched
// with a readable excerpt of each article page. Excerpt failures degrade to
// a bare title/link entry.
func (t *PollSourceTask) buildDigest(ctx context.Context, delta []scrape.Item) []mail.DigestItem {
	digest := make([]mail.DigestItem, 0, len(delta))
	for _, item := range delta {
		entry := mail.DigestItem{Title: item.Title, Link: item.Link}

		if t.includeExcerpts && t.excerptExtractor != nil {
			if page, err := t.fetcher.Fetch(ctx, item.Link); err == nil {
				if excerpt, err := t.excerptExtractor.Run(page); err == nil {
					entry.Excerpt = excerpt
				}
			} else {
				slog.Debug("Excerpt fetch failed", "link", item.Link, "error", err)
			}
		}

		digest = append(digest, entry)
	}
	return digest
}
