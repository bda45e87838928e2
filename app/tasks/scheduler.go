package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gecanews/newswatch/app/database"
	"github.com/gecanews/newswatch/app/scrape"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	fetcher          *scrape.Fetcher
	extractor        *scrape.Extractor
	excerptExtractor *scrape.ExcerptExtractor
	newsRepo         database.NewsRepository
	subscriberRepo   database.SubscriberRepository
	notifier         NotifyRunner
	sourceURL        string
	includeExcerpts  bool
	interval         time.Duration
	workerCount      int
	runLock          sync.Mutex
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface
}

func NewScheduler(fetcher *scrape.Fetcher, extractor *scrape.Extractor,
	excerptExtractor *scrape.ExcerptExtractor, newsRepo database.NewsRepository,
	subscriberRepo database.SubscriberRepository, notifier NotifyRunner,
	sourceURL string, includeExcerpts bool, interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		fetcher:          fetcher,
		extractor:        extractor,
		excerptExtractor: excerptExtractor,
		newsRepo:         newsRepo,
		subscriberRepo:   subscriberRepo,
		notifier:         notifier,
		sourceURL:        sourceURL,
		includeExcerpts:  includeExcerpts,
		interval:         interval,
		workerCount:      workerCount,
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, 100),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueuePollTask()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueuePollTask()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueuePollTask() {
	task := NewPollSourceTask(&s.runLock, s.fetcher, s.extractor, s.excerptExtractor,
		s.newsRepo, s.subscriberRepo, s, s.notifier, s.sourceURL, s.includeExcerpts)
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue poll task", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		}
	}
}
