package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/metrics"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"

	"github.com/robfig/cron/v3"
)

var errPaymentFailed = errors.New("payment failed")

// AuctionScheduler polls the task table on a fixed interval and runs every due
// task. A task is deleted once it succeeds; a failed task stays in place and
// is retried on the next tick.
type AuctionScheduler struct {
	cron       *cron.Cron
	store      domain.Store
	settlement *SettlementProcessor
	leader     domain.LeaderElection
	instanceID string
	interval   time.Duration
	log        logger.Logger
	now        func() time.Time
}

// NewAuctionScheduler builds a scheduler. A nil leader makes every tick run,
// which suits single-instance deployments and tests.
func NewAuctionScheduler(
	store domain.Store,
	settlement *SettlementProcessor,
	leader domain.LeaderElection,
	instanceID string,
	interval time.Duration,
	log logger.Logger,
) *AuctionScheduler {
	cronLog := cronLogger{log: log}
	return &AuctionScheduler{
		cron:       cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.SkipIfStillRunning(cronLog))),
		store:      store,
		settlement: settlement,
		leader:     leader,
		instanceID: instanceID,
		interval:   interval,
		log:        log,
		now:        time.Now,
	}
}

func (s *AuctionScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting auction scheduler", "interval", s.interval.String())

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Error("Scheduler tick failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("register scheduler tick: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop halts the ticker and waits for a running tick to finish.
func (s *AuctionScheduler) Stop() {
	s.log.Info("Stopping auction scheduler")
	<-s.cron.Stop().Done()
}

func (s *AuctionScheduler) ScheduleClose(ctx context.Context, repos domain.Repositories, listingID string, closeAt time.Time) error {
	// An edited listing keeps exactly one pending close.
	if err := repos.Tasks.DeleteTasksForListing(ctx, listingID, domain.TaskCloseAuction); err != nil {
		return fmt.Errorf("replace close task: %w", err)
	}

	task := &domain.ScheduledTask{
		ID:        utils.GenerateID("task"),
		Kind:      domain.TaskCloseAuction,
		ListingID: listingID,
		Payload:   domain.TaskPayload{ListingID: listingID},
		ExecuteAt: closeAt,
		CreatedAt: s.now(),
	}
	if err := repos.Tasks.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("create close task: %w", err)
	}

	s.log.Debug("Scheduled auction close", "listing_id", listingID, "task_id", task.ID, "execute_at", closeAt)
	return nil
}

func (s *AuctionScheduler) CancelClose(ctx context.Context, repos domain.Repositories, listingID string) error {
	return repos.Tasks.DeleteTasksForListing(ctx, listingID, domain.TaskCloseAuction)
}

// RunOnce performs a single tick: load every due task and run them in
// execution order. Only the leader instance processes tasks.
func (s *AuctionScheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.SchedulerTickDuration.Observe(time.Since(start).Seconds())
	}()

	if s.leader != nil {
		isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
		if err != nil {
			return fmt.Errorf("check leadership: %w", err)
		}
		if !isLeader {
			return nil
		}
	}

	var tasks []*domain.ScheduledTask
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		tasks, err = repos.Tasks.GetDueTasks(ctx, s.now())
		return err
	})
	if err != nil {
		return fmt.Errorf("load due tasks: %w", err)
	}

	for _, task := range tasks {
		s.processTask(ctx, task)
	}
	return nil
}

func (s *AuctionScheduler) processTask(ctx context.Context, task *domain.ScheduledTask) {
	log := s.log.With("task_id", task.ID, "kind", task.Kind.String(), "listing_id", task.ListingID)

	done, err := s.dispatch(ctx, task)
	if err != nil {
		metrics.SchedulerTasksTotal.WithLabelValues(task.Kind.String(), "failed").Inc()
		log.Error("Failed to execute task", "attempts", task.Attempts+1, "error", err)

		recordErr := s.store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
			return repos.Tasks.RecordFailure(ctx, task.ID, err.Error())
		})
		if recordErr != nil {
			log.Error("Failed to record task failure", "error", recordErr)
		}
		return
	}

	if !done {
		metrics.SchedulerTasksTotal.WithLabelValues(task.Kind.String(), "deferred").Inc()
		log.Debug("Task deferred")
		return
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		return repos.Tasks.DeleteTask(ctx, task.ID)
	})
	if err != nil {
		// The task runs again next tick; settlement is idempotent.
		log.Error("Failed to delete completed task", "error", err)
		return
	}

	metrics.SchedulerTasksTotal.WithLabelValues(task.Kind.String(), "completed").Inc()
	log.Info("Task completed")
}

// dispatch runs the task. done is false when the task should stay queued
// without counting as a failure.
func (s *AuctionScheduler) dispatch(ctx context.Context, task *domain.ScheduledTask) (done bool, err error) {
	switch task.Kind {
	case domain.TaskCloseAuction:
		listingID := task.Payload.ListingID
		if listingID == "" {
			listingID = task.ListingID
		}

		outcome, err := s.settlement.settle(ctx, listingID, task.Attempts == 0)
		if err != nil {
			return false, err
		}

		switch outcome.Status {
		case SettlementPaymentFailed:
			return false, fmt.Errorf("%w: %s", errPaymentFailed, outcome.Reason)
		case SettlementNotDue:
			return false, nil
		default:
			return true, nil
		}
	default:
		return false, fmt.Errorf("%w: %d", domain.ErrUnknownTaskKind, int(task.Kind))
	}
}

// cronLogger routes robfig/cron's internal logging through our logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
