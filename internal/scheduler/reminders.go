// Package scheduler runs the periodic background jobs: due-soon task
// reminders and the daily reset of completed recurring tasks.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mrfrench/backend/internal/history"
	"github.com/mrfrench/backend/internal/models"
	"github.com/mrfrench/backend/internal/storage"
	"github.com/mrfrench/backend/internal/tasks"
	"go.uber.org/zap"
)

const reminderHorizon = 24 * time.Hour

type Scheduler struct {
	store    storage.TaskStore
	log      history.Log
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func New(store storage.TaskStore, log history.Log, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		store:    store,
		log:      log,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock overrides the scheduler's clock. Test hook.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Run executes both jobs on the configured interval until ctx is cancelled.
// Job errors are logged and the loop continues; a flaky store never kills
// the scheduler.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one pass of both jobs. Exported so callers and tests can drive
// the scheduler without the ticker.
func (s *Scheduler) Tick(ctx context.Context) {
	if err := s.SendDueReminders(ctx); err != nil {
		s.logger.Error("reminder pass failed", zap.Error(err))
	}
	if err := s.ResetRecurringTasks(ctx); err != nil {
		s.logger.Error("recurring reset pass failed", zap.Error(err))
	}
}

// SendDueReminders nudges Timmy about every pending task whose deadline is
// in the future but within the next 24 hours.
func (s *Scheduler) SendDueReminders(ctx context.Context) error {
	pending, err := s.store.List(ctx, models.StatusPending)
	if err != nil {
		return fmt.Errorf("list pending tasks: %w", err)
	}

	now := s.now()
	sent := 0
	for _, t := range pending {
		deadline, _, ok := tasks.ResolveDeadline(t.DueDate, t.DueTime, now)
		if !ok {
			continue
		}
		until := deadline.Sub(now)
		if until <= 0 || until > reminderHorizon {
			continue
		}

		content := fmt.Sprintf("Reminder: you have a pending task '%s' due %s.",
			t.Task, tasks.FormatDeadline(t.DueDate, t.DueTime, now))
		err := s.log.Append(ctx, models.Message{
			Channel:   models.ChannelChildMediator,
			Role:      models.RoleAssistant,
			Sender:    models.SpeakerMediator,
			Content:   content,
			Timestamp: now,
		})
		if err != nil {
			s.logger.Error("failed to append reminder", zap.Error(err), zap.String("task", t.Task))
			continue
		}
		sent++
	}
	if sent > 0 {
		s.logger.Info("sent task reminders", zap.Int("count", sent))
	}
	return nil
}

// ResetRecurringTasks flips completed recurring tasks back to Pending:
// daily ones on every pass, weekly ones when the marker names today's
// weekday.
func (s *Scheduler) ResetRecurringTasks(ctx context.Context) error {
	completed, err := s.store.List(ctx, models.StatusCompleted)
	if err != nil {
		return fmt.Errorf("list completed tasks: %w", err)
	}

	now := s.now()
	reset := 0
	for _, t := range completed {
		if !recurrenceDue(t.Recurrence, now) {
			continue
		}
		_, err := s.store.Update(ctx, t.ID, map[string]string{
			storage.FieldStatus: string(models.StatusPending),
		})
		if err != nil {
			s.logger.Error("failed to reset recurring task", zap.Error(err), zap.String("task", t.Task))
			continue
		}
		reset++
	}
	if reset > 0 {
		s.logger.Info("reset recurring tasks", zap.Int("count", reset))
	}
	return nil
}

// recurrenceDue reports whether a completed task with the given recurrence
// marker should become pending again today. The marker is either "daily" or
// a weekday name.
func recurrenceDue(recurrence string, now time.Time) bool {
	marker := strings.ToLower(strings.TrimSpace(recurrence))
	switch marker {
	case "", "none":
		return false
	case "daily":
		return true
	}
	return marker == strings.ToLower(now.Weekday().String())
}
