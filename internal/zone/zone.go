// Package zone manages Timmy's behavioral zone: one mutable scalar, set
// explicitly through conversation or auto-evaluated from task counts after
// each turn.
package zone

import (
	"context"
	"fmt"
	"time"

	"github.com/mrfrench/backend/internal/models"
	"github.com/mrfrench/backend/internal/storage"
	"github.com/mrfrench/backend/internal/tasks"
	"go.uber.org/zap"
)

// Auto-evaluation thresholds: many open tasks, or a cluster of tasks that
// were due earlier today, suggest the Red zone.
const (
	pendingRedThreshold = 5
	overdueRedThreshold = 3
)

type Manager struct {
	zones  storage.ZoneStore
	tasks  storage.TaskStore
	logger *zap.Logger
}

func NewManager(zones storage.ZoneStore, taskStore storage.TaskStore, logger *zap.Logger) *Manager {
	return &Manager{zones: zones, tasks: taskStore, logger: logger}
}

func (m *Manager) Get(ctx context.Context) (models.Zone, error) {
	return m.zones.GetZone(ctx)
}

// Set validates and stores an explicit zone change.
func (m *Manager) Set(ctx context.Context, zone models.Zone) (models.Zone, error) {
	if !zone.Valid() {
		return "", fmt.Errorf("invalid zone %q: must be Red, Green, or Blue", zone)
	}
	return m.zones.SetZone(ctx, zone)
}

// AutoEvaluate applies the post-turn heuristic: five or more pending tasks,
// or three or more pending tasks already overdue today, suggest Red;
// otherwise Green. Blue is never auto-set and never auto-left.
// Returns the effective zone and whether it changed.
func (m *Manager) AutoEvaluate(ctx context.Context, now time.Time) (models.Zone, bool, error) {
	current, err := m.zones.GetZone(ctx)
	if err != nil {
		return "", false, fmt.Errorf("zone auto-evaluation: %w", err)
	}
	if current == models.ZoneBlue {
		return current, false, nil
	}

	pending, err := m.tasks.List(ctx, models.StatusPending)
	if err != nil {
		return current, false, fmt.Errorf("zone auto-evaluation: %w", err)
	}

	overdueToday := 0
	for _, t := range pending {
		deadline, hasTime, ok := tasks.ResolveDeadline(t.DueDate, t.DueTime, now)
		// A date-only deadline anchors at midnight; the task is not overdue
		// until its day ends, so only resolved times count here.
		if !ok || !hasTime {
			continue
		}
		sameDay := deadline.Year() == now.Year() && deadline.YearDay() == now.YearDay()
		if sameDay && deadline.Before(now) {
			overdueToday++
		}
	}

	suggested := models.ZoneGreen
	if len(pending) >= pendingRedThreshold || overdueToday >= overdueRedThreshold {
		suggested = models.ZoneRed
	}
	if suggested == current {
		return current, false, nil
	}

	if _, err := m.zones.SetZone(ctx, suggested); err != nil {
		return current, false, fmt.Errorf("zone auto-evaluation: %w", err)
	}
	m.logger.Info("Timmy zone auto-updated",
		zap.String("from", string(current)),
		zap.String("to", string(suggested)),
		zap.Int("pending", len(pending)),
		zap.Int("overdue_today", overdueToday))
	return suggested, true, nil
}
