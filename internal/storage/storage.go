package storage

import (
	"context"
	"errors"

	"github.com/mrfrench/backend/internal/models"
)

// ErrTaskNotFound is returned when an update or delete targets a task id
// that does not exist.
var ErrTaskNotFound = errors.New("task not found")

// Update field keys accepted by TaskStore.Update.
const (
	FieldTask       = "task"
	FieldStatus     = "status"
	FieldDueDate    = "due_date"
	FieldDueTime    = "due_time"
	FieldReward     = "reward"
	FieldRecurrence = "recurrence"
)

// TaskStore is the record store for tasks. Implementations assign IDs on
// Create and refresh UpdatedAt on every mutation.
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, id string, fields map[string]string) (*models.Task, error)
	Delete(ctx context.Context, id string) error
	// List returns tasks ordered by UpdatedAt descending. An empty filter
	// returns every task.
	List(ctx context.Context, status models.TaskStatus) ([]models.Task, error)
	// FindByName matches the task name exactly, case-insensitively.
	FindByName(ctx context.Context, name string) ([]models.Task, error)
	DeleteAll(ctx context.Context) error
	Close() error
}

// ZoneStore holds the single Timmy Zone row.
type ZoneStore interface {
	GetZone(ctx context.Context) (models.Zone, error)
	SetZone(ctx context.Context, zone models.Zone) (models.Zone, error)
}
