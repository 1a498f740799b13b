package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mrfrench/backend/internal/models"
)

// MemoryStore is an in-memory TaskStore and ZoneStore for development and
// tests. Last write wins, matching the external stores' discipline.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
	zone  models.Zone
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]*models.Task),
		zone:  models.ZoneGreen,
		now:   time.Now,
	}
}

// SetClock overrides the store's clock. Test hook.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Create(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	task.UpdatedAt = s.now()
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fields map[string]string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	for key, value := range fields {
		switch key {
		case FieldTask:
			task.Task = value
		case FieldStatus:
			task.Status = models.TaskStatus(value)
		case FieldDueDate:
			task.DueDate = value
		case FieldDueTime:
			task.DueTime = value
		case FieldReward:
			task.Reward = value
		case FieldRecurrence:
			task.Recurrence = value
		}
	}
	task.UpdatedAt = s.now()
	cp := *task
	return &cp, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, status models.TaskStatus) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if status != "" && t.Status != status {
			continue
		}
		tasks = append(tasks, *t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt)
	})
	return tasks, nil
}

func (s *MemoryStore) FindByName(ctx context.Context, name string) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := normalizeName(name)
	var matches []models.Task
	for _, t := range s.tasks {
		if normalizeName(t.Task) == want {
			matches = append(matches, *t)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
	})
	return matches, nil
}

func (s *MemoryStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*models.Task)
	return nil
}

func (s *MemoryStore) GetZone(ctx context.Context) (models.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zone, nil
}

func (s *MemoryStore) SetZone(ctx context.Context, zone models.Zone) (models.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zone = zone
	return zone, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
