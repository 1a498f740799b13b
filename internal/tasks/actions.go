package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mrfrench/backend/internal/history"
	"github.com/mrfrench/backend/internal/intent"
	"github.com/mrfrench/backend/internal/models"
	"github.com/mrfrench/backend/internal/storage"
	"go.uber.org/zap"
)

// Fixed user-facing fallbacks. Store failures are always degraded to
// troubleMessage rather than propagated.
const (
	troubleMessage = "I'm having trouble processing that right now. Please try again."
)

// Result is the outcome of applying one intent.
type Result struct {
	// Confirmation is the human-readable summary of what happened, empty
	// for NO_TASK_IDENTIFIED.
	Confirmation string
	// Tasks carries the matched set for inquiries.
	Tasks []models.Task
	// Created is set when ADD_TASK actually created a record.
	Created *models.Task
	// Completed is set when an update moved a task to Completed, so the
	// responder can frame the reply as praise.
	Completed *models.Task
}

// Handler applies intent records to the task store.
type Handler struct {
	store     storage.TaskStore
	log       history.Log
	threshold float64
	now       func() time.Time
	logger    *zap.Logger
}

func NewHandler(store storage.TaskStore, log history.Log, threshold float64, logger *zap.Logger) *Handler {
	if threshold <= 0 {
		threshold = storage.DefaultSimilarityThreshold
	}
	return &Handler{
		store:     store,
		log:       log,
		threshold: threshold,
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock overrides the handler's clock. Test hook.
func (h *Handler) SetClock(now func() time.Time) {
	h.now = now
}

// Apply performs the store mutation for rec and returns a confirmation.
// Every failure path returns a well-formed Result; errors never escape to
// the orchestrator.
func (h *Handler) Apply(ctx context.Context, rec intent.Record, channel models.Channel, speaker models.Speaker) Result {
	switch rec.Kind {
	case intent.KindAddTask:
		return h.addTask(ctx, rec.Add, channel)
	case intent.KindUpdateTask:
		return h.updateTask(ctx, rec.Update)
	case intent.KindDeleteTask:
		return h.deleteTask(ctx, rec.Delete)
	case intent.KindInquiry:
		return h.inquire(ctx, rec.Inquiry)
	case intent.KindSetZone:
		return Result{Confirmation: fmt.Sprintf("Noted, you'd like Timmy's zone set to %s.", rec.Zone.Zone)}
	default:
		return Result{}
	}
}

func (h *Handler) addTask(ctx context.Context, payload *intent.AddPayload, channel models.Channel) Result {
	existing, err := h.store.List(ctx, "")
	if err != nil {
		h.logger.Error("failed to list tasks for duplicate check", zap.Error(err))
		return Result{Confirmation: troubleMessage}
	}
	if match, found := storage.BestMatch(existing, payload.Task, h.threshold); found {
		return Result{Confirmation: fmt.Sprintf(
			"The task '%s' already exists. Would you like to update it instead?", match.Task)}
	}

	task := &models.Task{
		Task:    payload.Task,
		Status:  payload.Status,
		DueDate: payload.DueDate,
		DueTime: payload.DueTime,
		Reward:  payload.Reward,
	}
	if err := h.store.Create(ctx, task); err != nil {
		h.logger.Error("failed to create task", zap.Error(err), zap.String("task", payload.Task))
		return Result{Confirmation: fmt.Sprintf("I had trouble adding '%s'. Please try again.", payload.Task)}
	}

	deadline := FormatDeadline(task.DueDate, task.DueTime, h.now())
	confirmation := fmt.Sprintf("Okay, I've added the task: '%s' for Timmy. Due: %s.", task.Task, deadline)
	if task.Reward != "" && task.Reward != "None" {
		confirmation += fmt.Sprintf(" Reward: %s.", task.Reward)
	}

	if channel == models.ChannelParentMediator {
		h.notifyChild(ctx, task, deadline)
	}
	return Result{Confirmation: confirmation, Created: task}
}

// notifyChild tells Timmy about a parent-assigned task on his own channel.
// A logging failure here never blocks the primary reply.
func (h *Handler) notifyChild(ctx context.Context, task *models.Task, deadline string) {
	content := fmt.Sprintf("Hi Timmy! Your parent just assigned you a new task: '%s'. It's due %s.", task.Task, deadline)
	if task.Reward != "" && task.Reward != "None" {
		content += fmt.Sprintf(" You'll get %s for completing it!", task.Reward)
	}
	err := h.log.Append(ctx, models.Message{
		Channel:   models.ChannelChildMediator,
		Role:      models.RoleAssistant,
		Sender:    models.SpeakerMediator,
		Content:   content,
		Timestamp: h.now(),
	})
	if err != nil {
		h.logger.Error("failed to write child notification", zap.Error(err), zap.String("task", task.Task))
	}
}

func (h *Handler) updateTask(ctx context.Context, payload *intent.UpdatePayload) Result {
	target, found := h.resolveByName(ctx, payload.OriginalTaskName)
	if !found {
		return Result{Confirmation: fmt.Sprintf(
			"I couldn't find a task named '%s' to update.", payload.OriginalTaskName)}
	}

	updated, err := h.store.Update(ctx, target.ID, payload.Updates)
	if err != nil {
		h.logger.Error("failed to update task", zap.Error(err), zap.String("task_id", target.ID))
		return Result{Confirmation: fmt.Sprintf("I had trouble updating '%s'. Please try again.", target.Task)}
	}

	result := Result{}
	if status, ok := payload.Updates[storage.FieldStatus]; ok {
		result.Confirmation = fmt.Sprintf("I've updated '%s'. Its status is now: '%s'.", updated.Task, status)
		if models.TaskStatus(status) == models.StatusCompleted {
			result.Completed = updated
		}
	} else {
		result.Confirmation = fmt.Sprintf("I've updated the task '%s' as requested.", updated.Task)
	}
	return result
}

func (h *Handler) deleteTask(ctx context.Context, payload *intent.DeletePayload) Result {
	target, found := h.resolveByName(ctx, payload.Task)
	if !found {
		return Result{Confirmation: fmt.Sprintf(
			"I couldn't find a task named '%s' to delete.", payload.Task)}
	}
	if err := h.store.Delete(ctx, target.ID); err != nil {
		h.logger.Error("failed to delete task", zap.Error(err), zap.String("task_id", target.ID))
		return Result{Confirmation: fmt.Sprintf("I had trouble deleting '%s'. Please try again.", target.Task)}
	}
	return Result{Confirmation: fmt.Sprintf("Okay, I've removed the task: '%s'.", target.Task)}
}

func (h *Handler) inquire(ctx context.Context, payload *intent.InquiryPayload) Result {
	filter := strings.TrimSpace(payload.Filter)
	var (
		tasks []models.Task
		err   error
	)
	switch {
	case filter == "" || strings.EqualFold(filter, "all"):
		tasks, err = h.store.List(ctx, "")
	case models.TaskStatus(filter).Valid():
		tasks, err = h.store.List(ctx, models.TaskStatus(filter))
	default:
		// Anything else is a task-name substring filter.
		tasks, err = h.store.List(ctx, "")
		if err == nil {
			tasks = filterByName(tasks, filter)
		}
	}
	if err != nil {
		h.logger.Error("failed to list tasks for inquiry", zap.Error(err), zap.String("filter", filter))
		return Result{Confirmation: troubleMessage}
	}
	return Result{Tasks: tasks, Confirmation: FormatTaskList(tasks, h.now())}
}

func filterByName(tasks []models.Task, fragment string) []models.Task {
	needle := strings.ToLower(fragment)
	var out []models.Task
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Task), needle) {
			out = append(out, t)
		}
	}
	return out
}

// resolveByName finds the task a user referred to: exact case-insensitive
// name first, fuzzy best-match above the threshold otherwise.
func (h *Handler) resolveByName(ctx context.Context, name string) (models.Task, bool) {
	exact, err := h.store.FindByName(ctx, name)
	if err != nil {
		h.logger.Error("failed to find task by name", zap.Error(err), zap.String("name", name))
		return models.Task{}, false
	}
	if len(exact) > 0 {
		return exact[0], true
	}

	all, err := h.store.List(ctx, "")
	if err != nil {
		h.logger.Error("failed to list tasks for fuzzy resolve", zap.Error(err), zap.String("name", name))
		return models.Task{}, false
	}
	return storage.BestMatch(all, name, h.threshold)
}

// FormatTaskList renders tasks for a conversational reply. An empty set
// yields an explicit sentence, never an empty block.
func FormatTaskList(tasks []models.Task, now time.Time) string {
	if len(tasks) == 0 {
		return "There are no tasks to report at the moment."
	}
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		line := fmt.Sprintf("- '%s' (Status: %s)", t.Task, t.Status)
		if !unknownPhrase(t.DueDate) || !unknownPhrase(t.DueTime) {
			line += fmt.Sprintf(", Due: %s", FormatDeadline(t.DueDate, t.DueTime, now))
		}
		if t.Reward != "" && t.Reward != "None" {
			line += fmt.Sprintf(", Reward: %s", t.Reward)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
