package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/mrfrench/backend/internal/history"
	"github.com/mrfrench/backend/internal/intent"
	"github.com/mrfrench/backend/internal/models"
	"github.com/mrfrench/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*Handler, *storage.MemoryStore, *history.MemoryLog) {
	t.Helper()
	store := storage.NewMemoryStore()
	log := history.NewMemoryLog()
	h := NewHandler(store, log, storage.DefaultSimilarityThreshold, zap.NewNop())
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	h.SetClock(func() time.Time { return now })
	store.SetClock(func() time.Time { return now })
	return h, store, log
}

func addRecord(task, dueDate, dueTime, reward string) intent.Record {
	return intent.Record{Kind: intent.KindAddTask, Add: &intent.AddPayload{
		Task:    task,
		Status:  models.StatusPending,
		DueDate: dueDate,
		DueTime: dueTime,
		Reward:  reward,
	}}
}

func TestAddTaskCreatesAndConfirms(t *testing.T) {
	h, store, _ := newTestHandler(t)
	ctx := context.Background()

	result := h.Apply(ctx, addRecord("clean your room", "Today", "evening", "None"), models.ChannelChildMediator, models.SpeakerChild)

	require.NotNil(t, result.Created)
	assert.Contains(t, result.Confirmation, "clean your room")
	assert.Contains(t, result.Confirmation, "Today at 9:00 PM")

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.StatusPending, all[0].Status)
}

func TestAddTaskIncludesReward(t *testing.T) {
	h, _, _ := newTestHandler(t)

	result := h.Apply(context.Background(), addRecord("do homework", "Tomorrow", "Unknown", "ice cream"), models.ChannelChildMediator, models.SpeakerChild)
	assert.Contains(t, result.Confirmation, "Reward: ice cream")
}

func TestAddDuplicateRejected(t *testing.T) {
	h, store, _ := newTestHandler(t)
	ctx := context.Background()

	h.Apply(ctx, addRecord("clean your room", "Today", "Unknown", "None"), models.ChannelChildMediator, models.SpeakerChild)
	// Near-identical name, above the similarity threshold.
	result := h.Apply(ctx, addRecord("clean your rooms", "Today", "Unknown", "None"), models.ChannelChildMediator, models.SpeakerChild)

	assert.Nil(t, result.Created)
	assert.Contains(t, result.Confirmation, "already exists")

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAddOnParentMediatorNotifiesChild(t *testing.T) {
	h, _, log := newTestHandler(t)
	ctx := context.Background()

	h.Apply(ctx, addRecord("take out the trash", "Today", "evening", "screen time"), models.ChannelParentMediator, models.SpeakerParent)

	msgs, err := log.Recent(ctx, models.ChannelChildMediator, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.SpeakerMediator, msgs[0].Sender)
	assert.Contains(t, msgs[0].Content, "take out the trash")
	assert.Contains(t, msgs[0].Content, "screen time")
}

func TestAddOnChildMediatorDoesNotNotify(t *testing.T) {
	h, _, log := newTestHandler(t)
	ctx := context.Background()

	h.Apply(ctx, addRecord("practice piano", "Today", "Unknown", "None"), models.ChannelChildMediator, models.SpeakerChild)

	msgs, err := log.Recent(ctx, models.ChannelChildMediator, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestUpdateTaskToCompleted(t *testing.T) {
	h, store, _ := newTestHandler(t)
	ctx := context.Background()

	h.Apply(ctx, addRecord("do homework", "Today", "Unknown", "None"), models.ChannelChildMediator, models.SpeakerChild)

	result := h.Apply(ctx, intent.Record{Kind: intent.KindUpdateTask, Update: &intent.UpdatePayload{
		OriginalTaskName: "do homework",
		Updates:          map[string]string{storage.FieldStatus: string(models.StatusCompleted)},
	}}, models.ChannelChildMediator, models.SpeakerChild)

	require.NotNil(t, result.Completed)
	assert.Contains(t, result.Confirmation, "Completed")

	completed, err := store.List(ctx, models.StatusCompleted)
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}

func TestUpdateResolvesFuzzyName(t *testing.T) {
	h, _, _ := newTestHandler(t)
	ctx := context.Background()

	h.Apply(ctx, addRecord("clean your room", "Today", "Unknown", "None"), models.ChannelChildMediator, models.SpeakerChild)

	result := h.Apply(ctx, intent.Record{Kind: intent.KindUpdateTask, Update: &intent.UpdatePayload{
		OriginalTaskName: "clean your rooms",
		Updates:          map[string]string{storage.FieldStatus: string(models.StatusProgress)},
	}}, models.ChannelChildMediator, models.SpeakerChild)

	assert.Contains(t, result.Confirmation, "clean your room")
	assert.Contains(t, result.Confirmation, "Progress")
}

func TestUpdateUnknownTask(t *testing.T) {
	h, _, _ := newTestHandler(t)

	result := h.Apply(context.Background(), intent.Record{Kind: intent.KindUpdateTask, Update: &intent.UpdatePayload{
		OriginalTaskName: "mow the lawn",
		Updates:          map[string]string{storage.FieldStatus: string(models.StatusCompleted)},
	}}, models.ChannelChildMediator, models.SpeakerChild)

	assert.Nil(t, result.Completed)
	assert.Contains(t, result.Confirmation, "couldn't find a task named 'mow the lawn'")
}

func TestDeleteTask(t *testing.T) {
	h, store, _ := newTestHandler(t)
	ctx := context.Background()

	h.Apply(ctx, addRecord("walk the dog", "Today", "Unknown", "None"), models.ChannelChildMediator, models.SpeakerChild)

	result := h.Apply(ctx, intent.Record{Kind: intent.KindDeleteTask, Delete: &intent.DeletePayload{
		Task: "walk the dog",
	}}, models.ChannelChildMediator, models.SpeakerChild)

	assert.Contains(t, result.Confirmation, "removed the task")
	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeleteUnknownTask(t *testing.T) {
	h, _, _ := newTestHandler(t)

	result := h.Apply(context.Background(), intent.Record{Kind: intent.KindDeleteTask, Delete: &intent.DeletePayload{
		Task: "feed the fish",
	}}, models.ChannelChildMediator, models.SpeakerChild)

	assert.Contains(t, result.Confirmation, "couldn't find a task named 'feed the fish'")
}

func TestInquiryEmptyStore(t *testing.T) {
	h, _, _ := newTestHandler(t)

	result := h.Apply(context.Background(), intent.Record{Kind: intent.KindInquiry, Inquiry: &intent.InquiryPayload{
		Filter: "All",
	}}, models.ChannelParentMediator, models.SpeakerParent)

	assert.Equal(t, "There are no tasks to report at the moment.", result.Confirmation)
	assert.Empty(t, result.Tasks)
}

func TestInquiryStatusFilter(t *testing.T) {
	h, store, _ := newTestHandler(t)
	ctx := context.Background()

	h.Apply(ctx, addRecord("do homework", "Today", "Unknown", "None"), models.ChannelChildMediator, models.SpeakerChild)
	h.Apply(ctx, addRecord("walk the dog", "Today", "Unknown", "None"), models.ChannelChildMediator, models.SpeakerChild)
	tasks, err := store.FindByName(ctx, "walk the dog")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	_, err = store.Update(ctx, tasks[0].ID, map[string]string{storage.FieldStatus: string(models.StatusCompleted)})
	require.NoError(t, err)

	result := h.Apply(ctx, intent.Record{Kind: intent.KindInquiry, Inquiry: &intent.InquiryPayload{
		Filter: "Pending",
	}}, models.ChannelParentMediator, models.SpeakerParent)

	require.Len(t, result.Tasks, 1)
	assert.Equal(t, "do homework", result.Tasks[0].Task)
	assert.Contains(t, result.Confirmation, "do homework")
	assert.NotContains(t, result.Confirmation, "walk the dog")
}

func TestInquiryNameFragmentFilter(t *testing.T) {
	h, _, _ := newTestHandler(t)
	ctx := context.Background()

	h.Apply(ctx, addRecord("clean your room", "Today", "Unknown", "None"), models.ChannelChildMediator, models.SpeakerChild)
	h.Apply(ctx, addRecord("do homework", "Today", "Unknown", "None"), models.ChannelChildMediator, models.SpeakerChild)

	result := h.Apply(ctx, intent.Record{Kind: intent.KindInquiry, Inquiry: &intent.InquiryPayload{
		Filter: "homework",
	}}, models.ChannelParentMediator, models.SpeakerParent)

	require.Len(t, result.Tasks, 1)
	assert.Equal(t, "do homework", result.Tasks[0].Task)
}

func TestNoTaskProducesEmptyResult(t *testing.T) {
	h, _, _ := newTestHandler(t)

	result := h.Apply(context.Background(), intent.NoTask("", ""), models.ChannelParentChild, models.SpeakerParent)
	assert.Empty(t, result.Confirmation)
	assert.Nil(t, result.Created)
}

func TestFormatTaskListIncludesDetails(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	list := FormatTaskList([]models.Task{
		{Task: "clean your room", Status: models.StatusPending, DueDate: "Today", DueTime: "evening", Reward: "screen time"},
		{Task: "do homework", Status: models.StatusCompleted, DueDate: "Unknown", DueTime: "Unknown"},
	}, now)

	assert.Contains(t, list, "'clean your room' (Status: Pending), Due: Today at 9:00 PM, Reward: screen time")
	assert.Contains(t, list, "'do homework' (Status: Completed)")
	assert.NotContains(t, list, "do homework' (Status: Completed), Due:")
}
