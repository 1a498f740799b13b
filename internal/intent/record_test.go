package intent

import (
	"testing"

	"github.com/mrfrench/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAddTask(t *testing.T) {
	raw := `{"intent": "ADD_TASK", "task": "clean your room", "due_date": "Today", "due_time": "evening", "reward": "screen time"}`
	rec := Decode(raw)

	require.Equal(t, KindAddTask, rec.Kind)
	require.NotNil(t, rec.Add)
	assert.Equal(t, "clean your room", rec.Add.Task)
	assert.Equal(t, models.StatusPending, rec.Add.Status)
	assert.Equal(t, "Today", rec.Add.DueDate)
	assert.Equal(t, "evening", rec.Add.DueTime)
	assert.Equal(t, "screen time", rec.Add.Reward)
}

func TestDecodeAddTaskDefaults(t *testing.T) {
	rec := Decode(`{"intent": "ADD_TASK", "task": "do homework"}`)

	require.Equal(t, KindAddTask, rec.Kind)
	assert.Equal(t, models.StatusPending, rec.Add.Status)
	assert.Equal(t, "Today", rec.Add.DueDate)
	assert.Equal(t, "Unknown", rec.Add.DueTime)
	assert.Equal(t, "None", rec.Add.Reward)
}

func TestDecodeAddTaskWithoutName(t *testing.T) {
	rec := Decode(`{"intent": "ADD_TASK"}`)
	assert.Equal(t, KindNoTask, rec.Kind)
	assert.NotEmpty(t, rec.ParseError)
}

func TestDecodeUpdateTask(t *testing.T) {
	raw := `{"intent": "UPDATE_TASK", "original_task_name": "do homework", "updates": {"status": "Completed"}}`
	rec := Decode(raw)

	require.Equal(t, KindUpdateTask, rec.Kind)
	require.NotNil(t, rec.Update)
	assert.Equal(t, "do homework", rec.Update.OriginalTaskName)
	assert.Equal(t, map[string]string{"status": "Completed"}, rec.Update.Updates)
}

func TestDecodeUpdateDropsUnknownFields(t *testing.T) {
	raw := `{"intent": "UPDATE_TASK", "original_task_name": "do homework", "updates": {"status": "NotAStatus", "priority": "high", "reward": "pizza"}}`
	rec := Decode(raw)

	require.Equal(t, KindUpdateTask, rec.Kind)
	// The invalid status and the unknown key are both discarded.
	assert.Equal(t, map[string]string{"reward": "pizza"}, rec.Update.Updates)
}

func TestDecodeUpdateWithNothingUsable(t *testing.T) {
	rec := Decode(`{"intent": "UPDATE_TASK", "original_task_name": "x", "updates": {"priority": "high"}}`)
	assert.Equal(t, KindNoTask, rec.Kind)
}

func TestDecodeDeleteFallsBackToOriginalName(t *testing.T) {
	rec := Decode(`{"intent": "DELETE_TASK", "original_task_name": "walk the dog"}`)
	require.Equal(t, KindDeleteTask, rec.Kind)
	assert.Equal(t, "walk the dog", rec.Delete.Task)
}

func TestDecodeInquiryAliases(t *testing.T) {
	for _, alias := range []string{"TASK_INQUIRY", "QUERY_TASKS", "GET_TASK"} {
		rec := Decode(`{"intent": "` + alias + `", "filter": "Pending"}`)
		require.Equal(t, KindInquiry, rec.Kind, alias)
		assert.Equal(t, "Pending", rec.Inquiry.Filter)
	}
}

func TestDecodeInquiryDefaultFilter(t *testing.T) {
	rec := Decode(`{"intent": "TASK_INQUIRY"}`)
	require.Equal(t, KindInquiry, rec.Kind)
	assert.Equal(t, "All", rec.Inquiry.Filter)
}

func TestDecodeZoneSuffixVariants(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Zone
	}{
		{`{"intent": "SET_TIMMY_ZONE", "zone": "red"}`, models.ZoneRed},
		{`{"intent": "SET_TIMMY_ZONE_GREEN"}`, models.ZoneGreen},
		{`{"intent": "SET_TIMMY_ZONE_BLUE"}`, models.ZoneBlue},
	}
	for _, tt := range tests {
		rec := Decode(tt.raw)
		require.Equal(t, KindSetZone, rec.Kind, tt.raw)
		assert.Equal(t, tt.want, rec.Zone.Zone)
	}
}

func TestDecodeZoneInvalid(t *testing.T) {
	rec := Decode(`{"intent": "SET_TIMMY_ZONE", "zone": "purple"}`)
	assert.Equal(t, KindNoTask, rec.Kind)
	assert.NotEmpty(t, rec.ParseError)
}

func TestDecodeFencedJSON(t *testing.T) {
	raw := "Here is the analysis:\n```json\n{\"intent\": \"ADD_TASK\", \"task\": \"set the table\"}\n```\nDone."
	rec := Decode(raw)
	require.Equal(t, KindAddTask, rec.Kind)
	assert.Equal(t, "set the table", rec.Add.Task)
	assert.Equal(t, raw, rec.Raw)
}

func TestDecodeGarbage(t *testing.T) {
	rec := Decode("sorry, I can't help with that")
	assert.Equal(t, KindNoTask, rec.Kind)
	assert.NotEmpty(t, rec.ParseError)
}

func TestDecodeUnknownIntent(t *testing.T) {
	rec := Decode(`{"intent": "MAKE_COFFEE"}`)
	assert.Equal(t, KindNoTask, rec.Kind)
	assert.Contains(t, rec.ParseError, "MAKE_COFFEE")
}

func TestDecodeNoTaskAliases(t *testing.T) {
	for _, alias := range []string{"NO_TASK_IDENTIFIED", "NO_TASK"} {
		rec := Decode(`{"intent": "` + alias + `"}`)
		assert.Equal(t, KindNoTask, rec.Kind, alias)
		assert.Empty(t, rec.ParseError, alias)
	}
}
