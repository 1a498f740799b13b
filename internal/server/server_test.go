package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mrfrench/backend/internal/history"
	"github.com/mrfrench/backend/internal/intent"
	"github.com/mrfrench/backend/internal/llm"
	"github.com/mrfrench/backend/internal/models"
	"github.com/mrfrench/backend/internal/orchestrator"
	"github.com/mrfrench/backend/internal/storage"
	"github.com/mrfrench/backend/internal/tasks"
	"github.com/mrfrench/backend/internal/zone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Server, *storage.MemoryStore, *history.MemoryLog) {
	t.Helper()
	store := storage.NewMemoryStore()
	log := history.NewMemoryLog()
	logger := zap.NewNop()
	handler := tasks.NewHandler(store, log, storage.DefaultSimilarityThreshold, logger)
	zones := zone.NewManager(store, store, logger)
	orch := orchestrator.New(log, store, intent.NewStubExtractor(), handler, zones, llm.NewEchoClient(), 10, logger)
	return New("127.0.0.1:0", orch, store, log, zones, logger), store, log
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatInfersParentMediatorChannel(t *testing.T) {
	s, store, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/chat",
		`{"user_input": "Mr. French, Timmy needs to 'clean your room' tonight", "user_type": "Parent"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, string(models.ChannelParentMediator), body["channel"])
	assert.NotEmpty(t, body["ai_response"])

	all, err := store.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "clean your room", all[0].Task)
}

func TestChatParentWithoutMentionGoesToChild(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/chat",
		`{"user_input": "How was school, Timmy?", "user_type": "Parent"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, string(models.ChannelParentChild), body["channel"])
	assert.Equal(t, string(models.SpeakerChild), body["responder"])
}

func TestChatTimmyAlwaysTalksToMediator(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/chat",
		`{"user_input": "what tasks do I have?", "user_type": "Timmy"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, string(models.ChannelChildMediator), body["channel"])
}

func TestChatRejectsBadUserType(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/chat", `{"user_input": "hi", "user_type": "Grandma"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRejectsEmptyInput(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/chat", `{"user_input": "  ", "user_type": "Parent"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHistoryEndpoint(t *testing.T) {
	s, _, log := newTestServer(t)
	require.NoError(t, log.Append(context.Background(), models.Message{
		Channel: models.ChannelParentChild,
		Role:    models.RoleUser,
		Sender:  models.SpeakerParent,
		Content: "hello",
	}))

	rec := doRequest(t, s, http.MethodGet, "/chat/parent-child/history", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	historyList, ok := body["history"].([]interface{})
	require.True(t, ok)
	assert.Len(t, historyList, 1)
}

func TestChatHistoryInvalidChannel(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/chat/group-chat/history", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTasksEndpoint(t *testing.T) {
	s, store, _ := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &models.Task{Task: "a", Status: models.StatusPending}))
	require.NoError(t, store.Create(ctx, &models.Task{Task: "b", Status: models.StatusCompleted}))

	rec := doRequest(t, s, http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["tasks"], 2)

	rec = doRequest(t, s, http.MethodGet, "/tasks?status=Pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Len(t, body["tasks"], 1)

	rec = doRequest(t, s, http.MethodGet, "/tasks?status=Nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestZoneEndpoints(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/timmy-zone", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(models.ZoneGreen), decodeBody(t, rec)["zone"])

	rec = doRequest(t, s, http.MethodPost, "/timmy-zone", `{"zone": "Red"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/timmy-zone", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(models.ZoneRed), decodeBody(t, rec)["zone"])

	rec = doRequest(t, s, http.MethodPost, "/timmy-zone", `{"zone": "Purple"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMediatorLogsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	// A processed chat turn leaves an audit entry behind.
	rec := doRequest(t, s, http.MethodPost, "/chat",
		`{"user_input": "Mr. French, what tasks are there?", "user_type": "Parent"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/mediator-logs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	logs, ok := body["mediator_logs"].([]interface{})
	require.True(t, ok)
	assert.Len(t, logs, 1)
}

func TestResetConversation(t *testing.T) {
	s, store, log := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &models.Task{Task: "a"}))
	require.NoError(t, log.Append(ctx, models.Message{Channel: models.ChannelParentChild, Content: "x"}))

	rec := doRequest(t, s, http.MethodDelete, "/reset-conversation", "")
	require.Equal(t, http.StatusOK, rec.Code)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
	msgs, err := log.Recent(ctx, models.ChannelParentChild, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer(t)
	assert.Equal(t, http.StatusMethodNotAllowed, doRequest(t, s, http.MethodGet, "/chat", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, doRequest(t, s, http.MethodPost, "/tasks", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, doRequest(t, s, http.MethodPost, "/reset-conversation", "").Code)
}
