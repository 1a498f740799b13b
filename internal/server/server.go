// Package server exposes the conversation pipeline and stores over HTTP.
// Handlers are thin pass-throughs; all domain decisions live in the
// orchestrator and its collaborators.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mrfrench/backend/internal/history"
	"github.com/mrfrench/backend/internal/models"
	"github.com/mrfrench/backend/internal/orchestrator"
	"github.com/mrfrench/backend/internal/storage"
	"github.com/mrfrench/backend/internal/zone"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 100
	auditLogLimit       = 200
	shutdownTimeout     = 5 * time.Second
)

type Server struct {
	orch   *orchestrator.Orchestrator
	store  storage.TaskStore
	log    history.Log
	zones  *zone.Manager
	server *http.Server
	logger *zap.Logger
}

func New(addr string, orch *orchestrator.Orchestrator, store storage.TaskStore, log history.Log, zones *zone.Manager, logger *zap.Logger) *Server {
	s := &Server{
		orch:   orch,
		store:  store,
		log:    log,
		zones:  zones,
		logger: logger,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/chat/", s.handleChatHistory)
	mux.HandleFunc("/tasks", s.handleTasks)
	mux.HandleFunc("/timmy-zone", s.handleZone)
	mux.HandleFunc("/mediator-logs", s.handleMediatorLogs)
	mux.HandleFunc("/reset-conversation", s.handleReset)
	mux.HandleFunc("/health", s.handleHealth)
	s.server = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP shutdown error", zap.Error(err))
		}
	}()

	s.logger.Info("HTTP server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Handler exposes the mux for httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

type chatRequest struct {
	UserInput string `json:"user_input"`
	UserType  string `json:"user_type"`
}

type chatResponse struct {
	Channel    models.Channel `json:"channel"`
	UserType   string         `json:"user_type"`
	UserInput  string         `json:"user_input"`
	AIResponse string         `json:"ai_response"`
	Responder  models.Speaker `json:"responder,omitempty"`
}

// inferChannel maps the caller's identity and input onto a channel. A
// direct mention of the mediator routes to the speaker's mediator channel;
// otherwise the parent is assumed to address Timmy and Timmy the mediator.
func inferChannel(speaker models.Speaker, input string) models.Channel {
	mentionsMediator := strings.Contains(strings.ToLower(input), "mr. french")
	switch {
	case speaker == models.SpeakerParent && mentionsMediator:
		return models.ChannelParentMediator
	case speaker == models.SpeakerParent:
		return models.ChannelParentChild
	default:
		return models.ChannelChildMediator
	}
}

func parseSpeaker(userType string) (models.Speaker, bool) {
	switch strings.ToLower(strings.TrimSpace(userType)) {
	case "parent":
		return models.SpeakerParent, true
	case "timmy", "child":
		return models.SpeakerChild, true
	}
	return "", false
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.UserInput) == "" {
		http.Error(w, "user_input is required", http.StatusBadRequest)
		return
	}
	speaker, ok := parseSpeaker(req.UserType)
	if !ok {
		http.Error(w, "Invalid user_type. Must be 'Parent' or 'Timmy'.", http.StatusBadRequest)
		return
	}

	channel := inferChannel(speaker, req.UserInput)
	s.logger.Info("chat request",
		zap.String("user_type", req.UserType),
		zap.String("channel", string(channel)))

	reply, err := s.orch.Handle(r.Context(), orchestrator.Turn{
		Channel: channel,
		Speaker: speaker,
		Text:    req.UserInput,
	})
	if err != nil {
		s.logger.Error("chat turn failed", zap.Error(err), zap.String("channel", string(channel)))
		http.Error(w, "Internal server error during chat processing", http.StatusInternalServerError)
		return
	}

	resp := chatResponse{
		Channel:    channel,
		UserType:   string(speaker),
		UserInput:  req.UserInput,
		AIResponse: "No direct AI response generated for this chat type.",
	}
	if reply != nil {
		resp.AIResponse = reply.Text
		resp.Responder = reply.Sender
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	channel, ok := parseHistoryPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if !channel.Valid() && channel != models.ChannelMediatorLogs {
		http.Error(w, "Invalid channel", http.StatusBadRequest)
		return
	}

	msgs, err := s.log.Recent(r.Context(), channel, defaultHistoryLimit)
	if err != nil {
		s.logger.Error("failed to load chat history", zap.Error(err), zap.String("channel", string(channel)))
		http.Error(w, "Failed to retrieve history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"channel": channel,
		"history": messagesOrEmpty(msgs),
	})
}

func parseHistoryPath(path string) (models.Channel, bool) {
	tail := strings.Trim(strings.TrimPrefix(path, "/chat/"), "/")
	parts := strings.Split(tail, "/")
	if len(parts) != 2 || parts[1] != "history" || parts[0] == "" {
		return "", false
	}
	return models.Channel(parts[0]), true
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var filter models.TaskStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		filter = models.TaskStatus(raw)
		if !filter.Valid() {
			http.Error(w, "Invalid status. Must be 'Pending', 'Progress', or 'Completed'.", http.StatusBadRequest)
			return
		}
	}

	tasks, err := s.store.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list tasks", zap.Error(err))
		http.Error(w, "Failed to retrieve tasks", http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

type zoneUpdateRequest struct {
	Zone models.Zone `json:"zone"`
}

func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		current, err := s.zones.Get(r.Context())
		if err != nil {
			s.logger.Error("failed to get zone", zap.Error(err))
			http.Error(w, "Failed to retrieve zone", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"zone": current})
	case http.MethodPost:
		defer r.Body.Close()
		var req zoneUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		updated, err := s.zones.Set(r.Context(), req.Zone)
		if err != nil {
			http.Error(w, "Invalid zone. Must be 'Red', 'Green', or 'Blue'.", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"zone":    updated,
			"message": "Timmy's zone set to " + string(updated) + ".",
		})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleMediatorLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	logs, err := s.log.Recent(r.Context(), models.ChannelMediatorLogs, auditLogLimit)
	if err != nil {
		s.logger.Error("failed to load mediator logs", zap.Error(err))
		http.Error(w, "Failed to retrieve mediator logs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"mediator_logs": messagesOrEmpty(logs)})
}

// handleReset clears every channel and every task. Destructive, mostly for
// demos and test resets.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.log.Reset(r.Context()); err != nil {
		s.logger.Error("failed to reset conversation history", zap.Error(err))
		http.Error(w, "Failed to reset conversation", http.StatusInternalServerError)
		return
	}
	if err := s.store.DeleteAll(r.Context()); err != nil {
		s.logger.Error("failed to reset tasks", zap.Error(err))
		http.Error(w, "Failed to reset tasks", http.StatusInternalServerError)
		return
	}
	s.logger.Info("conversation data and tasks reset")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "All conversation data and tasks have been reset.",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Mr. French conversational backend is running",
	})
}

func messagesOrEmpty(msgs []models.Message) []models.Message {
	if msgs == nil {
		return []models.Message{}
	}
	return msgs
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
