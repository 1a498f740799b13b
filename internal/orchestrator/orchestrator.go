// Package orchestrator drives one inbound message through the fixed
// conversation pipeline: ingest, analyze, act, respond. Every turn is
// durably logged even when generation fails; the worst observable outcome
// is a well-formed apology.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mrfrench/backend/internal/history"
	"github.com/mrfrench/backend/internal/intent"
	"github.com/mrfrench/backend/internal/llm"
	"github.com/mrfrench/backend/internal/models"
	"github.com/mrfrench/backend/internal/storage"
	"github.com/mrfrench/backend/internal/tasks"
	"github.com/mrfrench/backend/internal/zone"
	"go.uber.org/zap"
)

const (
	// DefaultHistoryWindow is the most-recent-N messages handed to the LLM.
	DefaultHistoryWindow = 10

	// recallLimit caps how many older relevant messages supplement the
	// recency window when generating a reply.
	recallLimit = 3

	fallbackUnderstanding = "I'm having a bit of trouble understanding that. Could you rephrase?"
	apologyMediator       = "I'm sorry, I'm having trouble responding right now."
	apologyChild          = "Uh oh, I'm not sure how to respond right now."
)

// Turn is one inbound message.
type Turn struct {
	Channel models.Channel
	Speaker models.Speaker
	Text    string
}

// Reply is the single outbound message a turn produces. Nil when the
// channel/speaker combination is log-only.
type Reply struct {
	Channel models.Channel
	Sender  models.Speaker
	Text    string
	Intent  intent.Record
	// Confirmation is the task-action summary from the act step, useful to
	// surface alongside the generated reply.
	Confirmation string
}

// state is the per-request working memory threaded through the nodes.
// Constructed fresh per turn, discarded after the reply.
type state struct {
	turn         Turn
	context      []models.Message
	rec          intent.Record
	result       tasks.Result
	fallbackText string
}

type Orchestrator struct {
	log       history.Log
	store     storage.TaskStore
	extractor intent.Extractor
	handler   *tasks.Handler
	zones     *zone.Manager
	client    llm.Client
	window    int
	now       func() time.Time
	logger    *zap.Logger
}

func New(log history.Log, store storage.TaskStore, extractor intent.Extractor, handler *tasks.Handler, zones *zone.Manager, client llm.Client, window int, logger *zap.Logger) *Orchestrator {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &Orchestrator{
		log:       log,
		store:     store,
		extractor: extractor,
		handler:   handler,
		zones:     zones,
		client:    client,
		window:    window,
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock overrides the orchestrator's clock. Test hook.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// Handle runs the full pipeline for one turn. The returned error covers
// only pre-pipeline validation and ingest failures: once a turn is
// ingested, all downstream faults degrade to apology text.
func (o *Orchestrator) Handle(ctx context.Context, turn Turn) (*Reply, error) {
	if !turn.Channel.Valid() {
		return nil, fmt.Errorf("invalid channel %q", turn.Channel)
	}
	if !speakerAllowed(turn.Channel, turn.Speaker) {
		return nil, fmt.Errorf("speaker %q cannot post on channel %q", turn.Speaker, turn.Channel)
	}

	st := &state{turn: turn}
	if err := o.ingest(ctx, st); err != nil {
		return nil, err
	}

	// The mediator observes parent-child but the child never gets an
	// automated reply there; a child turn terminates after ingest.
	if turn.Channel == models.ChannelParentChild && turn.Speaker == models.SpeakerChild {
		return nil, nil
	}

	o.analyze(ctx, st)

	if turn.Channel == models.ChannelParentChild {
		return o.childRespond(ctx, st), nil
	}
	return o.mediatorRespond(ctx, st), nil
}

func (o *Orchestrator) ingest(ctx context.Context, st *state) error {
	msg := models.Message{
		Channel:   st.turn.Channel,
		Role:      models.RoleUser,
		Sender:    st.turn.Speaker,
		Content:   st.turn.Text,
		Timestamp: o.now(),
	}
	if err := o.log.Append(ctx, msg); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	recent, err := o.log.Recent(ctx, st.turn.Channel, o.window)
	if err != nil {
		o.logger.Error("failed to load recent history", zap.Error(err), zap.String("channel", string(st.turn.Channel)))
		recent = nil
	}
	// Drop the just-ingested turn from the context window; the extractor
	// and responders append the current input themselves.
	if n := len(recent); n > 0 && recent[n-1].Content == st.turn.Text && recent[n-1].Sender == st.turn.Speaker {
		recent = recent[:n-1]
	}
	st.context = recent
	return nil
}

// analyze runs intent extraction and the task action in one step, then the
// post-turn zone heuristic. All faults are absorbed here.
func (o *Orchestrator) analyze(ctx context.Context, st *state) {
	taskContext := o.renderTaskContext(ctx)

	rec, err := o.extractor.Analyze(ctx, st.turn.Text, st.turn.Channel, st.context, taskContext)
	if err != nil {
		o.logger.Error("intent extraction failed", zap.Error(err), zap.String("channel", string(st.turn.Channel)))
		rec = intent.NoTask(rec.Raw, err.Error())
		st.fallbackText = fallbackUnderstanding
	} else if rec.ParseError != "" {
		st.fallbackText = fallbackUnderstanding
	}
	st.rec = rec

	o.audit(ctx, st)

	st.result = o.handler.Apply(ctx, rec, st.turn.Channel, st.turn.Speaker)

	if rec.Kind == intent.KindSetZone {
		if _, err := o.zones.Set(ctx, rec.Zone.Zone); err != nil {
			o.logger.Error("explicit zone change failed", zap.Error(err))
			st.result.Confirmation = troubleConfirmation(rec.Zone.Zone)
		} else {
			st.result.Confirmation = fmt.Sprintf("I've set Timmy's zone to %s.", rec.Zone.Zone)
		}
	}

	// An explicit zone command stands for this turn; the heuristic would
	// overrule it immediately otherwise.
	if rec.Kind != intent.KindSetZone {
		if _, _, err := o.zones.AutoEvaluate(ctx, o.now()); err != nil {
			o.logger.Warn("zone auto-evaluation failed", zap.Error(err))
		}
	}
}

func troubleConfirmation(z models.Zone) string {
	return fmt.Sprintf("I had trouble setting Timmy's zone to %s. Please try again.", z)
}

func (o *Orchestrator) renderTaskContext(ctx context.Context) string {
	all, err := o.store.List(ctx, "")
	if err != nil {
		o.logger.Error("failed to load tasks for analysis context", zap.Error(err))
		return intent.RenderTaskContext(nil)
	}
	return intent.RenderTaskContext(all)
}

// audit writes the raw analysis to the per-channel mediator log. Audit
// failure never blocks the primary reply.
func (o *Orchestrator) audit(ctx context.Context, st *state) {
	entry := struct {
		Channel       models.Channel `json:"channel"`
		OriginalInput string         `json:"original_input"`
		Intent        intent.Kind    `json:"intent"`
		Raw           string         `json:"raw_analysis"`
		ParseError    string         `json:"parse_error,omitempty"`
	}{
		Channel:       st.turn.Channel,
		OriginalInput: st.turn.Text,
		Intent:        st.rec.Kind,
		Raw:           st.rec.Raw,
		ParseError:    st.rec.ParseError,
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		o.logger.Warn("failed to marshal audit entry", zap.Error(err))
		return
	}
	err = o.log.Append(ctx, models.Message{
		Channel:   models.ChannelMediatorLogs,
		Role:      models.RoleSystem,
		Sender:    models.SpeakerMediator,
		Content:   string(payload),
		Timestamp: o.now(),
	})
	if err != nil {
		o.logger.Warn("failed to write mediator audit log", zap.Error(err))
	}
}

// childRespond generates Timmy's in-character reply on parent-child.
func (o *Orchestrator) childRespond(ctx context.Context, st *state) *Reply {
	instruction := childInstruction(st.rec, st.turn.Text)
	text, err := o.client.Complete(ctx, childPersona, o.buildMessages(ctx, st, instruction))
	if err != nil {
		o.logger.Error("child response generation failed", zap.Error(err))
		text = apologyChild
	}
	o.appendReply(ctx, st.turn.Channel, models.SpeakerChild, text)
	return &Reply{
		Channel:      st.turn.Channel,
		Sender:       models.SpeakerChild,
		Text:         text,
		Intent:       st.rec,
		Confirmation: st.result.Confirmation,
	}
}

// mediatorRespond generates Mr. French's reply on the two mediator channels.
func (o *Orchestrator) mediatorRespond(ctx context.Context, st *state) *Reply {
	persona := mediatorPersona(st.turn.Channel)
	instruction := mediatorInstruction(st.rec, st.result, st.turn.Text, st.fallbackText)
	text, err := o.client.Complete(ctx, persona, o.buildMessages(ctx, st, instruction))
	if err != nil {
		o.logger.Error("mediator response generation failed", zap.Error(err), zap.String("channel", string(st.turn.Channel)))
		text = apologyMediator
	}
	o.appendReply(ctx, st.turn.Channel, models.SpeakerMediator, text)
	return &Reply{
		Channel:      st.turn.Channel,
		Sender:       models.SpeakerMediator,
		Text:         text,
		Intent:       st.rec,
		Confirmation: st.result.Confirmation,
	}
}

// recall pulls older messages relevant to the current input that the
// recency window missed. Retrieval failure degrades to recency-only.
func (o *Orchestrator) recall(ctx context.Context, st *state) []models.Message {
	similar, err := o.log.Similar(ctx, st.turn.Channel, st.turn.Text, recallLimit)
	if err != nil {
		o.logger.Warn("history similarity retrieval failed", zap.Error(err), zap.String("channel", string(st.turn.Channel)))
		return nil
	}

	inWindow := make(map[string]struct{}, len(st.context))
	for _, msg := range st.context {
		inWindow[msg.ID] = struct{}{}
	}
	var out []models.Message
	for _, msg := range similar {
		if _, ok := inWindow[msg.ID]; ok {
			continue
		}
		// The just-ingested turn always matches itself.
		if msg.Content == st.turn.Text && msg.Sender == st.turn.Speaker {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func (o *Orchestrator) buildMessages(ctx context.Context, st *state, instruction string) []llm.Message {
	recalled := o.recall(ctx, st)
	messages := make([]llm.Message, 0, len(recalled)+len(st.context)+2)
	for _, msg := range append(recalled, st.context...) {
		role := llm.RoleUser
		if msg.Role == models.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: st.turn.Text})
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: instruction})
	return messages
}

// appendReply logs the outbound message. The reply still goes back to the
// caller if the write fails.
func (o *Orchestrator) appendReply(ctx context.Context, channel models.Channel, sender models.Speaker, text string) {
	err := o.log.Append(ctx, models.Message{
		Channel:   channel,
		Role:      models.RoleAssistant,
		Sender:    sender,
		Content:   text,
		Timestamp: o.now(),
	})
	if err != nil {
		o.logger.Error("failed to log reply", zap.Error(err), zap.String("channel", string(channel)))
	}
}

func speakerAllowed(channel models.Channel, speaker models.Speaker) bool {
	switch channel {
	case models.ChannelParentChild:
		return speaker == models.SpeakerParent || speaker == models.SpeakerChild
	case models.ChannelParentMediator:
		return speaker == models.SpeakerParent || speaker == models.SpeakerMediator
	case models.ChannelChildMediator:
		return speaker == models.SpeakerChild || speaker == models.SpeakerMediator
	}
	return false
}
