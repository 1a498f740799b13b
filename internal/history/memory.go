package history

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mrfrench/backend/internal/models"
)

// MemoryLog keeps per-channel message slices guarded by a RWMutex. Similar
// ranks by normalized token overlap with the query, which is a stand-in for
// the embedding search the production log performs.
type MemoryLog struct {
	mu       sync.RWMutex
	channels map[models.Channel][]models.Message
	now      func() time.Time
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		channels: make(map[models.Channel][]models.Message),
		now:      time.Now,
	}
}

// SetClock overrides the log's clock. Test hook.
func (l *MemoryLog) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

func (l *MemoryLog) Append(ctx context.Context, msg models.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = l.now()
	}
	l.channels[msg.Channel] = append(l.channels[msg.Channel], msg)
	return nil
}

func (l *MemoryLog) Recent(ctx context.Context, channel models.Channel, n int) ([]models.Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	msgs := l.channels[channel]
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (l *MemoryLog) Similar(ctx context.Context, channel models.Channel, query string, k int) ([]models.Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	queryTokens := tokenize(query)
	type scored struct {
		msg   models.Message
		score float64
	}
	var candidates []scored
	for _, msg := range l.channels[channel] {
		score := overlap(queryTokens, tokenize(msg.Content))
		if score > 0 {
			candidates = append(candidates, scored{msg: msg, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]models.Message, len(candidates))
	for i, c := range candidates {
		out[i] = c.msg
	}
	return out, nil
}

func (l *MemoryLog) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.channels = make(map[models.Channel][]models.Message)
	return nil
}

func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,!?'\"")
		if f != "" {
			tokens[f] = struct{}{}
		}
	}
	return tokens
}

func overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if _, ok := b[t]; ok {
			shared++
		}
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(shared) / float64(smaller)
}
