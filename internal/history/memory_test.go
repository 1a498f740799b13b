package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mrfrench/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendFillsIDAndTimestamp(t *testing.T) {
	log := NewMemoryLog()
	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	log.SetClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, models.Message{
		Channel: models.ChannelParentChild,
		Role:    models.RoleUser,
		Sender:  models.SpeakerParent,
		Content: "hello",
	}))

	msgs, err := log.Recent(ctx, models.ChannelParentChild, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.NotEmpty(t, msgs[0].ID)
	assert.Equal(t, now, msgs[0].Timestamp)
}

func TestRecentReturnsLastNChronologically(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, log.Append(ctx, models.Message{
			Channel: models.ChannelChildMediator,
			Role:    models.RoleUser,
			Sender:  models.SpeakerChild,
			Content: fmt.Sprintf("message %d", i),
		}))
	}

	msgs, err := log.Recent(ctx, models.ChannelChildMediator, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "message 2", msgs[0].Content)
	assert.Equal(t, "message 4", msgs[2].Content)
}

func TestChannelsAreIsolated(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, models.Message{
		Channel: models.ChannelParentMediator,
		Content: "for the mediator",
	}))

	msgs, err := log.Recent(ctx, models.ChannelParentChild, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSimilarRanksByOverlap(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	contents := []string{
		"Timmy needs to clean his room",
		"what's for dinner tonight",
		"did you clean the room yet",
	}
	for _, c := range contents {
		require.NoError(t, log.Append(ctx, models.Message{
			Channel: models.ChannelParentChild,
			Content: c,
		}))
	}

	similar, err := log.Similar(ctx, models.ChannelParentChild, "clean room", 2)
	require.NoError(t, err)
	require.Len(t, similar, 2)
	for _, msg := range similar {
		assert.Contains(t, msg.Content, "clean")
	}
}

func TestSimilarNoOverlap(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, models.Message{
		Channel: models.ChannelParentChild,
		Content: "completely unrelated words",
	}))

	similar, err := log.Similar(ctx, models.ChannelParentChild, "zebra quantum", 5)
	require.NoError(t, err)
	assert.Empty(t, similar)
}

func TestResetClearsEverything(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	for _, ch := range models.ConversationChannels() {
		require.NoError(t, log.Append(ctx, models.Message{Channel: ch, Content: "x"}))
	}
	require.NoError(t, log.Reset(ctx))

	for _, ch := range models.ConversationChannels() {
		msgs, err := log.Recent(ctx, ch, 10)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	}
}
