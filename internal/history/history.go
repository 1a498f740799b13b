// Package history is the append-only per-channel message log. The vector
// store that backs it in production is an external collaborator; this
// package defines the contract and ships an in-memory implementation.
package history

import (
	"context"

	"github.com/mrfrench/backend/internal/models"
)

// Log records every turn of every conversation. Appends are independent
// writes: the log gives no dedup or ordering guarantee beyond timestamps,
// and messages are never mutated once written.
type Log interface {
	Append(ctx context.Context, msg models.Message) error
	// Recent returns up to n messages for the channel in chronological order.
	Recent(ctx context.Context, channel models.Channel, n int) ([]models.Message, error)
	// Similar returns up to k messages ranked by relevance to the query.
	Similar(ctx context.Context, channel models.Channel, query string, k int) ([]models.Message, error)
	// Reset drops every channel's history.
	Reset(ctx context.Context) error
}
