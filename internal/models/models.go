package models

import "time"

// Channel identifies one of the fixed conversation contexts.
type Channel string

const (
	ChannelParentChild    Channel = "parent-child"
	ChannelParentMediator Channel = "parent-mediator"
	ChannelChildMediator  Channel = "child-mediator"

	// ChannelMediatorLogs is the audit log for Mr. French's analyses.
	// It is never a conversation channel.
	ChannelMediatorLogs Channel = "mediator-logs"
)

// ConversationChannels lists the channels users can speak on.
func ConversationChannels() []Channel {
	return []Channel{ChannelParentChild, ChannelParentMediator, ChannelChildMediator}
}

func (c Channel) Valid() bool {
	switch c {
	case ChannelParentChild, ChannelParentMediator, ChannelChildMediator:
		return true
	}
	return false
}

// Speaker is the display name of a conversation participant.
type Speaker string

const (
	SpeakerParent   Speaker = "Parent"
	SpeakerChild    Speaker = "Timmy"
	SpeakerMediator Speaker = "Mr. French"
)

// Role is the chat role derived from the speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// TaskStatus is the completion state of a task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "Pending"
	StatusProgress  TaskStatus = "Progress"
	StatusCompleted TaskStatus = "Completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is an assignable chore for Timmy. Due date and time keep the coarse
// phrases the extractor produced ("Today", "tonight", "2025-08-01"); the
// deadline formatter resolves them when a reply needs a concrete time.
type Task struct {
	ID         string     `json:"id"`
	Task       string     `json:"task"`
	Status     TaskStatus `json:"status"`
	DueDate    string     `json:"due_date"`
	DueTime    string     `json:"due_time"`
	Reward     string     `json:"reward"`
	Recurrence string     `json:"recurrence,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Message is one utterance in a channel's history. Messages are append-only
// and never mutated in place.
type Message struct {
	ID        string    `json:"id"`
	Channel   Channel   `json:"channel_id"`
	Role      Role      `json:"role"`
	Sender    Speaker   `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Zone is Timmy's coarse behavioral status.
type Zone string

const (
	ZoneRed   Zone = "Red"
	ZoneGreen Zone = "Green"
	ZoneBlue  Zone = "Blue"
)

func (z Zone) Valid() bool {
	switch z {
	case ZoneRed, ZoneGreen, ZoneBlue:
		return true
	}
	return false
}
