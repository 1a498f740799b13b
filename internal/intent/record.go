package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mrfrench/backend/internal/models"
)

// Kind enumerates the recognized intent categories.
type Kind string

const (
	KindAddTask    Kind = "ADD_TASK"
	KindUpdateTask Kind = "UPDATE_TASK"
	KindDeleteTask Kind = "DELETE_TASK"
	KindInquiry    Kind = "TASK_INQUIRY"
	KindSetZone    Kind = "SET_TIMMY_ZONE"
	KindNoTask     Kind = "NO_TASK_IDENTIFIED"
)

// Record is the tagged result of analyzing one message. Exactly one payload
// pointer is set for each kind; KindNoTask carries none.
type Record struct {
	Kind    Kind
	Add     *AddPayload
	Update  *UpdatePayload
	Delete  *DeletePayload
	Inquiry *InquiryPayload
	Zone    *ZonePayload

	// Raw is the extractor's unparsed output, kept for the audit log.
	Raw string
	// ParseError is set when Raw could not be decoded and the record was
	// normalized to KindNoTask.
	ParseError string
}

type AddPayload struct {
	Task    string
	Status  models.TaskStatus
	DueDate string
	DueTime string
	Reward  string
}

type UpdatePayload struct {
	OriginalTaskName string
	Updates          map[string]string
}

type DeletePayload struct {
	Task string
}

// InquiryPayload filters the task listing: "All", a status name, or a
// task-name substring.
type InquiryPayload struct {
	Filter string
}

type ZonePayload struct {
	Zone models.Zone
}

// NoTask builds the normalized fallback record.
func NoTask(raw, reason string) Record {
	return Record{Kind: KindNoTask, Raw: raw, ParseError: reason}
}

// wireRecord is the JSON shape the extraction prompt requests.
type wireRecord struct {
	Intent           string            `json:"intent"`
	Task             string            `json:"task"`
	Status           string            `json:"status"`
	DueDate          string            `json:"due_date"`
	DueTime          string            `json:"due_time"`
	Reward           string            `json:"reward"`
	OriginalTaskName string            `json:"original_task_name"`
	Updates          map[string]string `json:"updates"`
	Filter           string            `json:"filter"`
	Zone             string            `json:"zone"`
}

// Decode parses raw LLM output into a Record. Anything that is not exactly
// one JSON object with a recognized intent collapses to KindNoTask; the
// caller substitutes the user-facing fallback message.
func Decode(raw string) Record {
	obj := extractJSON(raw)
	var wire wireRecord
	if err := json.Unmarshal([]byte(obj), &wire); err != nil {
		return NoTask(raw, fmt.Sprintf("invalid JSON: %v", err))
	}

	kind, zone := normalizeIntent(wire.Intent)
	switch kind {
	case KindAddTask:
		if strings.TrimSpace(wire.Task) == "" {
			return NoTask(raw, "ADD_TASK without a task name")
		}
		return Record{Kind: KindAddTask, Raw: raw, Add: &AddPayload{
			Task:    strings.TrimSpace(wire.Task),
			Status:  defaultStatus(wire.Status),
			DueDate: defaultString(wire.DueDate, "Today"),
			DueTime: defaultString(wire.DueTime, "Unknown"),
			Reward:  defaultString(wire.Reward, "None"),
		}}
	case KindUpdateTask:
		updates := sanitizeUpdates(wire.Updates)
		if strings.TrimSpace(wire.OriginalTaskName) == "" || len(updates) == 0 {
			return NoTask(raw, "UPDATE_TASK without target or updates")
		}
		return Record{Kind: KindUpdateTask, Raw: raw, Update: &UpdatePayload{
			OriginalTaskName: strings.TrimSpace(wire.OriginalTaskName),
			Updates:          updates,
		}}
	case KindDeleteTask:
		name := strings.TrimSpace(wire.Task)
		if name == "" {
			name = strings.TrimSpace(wire.OriginalTaskName)
		}
		if name == "" {
			return NoTask(raw, "DELETE_TASK without a task name")
		}
		return Record{Kind: KindDeleteTask, Raw: raw, Delete: &DeletePayload{Task: name}}
	case KindInquiry:
		return Record{Kind: KindInquiry, Raw: raw, Inquiry: &InquiryPayload{
			Filter: defaultString(wire.Filter, "All"),
		}}
	case KindSetZone:
		if zone == "" {
			zone = models.Zone(titleCase(wire.Zone))
		}
		if !zone.Valid() {
			return NoTask(raw, fmt.Sprintf("SET_TIMMY_ZONE with invalid zone %q", wire.Zone))
		}
		return Record{Kind: KindSetZone, Raw: raw, Zone: &ZonePayload{Zone: zone}}
	case KindNoTask:
		return Record{Kind: KindNoTask, Raw: raw}
	default:
		return NoTask(raw, fmt.Sprintf("unknown intent %q", wire.Intent))
	}
}

// normalizeIntent maps prompt-drift spellings onto the canonical kinds:
// QUERY_TASKS and GET_TASK are inquiry aliases, and the zone intent may
// arrive suffixed with the zone name.
func normalizeIntent(intent string) (Kind, models.Zone) {
	switch v := strings.ToUpper(strings.TrimSpace(intent)); v {
	case "ADD_TASK":
		return KindAddTask, ""
	case "UPDATE_TASK":
		return KindUpdateTask, ""
	case "DELETE_TASK":
		return KindDeleteTask, ""
	case "TASK_INQUIRY", "QUERY_TASKS", "GET_TASK":
		return KindInquiry, ""
	case "SET_TIMMY_ZONE":
		return KindSetZone, ""
	case "SET_TIMMY_ZONE_RED":
		return KindSetZone, models.ZoneRed
	case "SET_TIMMY_ZONE_GREEN":
		return KindSetZone, models.ZoneGreen
	case "SET_TIMMY_ZONE_BLUE":
		return KindSetZone, models.ZoneBlue
	case "NO_TASK_IDENTIFIED", "NO_TASK":
		return KindNoTask, ""
	default:
		return Kind(v), ""
	}
}

var allowedUpdateKeys = map[string]struct{}{
	"task": {}, "status": {}, "due_date": {}, "due_time": {}, "reward": {}, "recurrence": {},
}

func sanitizeUpdates(updates map[string]string) map[string]string {
	out := make(map[string]string, len(updates))
	for key, value := range updates {
		key = strings.ToLower(strings.TrimSpace(key))
		if _, ok := allowedUpdateKeys[key]; !ok {
			continue
		}
		if key == "status" && !models.TaskStatus(value).Valid() {
			continue
		}
		out[key] = value
	}
	return out
}

func defaultStatus(s string) models.TaskStatus {
	status := models.TaskStatus(titleCase(s))
	if !status.Valid() {
		return models.StatusPending
	}
	return status
}

func defaultString(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}

func titleCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
