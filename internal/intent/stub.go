package intent

import (
	"context"
	"regexp"
	"strings"

	"github.com/mrfrench/backend/internal/models"
)

// StubExtractor is a deterministic Extractor for tests and dev mode. It
// recognizes a small phrase grammar instead of calling a model, so the full
// pipeline runs without network access.
type StubExtractor struct{}

func NewStubExtractor() *StubExtractor {
	return &StubExtractor{}
}

var quotedRe = regexp.MustCompile(`'([^']+)'|"([^"]+)"`)

func (s *StubExtractor) Analyze(ctx context.Context, input string, channel models.Channel, history []models.Message, taskContext string) (Record, error) {
	lower := strings.ToLower(input)

	switch {
	case strings.Contains(lower, "red zone"):
		return Record{Kind: KindSetZone, Raw: input, Zone: &ZonePayload{Zone: models.ZoneRed}}, nil
	case strings.Contains(lower, "blue zone"):
		return Record{Kind: KindSetZone, Raw: input, Zone: &ZonePayload{Zone: models.ZoneBlue}}, nil
	case strings.Contains(lower, "green zone"):
		return Record{Kind: KindSetZone, Raw: input, Zone: &ZonePayload{Zone: models.ZoneGreen}}, nil

	case strings.Contains(lower, "what tasks") || strings.Contains(lower, "which tasks") ||
		strings.Contains(lower, "list tasks") || strings.Contains(lower, "any tasks"):
		filter := "All"
		for _, status := range []string{"pending", "progress", "completed"} {
			if strings.Contains(lower, status) {
				filter = strings.ToUpper(status[:1]) + status[1:]
			}
		}
		return Record{Kind: KindInquiry, Raw: input, Inquiry: &InquiryPayload{Filter: filter}}, nil

	case strings.Contains(lower, "finished") || strings.Contains(lower, "i'm done") ||
		strings.Contains(lower, "i am done") || strings.Contains(lower, "completed"):
		name := s.extractName(input, "finished")
		if name == "" {
			return NoTask(input, "stub: no task name in completion phrase"), nil
		}
		return Record{Kind: KindUpdateTask, Raw: input, Update: &UpdatePayload{
			OriginalTaskName: name,
			Updates:          map[string]string{"status": string(models.StatusCompleted)},
		}}, nil

	case strings.Contains(lower, "doesn't have to") || strings.Contains(lower, "remove the task") ||
		strings.Contains(lower, "cancel the task"):
		name := s.extractName(input, "")
		if name == "" {
			return NoTask(input, "stub: no task name in cancellation phrase"), nil
		}
		return Record{Kind: KindDeleteTask, Raw: input, Delete: &DeletePayload{Task: name}}, nil

	case strings.Contains(lower, "needs to") || strings.Contains(lower, "add a task") ||
		strings.Contains(lower, "you have to") || strings.Contains(lower, "please"):
		name := s.extractName(input, "needs to")
		if name == "" {
			return NoTask(input, "stub: no task name in assignment phrase"), nil
		}
		dueTime := "Unknown"
		for _, phrase := range []string{"tonight", "evening", "morning", "afternoon", "noon", "midnight"} {
			if strings.Contains(lower, phrase) {
				dueTime = phrase
			}
		}
		dueDate := "Today"
		if strings.Contains(lower, "tomorrow") {
			dueDate = "Tomorrow"
		}
		return Record{Kind: KindAddTask, Raw: input, Add: &AddPayload{
			Task:    name,
			Status:  models.StatusPending,
			DueDate: dueDate,
			DueTime: dueTime,
			Reward:  "None",
		}}, nil
	}

	return Record{Kind: KindNoTask, Raw: input}, nil
}

// extractName prefers a quoted task name; otherwise it takes the clause
// after the trigger phrase, trimmed of deadline words.
func (s *StubExtractor) extractName(input, trigger string) string {
	if m := quotedRe.FindStringSubmatch(input); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}
	lower := strings.ToLower(input)
	if trigger != "" {
		if idx := strings.Index(lower, trigger); idx >= 0 {
			rest := input[idx+len(trigger):]
			return trimClause(rest)
		}
	}
	if idx := strings.Index(lower, "to "); idx >= 0 {
		return trimClause(input[idx+3:])
	}
	return ""
}

func trimClause(s string) string {
	s = strings.TrimSpace(s)
	for _, cut := range []string{" by ", " before ", " due ", " tonight", " tomorrow", " today"} {
		if idx := strings.Index(strings.ToLower(s), cut); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.Trim(strings.TrimSpace(s), ".,!?")
}
