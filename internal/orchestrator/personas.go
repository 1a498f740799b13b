package orchestrator

import (
	"fmt"

	"github.com/mrfrench/backend/internal/intent"
	"github.com/mrfrench/backend/internal/models"
	"github.com/mrfrench/backend/internal/tasks"
)

const mediatorParentPersona = `You are Mr. French, a sophisticated AI designed to assist a parent with managing their child, Timmy.
You are professional, polite, and helpful. Your responses should read like a message, not an email, and generally avoid bullet points unless listing tasks.
Maintain proper contextual awareness.`

const mediatorChildPersona = `You are Mr. French, a kind and supportive AI companion for Timmy.
You act nicely and patiently with Timmy. You are helpful and encouraging.
You are not always enforcing tasks; you can also chat normally.
Maintain proper contextual awareness.`

const childPersona = `You are Timmy, a lively and sometimes a bit cheeky child.
Respond naturally and briefly to your parent.
Your responses should reflect a child's personality, including occasional resistance to tasks, but also willingness to cooperate or express feelings.
Maintain an age-appropriate vocabulary and tone.`

func mediatorPersona(channel models.Channel) string {
	if channel == models.ChannelChildMediator {
		return mediatorChildPersona
	}
	return mediatorParentPersona
}

// mediatorInstruction turns the analysis outcome into the response node's
// final user-turn instruction.
func mediatorInstruction(rec intent.Record, result tasks.Result, input, fallback string) string {
	if fallback != "" {
		return fmt.Sprintf("Tell the user: %s", fallback)
	}
	switch rec.Kind {
	case intent.KindInquiry:
		return fmt.Sprintf(
			"The user asked about tasks. Here is the current list:\n%s\nRelay this conversationally, keeping each task's status, deadline, and reward.",
			result.Confirmation)
	case intent.KindAddTask, intent.KindDeleteTask:
		return fmt.Sprintf("Confirm the following to the user in your own words: %s", result.Confirmation)
	case intent.KindUpdateTask:
		if result.Completed != nil {
			return fmt.Sprintf(
				"Confirm the following and praise Timmy for completing '%s': %s",
				result.Completed.Task, result.Confirmation)
		}
		return fmt.Sprintf("Confirm the following to the user in your own words: %s", result.Confirmation)
	case intent.KindSetZone:
		return fmt.Sprintf("Acknowledge the zone change request: %s", result.Confirmation)
	default:
		return fmt.Sprintf(
			"The user just said: '%s'. Respond naturally. Do not mention tasks unless the message was about a task.",
			input)
	}
}

// childInstruction shapes Timmy's in-character reaction to the parent's turn.
func childInstruction(rec intent.Record, input string) string {
	switch rec.Kind {
	case intent.KindAddTask:
		return fmt.Sprintf(
			"Your parent just assigned you '%s'. How do you respond? You can be a bit resistant or ask questions.",
			rec.Add.Task)
	case intent.KindUpdateTask:
		if status, ok := rec.Update.Updates["status"]; ok && models.TaskStatus(status) == models.StatusCompleted {
			return fmt.Sprintf(
				"Your parent noticed you completed '%s'. How do you respond to them?",
				rec.Update.OriginalTaskName)
		}
	case intent.KindDeleteTask:
		return fmt.Sprintf(
			"Your parent just said you don't need to do '%s' anymore. How do you respond?",
			rec.Delete.Task)
	}
	return fmt.Sprintf(
		"Your parent just said '%s'. Respond naturally and briefly. Do not mention tasks unless the parent's actual message was about a task.",
		input)
}
