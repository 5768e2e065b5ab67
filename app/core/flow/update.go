package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskpilot/app/core/session"
)

// The numbered field menu of the update flow, in display order.
var updateFields = []struct {
	label string
	field string
}{
	{"Name", "name"},
	{"Description", "description"},
	{"Due date", "due_date"},
	{"Status", "status"},
}

func (e *Engine) handleUpdate(ctx context.Context, key session.Key, sess *session.Session, input string) Outbound {
	switch sess.Step {
	case stepTaskID:
		if input == "" {
			return e.reprompt(key, sess, "Please provide the task ID.")
		}
		task, err := e.tasks.Task(ctx, input)
		if err != nil {
			return e.fail(key, sess, err)
		}
		sess.TaskID = task.ID
		sess.TaskName = task.Name

		var b strings.Builder
		fmt.Fprintf(&b, "Updating **%s**. What do you want to change?\n", task.Name)
		for i, f := range updateFields {
			fmt.Fprintf(&b, "%d. %s\n", i+1, f.label)
		}
		b.WriteString("\nType the number of your choice, 'back' to go back, or 'cancel' to abort.")
		return e.prompt(key, sess, stepField, b.String())

	case stepField:
		idx, ok := chooseIndex(input, len(updateFields))
		if !ok {
			return e.invalidChoice(key, sess, len(updateFields))
		}
		sess.Field = updateFields[idx-1].field
		return e.prompt(key, sess, stepValue, valuePrompt(sess.Field))

	case stepValue:
		switch sess.Field {
		case "name":
			if input == "" {
				return e.reprompt(key, sess, "The name can't be empty.")
			}
		case "due_date":
			if _, err := time.Parse("2006-01-02", input); err != nil {
				return e.reprompt(key, sess, "That doesn't look like a date. Use YYYY-MM-DD, e.g. 2026-09-01.")
			}
		}
		sess.NewValue = input
		text := fmt.Sprintf("Change the %s of **%s** to \"%s\"?\n\nType 'yes' to apply, 'back' to pick a different value, or 'cancel' to abort.",
			fieldLabel(sess.Field), sess.TaskName, sess.NewValue)
		return e.prompt(key, sess, stepUpdateConfirm, text)

	case stepUpdateConfirm:
		switch strings.ToLower(input) {
		case "yes", "confirm":
			if err := e.tasks.UpdateTask(ctx, sess.TaskID, sess.Field, sess.NewValue); err != nil {
				return e.fail(key, sess, err)
			}
			return e.finish(key, OutCompleted,
				fmt.Sprintf("✅ Updated the %s of **%s**.", fieldLabel(sess.Field), sess.TaskName))
		default:
			return e.reprompt(key, sess, "Type 'yes' to apply the change, 'back' to go back, or 'cancel' to abort.")
		}
	}

	e.sessions.Remove(key)
	return Outbound{Kind: OutError, Text: "Something went wrong. Please start again."}
}

func valuePrompt(field string) string {
	switch field {
	case "name":
		return "Enter the new name."
	case "description":
		return "Enter the new description."
	case "due_date":
		return "Enter the new due date (YYYY-MM-DD)."
	default:
		return "Enter the new status (e.g. 'in progress' or 'done')."
	}
}

func fieldLabel(field string) string {
	if field == "due_date" {
		return "due date"
	}
	return field
}
