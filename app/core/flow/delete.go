package flow

import (
	"context"
	"fmt"

	"taskpilot/app/core/session"
)

func (e *Engine) handleDelete(ctx context.Context, key session.Key, sess *session.Session, input string) Outbound {
	if sess.Step != stepTaskID {
		e.sessions.Remove(key)
		return Outbound{Kind: OutError, Text: "Something went wrong. Please start again."}
	}
	if input == "" {
		return e.reprompt(key, sess, "Please provide the task ID.")
	}
	task, err := e.tasks.Task(ctx, input)
	if err != nil {
		return e.fail(key, sess, err)
	}
	sess.TaskID = task.ID
	sess.TaskName = task.Name

	text := fmt.Sprintf("⚠️ You are about to permanently delete this task:\n\n%s\n\nType DELETE (all caps) to confirm. Anything else cancels.",
		renderTask(task))
	return e.prompt(key, sess, stepDeleteConfirm, text)
}

// handleDeleteConfirm is the one step where the control words do not
// apply: only the exact token DELETE commits, any other input cancels.
func (e *Engine) handleDeleteConfirm(ctx context.Context, key session.Key, sess *session.Session, input string) Outbound {
	if input != "DELETE" {
		return e.finish(key, OutCancelled, "Cancelled task deletion.")
	}
	if err := e.tasks.DeleteTask(ctx, sess.TaskID); err != nil {
		return e.fail(key, sess, err)
	}
	return e.finish(key, OutCompleted, fmt.Sprintf("🗑️ Deleted **%s**.", sess.TaskName))
}
