package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskpilot/app/core/clickup"
	"taskpilot/app/core/session"
)

func (e *Engine) handleCreate(ctx context.Context, key session.Key, sess *session.Session, input string) Outbound {
	switch sess.Step {
	case stepName:
		if input == "" {
			return e.reprompt(key, sess, "The task name can't be empty.")
		}
		sess.Name = input
		return e.prompt(key, sess, stepDescription,
			"Great. Add a short description (or type 'skip').")

	case stepDescription:
		if !strings.EqualFold(input, "skip") {
			sess.Description = input
		} else {
			sess.Description = ""
		}
		return e.prompt(key, sess, stepDueDate,
			"Optional: provide a due date (YYYY-MM-DD) or type 'skip'.")

	case stepDueDate:
		if strings.EqualFold(input, "skip") {
			sess.DueDate = ""
		} else {
			if _, err := time.Parse("2006-01-02", input); err != nil {
				return e.reprompt(key, sess, "That doesn't look like a date. Use YYYY-MM-DD, e.g. 2026-09-01.")
			}
			sess.DueDate = input
		}
		return e.promptTeamsContinue(ctx, key, sess)

	case stepConfirm:
		switch strings.ToLower(input) {
		case "yes", "confirm":
			task, err := e.tasks.CreateTask(ctx, sess.Path.List.ID, clickup.TaskDraft{
				Name:        sess.Name,
				Description: sess.Description,
				DueDate:     sess.DueDate,
			})
			if err != nil {
				return e.fail(key, sess, err)
			}
			text := fmt.Sprintf("✅ Task created: **%s** (ID: `%s`)", task.Name, task.ID)
			if task.URL != "" {
				text += "\n" + task.URL
			}
			return e.finish(key, OutCompleted, text)
		default:
			return e.reprompt(key, sess, "Type 'yes' to create the task, 'back' to change something, or 'cancel' to abort.")
		}
	}

	if out, ok := e.handleHierarchy(ctx, key, sess, input); ok {
		return out
	}
	e.sessions.Remove(key)
	return Outbound{Kind: OutError, Text: "Something went wrong. Please start again."}
}

// promptTeamsContinue pushes the team prompt as the next step of an
// already-running flow (unlike promptTeams, which opens one).
func (e *Engine) promptTeamsContinue(ctx context.Context, key session.Key, sess *session.Session) Outbound {
	teams, err := e.hier.Teams(ctx)
	if err != nil {
		return e.fail(key, sess, err)
	}
	if len(teams) == 0 {
		return e.finish(key, OutError, "No teams found in your ClickUp workspace.")
	}
	return e.prompt(key, sess, stepTeam,
		renderOptions("Now pick where the task should live.\n\nAvailable teams:", teams, ""),
		withOptions(teams))
}

func (e *Engine) promptCreateConfirm(key session.Key, sess *session.Session) Outbound {
	var b strings.Builder
	b.WriteString("Please confirm the new task:\n")
	fmt.Fprintf(&b, "**Name:** %s\n", sess.Name)
	if sess.Description != "" {
		fmt.Fprintf(&b, "**Description:** %s\n", sess.Description)
	}
	if sess.DueDate != "" {
		fmt.Fprintf(&b, "**Due date:** %s\n", sess.DueDate)
	}
	fmt.Fprintf(&b, "**List:** %s\n", pathLabel(sess.Path))
	b.WriteString("\nType 'yes' to create it, 'back' to change the list, or 'cancel' to abort.")
	return e.prompt(key, sess, stepConfirm, b.String())
}
