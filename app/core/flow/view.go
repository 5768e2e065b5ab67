package flow

import (
	"context"
	"fmt"
	"strings"

	"taskpilot/app/core/clickup"
	"taskpilot/app/core/session"
)

// handleBrowse serves the view and list flows: both walk the hierarchy
// picker, then view lets the user open one task while list renders the
// whole set.
func (e *Engine) handleBrowse(ctx context.Context, key session.Key, sess *session.Session, input string) Outbound {
	if sess.Step == stepPickTask {
		idx, ok := chooseIndex(input, len(sess.Tasks))
		if !ok {
			return e.invalidChoice(key, sess, len(sess.Tasks))
		}
		return e.finish(key, OutCompleted, renderTask(sess.Tasks[idx-1]))
	}

	if out, ok := e.handleHierarchy(ctx, key, sess, input); ok {
		return out
	}
	e.sessions.Remove(key)
	return Outbound{Kind: OutError, Text: "Something went wrong. Please start again."}
}

func (e *Engine) promptPickTask(ctx context.Context, key session.Key, sess *session.Session) Outbound {
	tasks, err := e.tasks.ListTasks(ctx, sess.Path.List.ID, true)
	if err != nil {
		return e.fail(key, sess, err)
	}
	if len(tasks) == 0 {
		return e.finish(key, OutCompleted, fmt.Sprintf("No tasks in **%s**.", sess.Path.List.Name))
	}
	shown := tasks
	if len(shown) > listCap {
		shown = shown[:listCap]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tasks in **%s**:\n", sess.Path.List.Name)
	for i, t := range shown {
		fmt.Fprintf(&b, "%d. %s\n", i+1, taskLine(t))
	}
	if extra := len(tasks) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "... and %d more\n", extra)
	}
	b.WriteString("\nType the number of the task to view, 'back' to go back, or 'cancel' to abort.")
	return e.prompt(key, sess, stepPickTask, b.String(), withTasks(shown))
}

func (e *Engine) finishListTasks(ctx context.Context, key session.Key, sess *session.Session) Outbound {
	tasks, err := e.tasks.ListTasks(ctx, sess.Path.List.ID, true)
	if err != nil {
		return e.fail(key, sess, err)
	}
	if len(tasks) == 0 {
		return e.finish(key, OutCompleted, fmt.Sprintf("No tasks in **%s**.", sess.Path.List.Name))
	}
	shown := tasks
	if len(shown) > listCap {
		shown = shown[:listCap]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Tasks in **%s** (%d):\n", sess.Path.List.Name, len(tasks))
	for i, t := range shown {
		fmt.Fprintf(&b, "%d. %s\n", i+1, taskLine(t))
	}
	if extra := len(tasks) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "... and %d more\n", extra)
	}
	return e.finish(key, OutCompleted, strings.TrimRight(b.String(), "\n"))
}

// taskLine is the one-line form used by numbered listings.
func taskLine(t clickup.Task) string {
	line := t.Name
	if t.Status != "" {
		line += fmt.Sprintf(" [%s]", t.Status)
	}
	if !t.DueDate.IsZero() {
		line += fmt.Sprintf(" (due %s)", t.DueDate.Format("2006-01-02"))
	}
	return line
}

// renderTask is the full detail card shown by the view flow.
func renderTask(t clickup.Task) string {
	var b strings.Builder
	b.WriteString("**Task Details**\n")
	fmt.Fprintf(&b, "**Name:** %s\n", t.Name)
	fmt.Fprintf(&b, "**ID:** `%s`\n", t.ID)
	if t.Status != "" {
		fmt.Fprintf(&b, "**Status:** %s\n", t.Status)
	}
	if t.Priority != "" {
		fmt.Fprintf(&b, "**Priority:** %s\n", t.Priority)
	}
	if !t.DueDate.IsZero() {
		fmt.Fprintf(&b, "**Due date:** %s\n", t.DueDate.Format("2006-01-02"))
	}
	if len(t.Assignees) > 0 {
		fmt.Fprintf(&b, "**Assignees:** %s\n", strings.Join(t.Assignees, ", "))
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(&b, "**Tags:** %s\n", strings.Join(t.Tags, ", "))
	}
	if t.Description != "" {
		fmt.Fprintf(&b, "**Description:** %s\n", t.Description)
	}
	if t.URL != "" {
		fmt.Fprintf(&b, "**Link:** %s\n", t.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}
