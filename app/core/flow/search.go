package flow

import (
	"context"
	"fmt"
	"strings"

	"taskpilot/app/core/session"
)

func (e *Engine) handleSearch(ctx context.Context, key session.Key, sess *session.Session, input string) Outbound {
	if input == "" {
		return e.reprompt(key, sess, "Please type something to search for.")
	}
	sess.Query = input

	matches, err := e.tasks.SearchTasks(ctx, input)
	if err != nil {
		return e.fail(key, sess, err)
	}
	if len(matches) == 0 {
		return e.finish(key, OutCompleted, fmt.Sprintf("No tasks matched \"%s\".", input))
	}

	shown := matches
	if len(shown) > searchCap {
		shown = shown[:searchCap]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Found %d task(s) matching \"%s\":\n", len(matches), input)
	for i, t := range shown {
		fmt.Fprintf(&b, "%d. %s (ID: `%s`)\n", i+1, taskLine(t), t.ID)
	}
	if extra := len(matches) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "... and %d more\n", extra)
	}
	return e.finish(key, OutCompleted, strings.TrimRight(b.String(), "\n"))
}
