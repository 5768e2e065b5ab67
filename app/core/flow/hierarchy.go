package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"taskpilot/app/core/clickup"
	"taskpilot/app/core/session"
)

// folderlessLabel is the synthetic choice appended to every folder
// prompt, because ClickUp lists may live directly under a space.
const folderlessLabel = "(No folder - lists directly in space)"

func (e *Engine) promptTeams(ctx context.Context, key session.Key, sess *session.Session) Outbound {
	teams, err := e.hier.Teams(ctx)
	if err != nil {
		return e.fail(key, sess, err)
	}
	if len(teams) == 0 {
		e.sessions.Remove(key)
		return Outbound{Kind: OutError, Text: "No teams found in your ClickUp workspace."}
	}
	return e.prompt(key, sess, stepTeam,
		renderOptions("Available teams:", teams, ""),
		withOptions(teams))
}

// handleHierarchy advances the shared team > space > folder > list
// picker. It reports false when the current step is not one of its
// steps, so callers can handle their own steps first.
func (e *Engine) handleHierarchy(ctx context.Context, key session.Key, sess *session.Session, input string) (Outbound, bool) {
	switch sess.Step {
	case stepTeam:
		idx, ok := chooseIndex(input, len(sess.Options))
		if !ok {
			return e.invalidChoice(key, sess, len(sess.Options)), true
		}
		sess.Path.Team = sess.Options[idx-1]

		spaces, err := e.hier.Spaces(ctx, sess.Path.Team.ID)
		if err != nil {
			return e.fail(key, sess, err), true
		}
		if len(spaces) == 0 {
			return e.finish(key, OutError, "No spaces found in this team."), true
		}
		return e.prompt(key, sess, stepSpace,
			renderOptions("Available spaces:", spaces, ""),
			withOptions(spaces)), true

	case stepSpace:
		idx, ok := chooseIndex(input, len(sess.Options))
		if !ok {
			return e.invalidChoice(key, sess, len(sess.Options)), true
		}
		sess.Path.Space = sess.Options[idx-1]

		folders, err := e.hier.Folders(ctx, sess.Path.Space.ID)
		if err != nil {
			return e.fail(key, sess, err), true
		}
		if len(folders) == 0 {
			// Nothing to pick; jump straight to the space's own lists.
			sess.Path.Folderless = true
			sess.Path.Folder = clickup.Item{}
			return e.promptLists(ctx, key, sess), true
		}
		return e.prompt(key, sess, stepFolder,
			renderOptions("Available folders:", folders, folderlessLabel),
			withOptions(folders)), true

	case stepFolder:
		// The synthetic folderless entry counts as one extra choice.
		idx, ok := chooseIndex(input, len(sess.Options)+1)
		if !ok {
			return e.invalidChoice(key, sess, len(sess.Options)+1), true
		}
		if idx == len(sess.Options)+1 {
			sess.Path.Folderless = true
			sess.Path.Folder = clickup.Item{}
		} else {
			sess.Path.Folderless = false
			sess.Path.Folder = sess.Options[idx-1]
		}
		return e.promptLists(ctx, key, sess), true

	case stepList:
		idx, ok := chooseIndex(input, len(sess.Options))
		if !ok {
			return e.invalidChoice(key, sess, len(sess.Options)), true
		}
		sess.Path.List = sess.Options[idx-1]
		return e.afterListSelected(ctx, key, sess), true
	}
	return Outbound{}, false
}

func (e *Engine) promptLists(ctx context.Context, key session.Key, sess *session.Session) Outbound {
	lists, err := e.hier.Lists(ctx, sess.Path.Space.ID, sess.Path.Folder.ID)
	if err != nil {
		return e.fail(key, sess, err)
	}
	if len(lists) == 0 {
		return e.finish(key, OutError, "No lists found here. Create a list in ClickUp first.")
	}
	return e.prompt(key, sess, stepList,
		renderOptions("Available lists:", lists, ""),
		withOptions(lists))
}

// afterListSelected routes to whatever the flow does once it knows the
// target list.
func (e *Engine) afterListSelected(ctx context.Context, key session.Key, sess *session.Session) Outbound {
	switch sess.Flow {
	case session.FlowCreate:
		return e.promptCreateConfirm(key, sess)
	case session.FlowView:
		return e.promptPickTask(ctx, key, sess)
	case session.FlowList:
		return e.finishListTasks(ctx, key, sess)
	default:
		e.sessions.Remove(key)
		return Outbound{Kind: OutError, Text: "Something went wrong. Please start again."}
	}
}

func (e *Engine) invalidChoice(key session.Key, sess *session.Session, n int) Outbound {
	return e.reprompt(key, sess, fmt.Sprintf("Please type a number between 1 and %d.", n))
}

// chooseIndex parses a 1-based numbered choice.
func chooseIndex(input string, n int) (int, bool) {
	idx, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || idx < 1 || idx > n {
		return 0, false
	}
	return idx, true
}

func renderOptions(header string, items []clickup.Item, extra string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Name)
	}
	if extra != "" {
		fmt.Fprintf(&b, "%d. %s\n", len(items)+1, extra)
	}
	b.WriteString("\nType the number of your choice, 'back' to go back, or 'cancel' to abort.")
	return b.String()
}

// pathLabel renders the selected hierarchy for confirmation prompts.
func pathLabel(p session.Path) string {
	parts := []string{p.Team.Name, p.Space.Name}
	if !p.Folderless && p.Folder.Name != "" {
		parts = append(parts, p.Folder.Name)
	}
	parts = append(parts, p.List.Name)
	return strings.Join(parts, " / ")
}
