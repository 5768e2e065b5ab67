package flow

import (
	"context"
	"errors"
	"log"
	"strings"

	"taskpilot/app/core/clickup"
	"taskpilot/app/core/report"
	"taskpilot/app/core/session"
)

// Step names. Hierarchy steps are shared by every flow that needs to
// locate a list; the rest belong to a single flow.
const (
	stepName        = "name"
	stepDescription = "description"
	stepDueDate     = "due_date"
	stepTeam        = "team"
	stepSpace       = "space"
	stepFolder      = "folder"
	stepList        = "list"
	stepConfirm     = "confirm"

	stepPickTask = "pick_task"
	stepQuery    = "query"

	stepTaskID        = "task_id"
	stepField         = "field"
	stepValue         = "value"
	stepUpdateConfirm = "update_confirm"

	stepDeleteConfirm = "delete_confirm"

	stepReportTeam = "report_team"
)

// Display caps. Longer result sets are truncated with a trailing count.
const (
	listCap   = 20
	searchCap = 10
)

type OutKind int

const (
	// OutNone means the engine has nothing to say (no live session).
	OutNone OutKind = iota
	OutPrompt
	OutCompleted
	OutCancelled
	OutError
)

// Outbound is one reply from the engine. Prompt means the session is
// still live and waiting for input; every other kind is terminal and
// the session is already gone.
type Outbound struct {
	Kind OutKind
	Text string
}

// HierarchyClient navigates the team > space > folder > list chain.
type HierarchyClient interface {
	Teams(ctx context.Context) ([]clickup.Item, error)
	Spaces(ctx context.Context, teamID string) ([]clickup.Item, error)
	Folders(ctx context.Context, spaceID string) ([]clickup.Item, error)
	Lists(ctx context.Context, spaceID, folderID string) ([]clickup.Item, error)
}

// TaskClient covers the task operations the flows commit against.
type TaskClient interface {
	Task(ctx context.Context, taskID string) (clickup.Task, error)
	ListTasks(ctx context.Context, listID string, includeClosed bool) ([]clickup.Task, error)
	SearchTasks(ctx context.Context, query string) ([]clickup.Task, error)
	CreateTask(ctx context.Context, listID string, draft clickup.TaskDraft) (clickup.Task, error)
	UpdateTask(ctx context.Context, taskID, field, value string) error
	DeleteTask(ctx context.Context, taskID string) error
}

// Reporter turns a report request into rendered text.
type Reporter interface {
	Build(ctx context.Context, kind report.Kind, teamID string) (string, error)
}

// Engine drives every multi-turn flow. It owns no ordering: the
// dispatcher guarantees messages for one (user, chat) key arrive one
// at a time, so Handle never races with itself on a session.
type Engine struct {
	sessions *session.Store
	hier     HierarchyClient
	tasks    TaskClient
	reports  Reporter
}

func New(store *session.Store, hier HierarchyClient, tasks TaskClient, reports Reporter) *Engine {
	return &Engine{sessions: store, hier: hier, tasks: tasks, reports: reports}
}

// Active reports whether key has a live, unexpired session.
func (e *Engine) Active(key session.Key) bool {
	_, ok := e.sessions.Get(key)
	return ok
}

// Start begins a new flow for key, replacing any session left behind.
func (e *Engine) Start(ctx context.Context, key session.Key, kind session.FlowKind) Outbound {
	sess := session.New(key, kind)
	switch kind {
	case session.FlowCreate:
		return e.prompt(key, sess, stepName, "Let's create a task. What is the task name?")
	case session.FlowView, session.FlowList:
		return e.promptTeams(ctx, key, sess)
	case session.FlowSearch:
		return e.prompt(key, sess, stepQuery, "What should I search for? Type a keyword or phrase.")
	case session.FlowUpdate:
		return e.prompt(key, sess, stepTaskID, "Which task do you want to update? Please provide the task ID.")
	case session.FlowDelete:
		return e.prompt(key, sess, stepTaskID, "Which task do you want to delete? Please provide the task ID.")
	default:
		return Outbound{}
	}
}

// StartReport begins a report flow. With a single accessible team the
// report is produced immediately; otherwise the user picks the team.
func (e *Engine) StartReport(ctx context.Context, key session.Key, kind report.Kind) Outbound {
	sess := session.New(key, session.FlowReport)
	sess.ReportKind = string(kind)

	teams, err := e.hier.Teams(ctx)
	if err != nil {
		return e.fail(key, sess, err)
	}
	if len(teams) == 0 {
		return Outbound{Kind: OutError, Text: "No teams found in your ClickUp workspace."}
	}
	if len(teams) == 1 {
		return e.buildReport(ctx, key, kind, teams[0].ID)
	}
	sess.Options = teams
	return e.prompt(key, sess, stepReportTeam,
		renderOptions("Which team should the report cover?", teams, ""),
		withOptions(teams))
}

// Handle advances key's live session with one user message.
func (e *Engine) Handle(ctx context.Context, key session.Key, text string) Outbound {
	sess, ok := e.sessions.Get(key)
	if !ok {
		return Outbound{Kind: OutCancelled, Text: "Your session expired. Send a command to start again."}
	}

	input := strings.TrimSpace(text)

	// The delete confirmation is a literal step: only the exact token
	// DELETE commits, and nothing else is interpreted, not even the
	// control words.
	if sess.Step == stepDeleteConfirm {
		return e.handleDeleteConfirm(ctx, key, sess, input)
	}

	switch strings.ToLower(input) {
	case "cancel":
		flow := sess.Flow
		e.sessions.Remove(key)
		return Outbound{Kind: OutCancelled, Text: cancelText(flow)}
	case "back":
		if !sess.PopFrame() {
			return e.reprompt(key, sess, "You're already at the first step.")
		}
		return e.reprompt(key, sess, "")
	}

	switch sess.Flow {
	case session.FlowCreate:
		return e.handleCreate(ctx, key, sess, input)
	case session.FlowView, session.FlowList:
		return e.handleBrowse(ctx, key, sess, input)
	case session.FlowSearch:
		return e.handleSearch(ctx, key, sess, input)
	case session.FlowUpdate:
		return e.handleUpdate(ctx, key, sess, input)
	case session.FlowDelete:
		return e.handleDelete(ctx, key, sess, input)
	case session.FlowReport:
		return e.handleReport(ctx, key, sess, input)
	default:
		e.sessions.Remove(key)
		return Outbound{Kind: OutError, Text: "Something went wrong. Please start again."}
	}
}

// promptOption customizes a pushed frame.
type promptOption func(*frameExtras)

type frameExtras struct {
	options []clickup.Item
	tasks   []clickup.Task
}

func withOptions(options []clickup.Item) promptOption {
	return func(fe *frameExtras) { fe.options = options }
}

func withTasks(tasks []clickup.Task) promptOption {
	return func(fe *frameExtras) { fe.tasks = tasks }
}

// prompt renders a new step: the frame is pushed so "back" can restore
// it verbatim later, and the session clock is refreshed.
func (e *Engine) prompt(key session.Key, sess *session.Session, step, text string, opts ...promptOption) Outbound {
	var extras frameExtras
	for _, opt := range opts {
		opt(&extras)
	}
	sess.PushFrame(step, text, extras.options, extras.tasks)
	e.sessions.Put(key, sess)
	return Outbound{Kind: OutPrompt, Text: text}
}

// reprompt re-renders the current frame, optionally prefixed with a
// note about why the previous input did not advance the flow.
func (e *Engine) reprompt(key session.Key, sess *session.Session, note string) Outbound {
	e.sessions.Put(key, sess)
	text := sess.Top().Prompt
	if note != "" {
		text = note + "\n\n" + text
	}
	return Outbound{Kind: OutPrompt, Text: text}
}

// finish ends the flow with a terminal reply and drops the session.
func (e *Engine) finish(key session.Key, kind OutKind, text string) Outbound {
	e.sessions.Remove(key)
	return Outbound{Kind: kind, Text: text}
}

// fail maps a ClickUp error to a reply. Rate limiting and transport
// failures keep the session so the user can retry without losing
// progress; everything else aborts.
func (e *Engine) fail(key session.Key, sess *session.Session, err error) Outbound {
	var transport *clickup.TransportError
	retryable := errors.Is(err, clickup.ErrRateLimited) || errors.As(err, &transport)

	switch {
	case retryable && len(sess.Stack) > 0:
		log.Printf("[Flow] retryable clickup error for %s/%s: %v", sess.Key.UserID, sess.Key.ChatID, err)
		return e.reprompt(key, sess, "ClickUp is temporarily unavailable. Please try again in a moment.")
	case retryable:
		e.sessions.Remove(key)
		return Outbound{Kind: OutError, Text: "ClickUp is temporarily unavailable. Please try again in a moment."}
	case errors.Is(err, clickup.ErrNotFound):
		e.sessions.Remove(key)
		return Outbound{Kind: OutError, Text: "I couldn't find that in ClickUp. Check the ID and start again."}
	case errors.Is(err, clickup.ErrAuth):
		e.sessions.Remove(key)
		return Outbound{Kind: OutError, Text: "ClickUp rejected the bot's credentials. Ask an administrator to check the API token."}
	default:
		log.Printf("[Flow] clickup error for %s/%s: %v", sess.Key.UserID, sess.Key.ChatID, err)
		e.sessions.Remove(key)
		return Outbound{Kind: OutError, Text: "Something went wrong talking to ClickUp. Please start again."}
	}
}

func cancelText(flow session.FlowKind) string {
	switch flow {
	case session.FlowCreate:
		return "Cancelled task creation."
	case session.FlowUpdate:
		return "Cancelled task update."
	case session.FlowDelete:
		return "Cancelled task deletion."
	case session.FlowSearch:
		return "Cancelled search."
	case session.FlowReport:
		return "Cancelled report."
	default:
		return "Cancelled."
	}
}
