package bot

import (
	"context"
	"log"
	"strings"

	"github.com/tidwall/match"

	"taskpilot/app/core/audit"
	"taskpilot/app/core/flow"
	"taskpilot/app/core/report"
	"taskpilot/app/core/session"
	"taskpilot/app/pkg/types"
)

const helpText = `I manage ClickUp tasks. Try one of these:
- **create task** - start a guided task creation
- **view task** - browse to a task and see its details
- **list tasks** - show every task in a list
- **search tasks** - find tasks by keyword
- **update task** - change a task's name, description, due date or status
- **delete task** - permanently remove a task
- **daily report**, **weekly report**, **overdue tasks**, **completed tasks**, **team analytics**, **task summary**

During a flow, type 'back' to return to the previous step or 'cancel' to abort.`

// flowTriggers maps normalized commands to the flow they open.
var flowTriggers = map[string]session.FlowKind{
	"create task":   session.FlowCreate,
	"create a task": session.FlowCreate,
	"new task":      session.FlowCreate,
	"view task":     session.FlowView,
	"view a task":   session.FlowView,
	"list tasks":    session.FlowList,
	"show tasks":    session.FlowList,
	"search task":   session.FlowSearch,
	"search tasks":  session.FlowSearch,
	"find task":     session.FlowSearch,
	"find tasks":    session.FlowSearch,
	"update task":   session.FlowUpdate,
	"update a task": session.FlowUpdate,
	"edit task":     session.FlowUpdate,
	"delete task":   session.FlowDelete,
	"delete a task": session.FlowDelete,
	"remove task":   session.FlowDelete,
}

// reportTriggers maps normalized commands to report kinds.
var reportTriggers = map[string]report.Kind{
	"daily report":    report.KindDaily,
	"weekly report":   report.KindWeekly,
	"overdue tasks":   report.KindOverdue,
	"completed tasks": report.KindCompleted,
	"team analytics":  report.KindAnalytics,
	"task summary":    report.KindSummary,
}

// Auditor records command outcomes. A nil Auditor disables recording.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Bot routes chat messages: live sessions go to the flow engine,
// everything else is matched against the command table.
type Bot struct {
	name    string
	engine  *flow.Engine
	auditor Auditor
}

func New(name string, engine *flow.Engine, auditor Auditor) *Bot {
	if name == "" {
		name = "taskpilot"
	}
	return &Bot{name: name, engine: engine, auditor: auditor}
}

func (b *Bot) Name() string { return b.name }

func (b *Bot) Process(ctx context.Context, msg types.Message) (types.Message, error) {
	key := session.Key{UserID: msg.UserID, ChatID: msg.ChatID}
	norm := normalize(msg.Content)

	if b.engine.Active(key) {
		out := b.engine.Handle(ctx, key, msg.Content)
		b.record(ctx, key, "", out)
		return b.reply(msg, out.Text), nil
	}

	if kind, ok := flowTriggers[norm]; ok {
		out := b.engine.Start(ctx, key, kind)
		b.record(ctx, key, string(kind), out)
		return b.reply(msg, out.Text), nil
	}
	if kind, ok := reportTriggers[norm]; ok {
		out := b.engine.StartReport(ctx, key, kind)
		b.record(ctx, key, "report:"+string(kind), out)
		return b.reply(msg, out.Text), nil
	}

	switch {
	case norm == "help":
		return b.reply(msg, helpText), nil
	case norm == "wake up":
		return b.reply(msg, "I'm awake!"), nil
	case norm == "hi" || norm == "hello":
		return b.reply(msg, "I can understand hi or HI!"), nil
	case msg.Mention && match.Match(norm, "hey*"):
		return b.reply(msg, "Hi! You mentioned me?"), nil
	case msg.Mention:
		// A direct mention with no known command gets the help text
		// instead of silence.
		return b.reply(msg, helpText), nil
	}

	// Not addressed to us; stay quiet.
	return b.reply(msg, ""), nil
}

func (b *Bot) reply(in types.Message, text string) types.Message {
	return types.Message{
		Content:   text,
		Role:      types.RoleAssistant,
		ChannelID: in.ChannelID,
		ChatID:    in.ChatID,
		UserID:    in.UserID,
		RequestID: in.RequestID,
	}
}

// record writes terminal flow outcomes and flow starts to the audit
// trail. Recording failures never block the reply.
func (b *Bot) record(ctx context.Context, key session.Key, started string, out flow.Outbound) {
	if b.auditor == nil {
		return
	}
	var outcome string
	switch out.Kind {
	case flow.OutCompleted:
		outcome = "completed"
	case flow.OutCancelled:
		outcome = "cancelled"
	case flow.OutError:
		outcome = "error"
	case flow.OutPrompt:
		if started == "" {
			return
		}
		outcome = "started"
	default:
		return
	}
	err := b.auditor.Record(ctx, audit.Entry{
		UserID:  key.UserID,
		ChatID:  key.ChatID,
		Flow:    started,
		Outcome: outcome,
		Detail:  firstLine(out.Text),
	})
	if err != nil {
		log.Printf("[Bot] audit record failed: %v", err)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// normalize lowercases and collapses whitespace so trigger matching is
// insensitive to casing and spacing.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
