package flow

import (
	"context"

	"taskpilot/app/core/report"
	"taskpilot/app/core/session"
)

func (e *Engine) handleReport(ctx context.Context, key session.Key, sess *session.Session, input string) Outbound {
	if sess.Step != stepReportTeam {
		e.sessions.Remove(key)
		return Outbound{Kind: OutError, Text: "Something went wrong. Please start again."}
	}
	idx, ok := chooseIndex(input, len(sess.Options))
	if !ok {
		return e.invalidChoice(key, sess, len(sess.Options))
	}
	team := sess.Options[idx-1]
	e.sessions.Remove(key)
	return e.buildReport(ctx, key, report.Kind(sess.ReportKind), team.ID)
}

// buildReport renders a report outside any session; report flows hold
// no state worth keeping once the team is known.
func (e *Engine) buildReport(ctx context.Context, key session.Key, kind report.Kind, teamID string) Outbound {
	text, err := e.reports.Build(ctx, kind, teamID)
	if err != nil {
		return e.fail(key, session.New(key, session.FlowReport), err)
	}
	return Outbound{Kind: OutCompleted, Text: text}
}
