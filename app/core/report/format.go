package report

import (
	"fmt"
	"strings"

	"taskpilot/app/core/clickup"
)

// sectionCap bounds every per-task listing inside a report.
const sectionCap = 10

// Format renders a report as chat-ready markdown.
func Format(r Report) string {
	switch r.Kind {
	case KindDaily:
		return formatDaily(r)
	case KindWeekly:
		return formatWeekly(r)
	case KindOverdue:
		return formatOverdue(r)
	case KindCompleted:
		return formatCompleted(r)
	case KindAnalytics:
		return formatAnalytics(r)
	default:
		return formatSummary(r)
	}
}

func formatDaily(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 **Daily Report - %s**\n\n", r.End.Format("2006-01-02"))
	fmt.Fprintf(&b, "**Total tasks:** %d\n", r.Total)
	fmt.Fprintf(&b, "**Completed:** %d | **Active:** %d\n", r.Completed, r.Active)

	writeTaskSection(&b, fmt.Sprintf("Created today (%d)", len(r.CreatedInWindow)), r.CreatedInWindow)
	writeTaskSection(&b, fmt.Sprintf("Completed today (%d)", len(r.CompletedInWindow)), r.CompletedInWindow)
	writeOverdueSection(&b, fmt.Sprintf("Overdue (%d)", len(r.Overdue)), r.Overdue)
	return strings.TrimRight(b.String(), "\n")
}

func formatWeekly(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 **Weekly Report - %s to %s**\n\n",
		r.Start.Format("Jan 02"), r.End.Format("Jan 02"))
	fmt.Fprintf(&b, "**Total tasks:** %d\n", r.Total)
	fmt.Fprintf(&b, "**Completed this week:** %d\n", len(r.CompletedInWindow))
	fmt.Fprintf(&b, "**Created this week:** %d\n", len(r.CreatedInWindow))
	fmt.Fprintf(&b, "**Completion rate:** %.0f%%\n", r.CompletionRate*100)

	if len(r.TopPerformers) > 0 {
		b.WriteString("\n**Top performers:**\n")
		for i, p := range r.TopPerformers {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "%d. %s (%d completed)\n", i+1, p.Name, p.Completed)
		}
	}
	writeOverdueSection(&b, fmt.Sprintf("Overdue (%d)", len(r.Overdue)), r.Overdue)
	return strings.TrimRight(b.String(), "\n")
}

func formatOverdue(r Report) string {
	if len(r.Overdue) == 0 {
		return "⚠️ **Overdue Tasks Report**\n\nNo overdue tasks. 🎉"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ **Overdue Tasks Report** (%d total)\n", len(r.Overdue))
	writeOverdueSection(&b, "🔴 Critical - more than 7 days", r.Critical)
	writeOverdueSection(&b, "🟠 Urgent - 2 to 7 days", r.Urgent)
	writeOverdueSection(&b, "🟡 Recent - under 2 days", r.Recent)
	return strings.TrimRight(b.String(), "\n")
}

func formatCompleted(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ **Completed Tasks Report** (last 7 days)\n\n")
	fmt.Fprintf(&b, "**Completed in period:** %d\n", len(r.CompletedInWindow))
	if len(r.CompletedInWindow) == 0 {
		b.WriteString("\nNothing was completed in this period.")
		return b.String()
	}
	b.WriteString("\n")
	for i, t := range r.CompletedInWindow {
		if i == sectionCap {
			fmt.Fprintf(&b, "... and %d more\n", len(r.CompletedInWindow)-sectionCap)
			break
		}
		line := fmt.Sprintf("- %s", t.Name)
		if !t.CompletedAt.IsZero() {
			line += fmt.Sprintf(" (%s)", t.CompletedAt.Format("2006-01-02"))
		}
		if len(t.Assignees) > 0 {
			line += " - " + strings.Join(t.Assignees, ", ")
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAnalytics(r Report) string {
	var b strings.Builder
	b.WriteString("📈 **Team Analytics Report**\n\n")
	fmt.Fprintf(&b, "**Total tasks:** %d\n", r.Total)
	fmt.Fprintf(&b, "**Completed:** %d | **Active:** %d\n", r.Completed, r.Active)
	fmt.Fprintf(&b, "**Completion rate:** %.0f%%\n", r.CompletionRate*100)

	if len(r.StatusCounts) > 0 {
		b.WriteString("\n**By status:**\n")
		for _, s := range r.StatusCounts {
			fmt.Fprintf(&b, "- %s: %d\n", s.Name, s.Count)
		}
	}
	if len(r.PriorityCounts) > 0 {
		b.WriteString("\n**By priority:**\n")
		for _, p := range r.PriorityCounts {
			fmt.Fprintf(&b, "- %s: %d\n", p.Name, p.Count)
		}
	}
	if len(r.AssigneeStats) > 0 {
		b.WriteString("\n**By assignee:**\n")
		for _, a := range r.AssigneeStats {
			fmt.Fprintf(&b, "- %s: %d/%d completed\n", a.Name, a.Completed, a.Total)
		}
	}
	if len(r.Members) > 0 {
		fmt.Fprintf(&b, "\n**Team members:** %s\n", strings.Join(r.Members, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSummary(r Report) string {
	var b strings.Builder
	b.WriteString("📋 **Task Summary Report**\n\n")
	fmt.Fprintf(&b, "**Total tasks:** %d\n", r.Total)
	fmt.Fprintf(&b, "**Completed:** %d | **Active:** %d\n", r.Completed, r.Active)
	fmt.Fprintf(&b, "**Overdue:** %d\n", len(r.Overdue))

	writeOverdueSection(&b, fmt.Sprintf("Overdue (%d)", len(r.Overdue)), r.Overdue)

	if len(r.Upcoming) > 0 {
		fmt.Fprintf(&b, "\n**Due in the next 7 days (%d):**\n", len(r.Upcoming))
		for i, d := range r.Upcoming {
			if i == sectionCap {
				fmt.Fprintf(&b, "... and %d more\n", len(r.Upcoming)-sectionCap)
				break
			}
			fmt.Fprintf(&b, "- %s (due %s)\n", d.Task.Name, d.Task.DueDate.Format("2006-01-02"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeTaskSection(b *strings.Builder, header string, tasks []clickup.Task) {
	if len(tasks) == 0 {
		return
	}
	fmt.Fprintf(b, "\n**%s:**\n", header)
	for i, t := range tasks {
		if i == sectionCap {
			fmt.Fprintf(b, "... and %d more\n", len(tasks)-sectionCap)
			return
		}
		fmt.Fprintf(b, "- %s\n", t.Name)
	}
}

func writeOverdueSection(b *strings.Builder, header string, overdue []OverdueTask) {
	if len(overdue) == 0 {
		return
	}
	fmt.Fprintf(b, "\n**%s:**\n", header)
	for i, o := range overdue {
		if i == sectionCap {
			fmt.Fprintf(b, "... and %d more\n", len(overdue)-sectionCap)
			return
		}
		plural := "days"
		if o.Days == 1 {
			plural = "day"
		}
		fmt.Fprintf(b, "- %s (%d %s overdue)\n", o.Task.Name, o.Days, plural)
	}
}
