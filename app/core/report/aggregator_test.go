package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"taskpilot/app/core/clickup"
)

type fakeFetcher struct {
	tasks   []clickup.Task
	members []string
	err     error
}

func (f *fakeFetcher) TeamTasks(context.Context, string, bool) ([]clickup.Task, error) {
	return f.tasks, f.err
}

func (f *fakeFetcher) TeamMembers(context.Context, string) ([]string, error) {
	return f.members, f.err
}

func newTestGenerator(fetch *fakeFetcher, now time.Time) *Generator {
	g := NewGenerator(fetch)
	g.now = func() time.Time { return now }
	return g
}

func TestOverdueBuckets(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	day := func(d string) time.Time {
		parsed, err := time.Parse("2006-01-02T15:04:05Z07:00", d)
		if err != nil {
			t.Fatalf("parse %s: %v", d, err)
		}
		return parsed
	}

	fetch := &fakeFetcher{tasks: []clickup.Task{
		// 8+ days late.
		{ID: "c", Name: "critical", Status: "open", DueDate: day("2024-01-01T23:59:59Z")},
		// 3 days late.
		{ID: "u", Name: "urgent", Status: "open", DueDate: day("2024-01-07T00:00:00Z")},
		// 12 hours late.
		{ID: "r", Name: "recent", Status: "open", DueDate: day("2024-01-09T12:00:00Z")},
		// Done tasks are never overdue.
		{ID: "d", Name: "finished", Status: "done", DueDate: day("2024-01-01T00:00:00Z")},
		// No due date, never overdue.
		{ID: "n", Name: "undated", Status: "open"},
	}}

	r, err := newTestGenerator(fetch, now).Report(context.Background(), KindOverdue, "t1")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(r.Overdue) != 3 {
		t.Fatalf("overdue count: %d", len(r.Overdue))
	}
	if len(r.Critical) != 1 || r.Critical[0].Task.ID != "c" {
		t.Fatalf("critical: %+v", r.Critical)
	}
	if len(r.Urgent) != 1 || r.Urgent[0].Task.ID != "u" {
		t.Fatalf("urgent: %+v", r.Urgent)
	}
	if len(r.Recent) != 1 || r.Recent[0].Task.ID != "r" {
		t.Fatalf("recent: %+v", r.Recent)
	}
}

func TestOverdueBucketBoundaries(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	// Exactly 7 days late lands in Urgent, not Critical; exactly 2
	// days lands in Urgent, not Recent.
	fetch := &fakeFetcher{tasks: []clickup.Task{
		{ID: "seven", Status: "open", DueDate: now.AddDate(0, 0, -7)},
		{ID: "two", Status: "open", DueDate: now.AddDate(0, 0, -2)},
	}}
	r, err := newTestGenerator(fetch, now).Report(context.Background(), KindOverdue, "t1")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(r.Urgent) != 2 {
		t.Fatalf("boundary tasks must both be urgent: critical=%v urgent=%v recent=%v",
			r.Critical, r.Urgent, r.Recent)
	}
}

func TestWeeklyCompletionRate(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	inWeek := now.Add(-24 * time.Hour)

	var tasks []clickup.Task
	// 10 completed this week.
	for i := 0; i < 10; i++ {
		tasks = append(tasks, clickup.Task{Status: "done", CompletedAt: inWeek})
	}
	// 5 open tasks due within the window.
	for i := 0; i < 5; i++ {
		tasks = append(tasks, clickup.Task{Status: "open", DueDate: inWeek})
	}
	// Open without a due date in the window; excluded from the rate.
	tasks = append(tasks, clickup.Task{Status: "open"})

	r, err := newTestGenerator(&fakeFetcher{tasks: tasks}, now).Report(context.Background(), KindWeekly, "t1")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	want := 10.0 / 15.0
	if diff := r.CompletionRate - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("completion rate: got %v, want %v", r.CompletionRate, want)
	}
}

func TestWeeklyTopPerformerTieBreak(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	early := now.Add(-48 * time.Hour)
	late := now.Add(-1 * time.Hour)

	fetch := &fakeFetcher{tasks: []clickup.Task{
		{Status: "done", CompletedAt: early, Assignees: []string{"ann"}},
		{Status: "done", CompletedAt: late, Assignees: []string{"bob"}},
		// carl matches bob exactly; the name breaks the tie.
		{Status: "done", CompletedAt: late, Assignees: []string{"carl"}},
	}}
	r, err := newTestGenerator(fetch, now).Report(context.Background(), KindWeekly, "t1")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(r.TopPerformers) != 3 {
		t.Fatalf("performers: %+v", r.TopPerformers)
	}
	// All have one completion; ann's happened earliest, then bob
	// before carl alphabetically.
	got := []string{r.TopPerformers[0].Name, r.TopPerformers[1].Name, r.TopPerformers[2].Name}
	want := []string{"ann", "bob", "carl"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ranking: got %v, want %v", got, want)
		}
	}
}

func TestDailyWindows(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)
	today := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)

	fetch := &fakeFetcher{tasks: []clickup.Task{
		{ID: "a", Name: "made today", Status: "open", CreatedAt: today},
		{ID: "b", Name: "done today", Status: "done", CreatedAt: yesterday, CompletedAt: today},
		{ID: "c", Name: "old", Status: "open", CreatedAt: yesterday},
	}}
	r, err := newTestGenerator(fetch, now).Report(context.Background(), KindDaily, "t1")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(r.CreatedInWindow) != 1 || r.CreatedInWindow[0].ID != "a" {
		t.Fatalf("created today: %+v", r.CreatedInWindow)
	}
	if len(r.CompletedInWindow) != 1 || r.CompletedInWindow[0].ID != "b" {
		t.Fatalf("completed today: %+v", r.CompletedInWindow)
	}
	if r.Total != 3 || r.Completed != 1 || r.Active != 2 {
		t.Fatalf("counts: total=%d completed=%d active=%d", r.Total, r.Completed, r.Active)
	}
}

func TestAnalyticsDistributions(t *testing.T) {
	fetch := &fakeFetcher{
		tasks: []clickup.Task{
			{Status: "done", Priority: "high", Assignees: []string{"ann"}},
			{Status: "open", Priority: "high", Assignees: []string{"ann", "bob"}},
			{Status: "open"},
		},
		members: []string{"ann", "bob", "carl"},
	}
	r, err := newTestGenerator(fetch, time.Now()).Report(context.Background(), KindAnalytics, "t1")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if r.CompletionRate < 0.33 || r.CompletionRate > 0.34 {
		t.Fatalf("rate: %v", r.CompletionRate)
	}
	if r.StatusCounts[0].Name != "open" || r.StatusCounts[0].Count != 2 {
		t.Fatalf("status counts: %+v", r.StatusCounts)
	}
	if r.PriorityCounts[0].Name != "high" || r.PriorityCounts[0].Count != 2 {
		t.Fatalf("priority counts: %+v", r.PriorityCounts)
	}
	if len(r.AssigneeStats) != 3 { // ann, bob, Unassigned
		t.Fatalf("assignee stats: %+v", r.AssigneeStats)
	}
	if r.AssigneeStats[0].Name != "ann" || r.AssigneeStats[0].Completed != 1 || r.AssigneeStats[0].Total != 2 {
		t.Fatalf("top assignee: %+v", r.AssigneeStats[0])
	}
	if len(r.Members) != 3 {
		t.Fatalf("members: %v", r.Members)
	}
}

func TestSummaryUpcomingWindow(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	fetch := &fakeFetcher{tasks: []clickup.Task{
		{ID: "soon", Name: "soon", Status: "open", DueDate: now.AddDate(0, 0, 3)},
		{ID: "far", Name: "far", Status: "open", DueDate: now.AddDate(0, 0, 12)},
		{ID: "late", Name: "late", Status: "open", DueDate: now.AddDate(0, 0, -1)},
	}}
	r, err := newTestGenerator(fetch, now).Report(context.Background(), KindSummary, "t1")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(r.Upcoming) != 1 || r.Upcoming[0].Task.ID != "soon" {
		t.Fatalf("upcoming: %+v", r.Upcoming)
	}
	if len(r.Overdue) != 1 || r.Overdue[0].Task.ID != "late" {
		t.Fatalf("overdue: %+v", r.Overdue)
	}
}

func TestReportPropagatesFetchError(t *testing.T) {
	wantErr := errors.New("boom")
	_, err := newTestGenerator(&fakeFetcher{err: wantErr}, time.Now()).Report(context.Background(), KindDaily, "t1")
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v", err)
	}
}

func TestFormatHeaders(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	fetch := &fakeFetcher{tasks: []clickup.Task{{Name: "x", Status: "open"}}}
	g := newTestGenerator(fetch, now)

	cases := []struct {
		kind Kind
		want string
	}{
		{KindDaily, "📊 **Daily Report - 2024-03-15**"},
		{KindWeekly, "📅 **Weekly Report"},
		{KindOverdue, "⚠️ **Overdue Tasks Report**"},
		{KindCompleted, "✅ **Completed Tasks Report**"},
		{KindAnalytics, "📈 **Team Analytics Report**"},
		{KindSummary, "📋 **Task Summary Report**"},
	}
	for _, tc := range cases {
		text, err := g.Build(context.Background(), tc.kind, "t1")
		if err != nil {
			t.Fatalf("%s: %v", tc.kind, err)
		}
		if !strings.HasPrefix(text, tc.want) {
			t.Fatalf("%s: got header %q, want prefix %q", tc.kind, text, tc.want)
		}
	}
}

func TestFormatOverdueSectionsAndCap(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	var tasks []clickup.Task
	for i := 0; i < sectionCap+4; i++ {
		tasks = append(tasks, clickup.Task{
			Name: "late", Status: "open", DueDate: now.AddDate(0, 0, -10),
		})
	}
	g := newTestGenerator(&fakeFetcher{tasks: tasks}, now)
	text, err := g.Build(context.Background(), KindOverdue, "t1")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(text, "🔴 Critical") {
		t.Fatalf("missing critical section: %q", text)
	}
	if !strings.Contains(text, "... and 4 more") {
		t.Fatalf("missing cap marker: %q", text)
	}
}
