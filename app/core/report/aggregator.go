package report

import (
	"context"
	"sort"
	"time"

	"taskpilot/app/core/clickup"
)

type Kind string

const (
	KindDaily     Kind = "daily"
	KindWeekly    Kind = "weekly"
	KindOverdue   Kind = "overdue"
	KindCompleted Kind = "completed"
	KindAnalytics Kind = "analytics"
	KindSummary   Kind = "summary"
)

// Overdue bucket thresholds, in days past due. A task is overdue when
// its due date is before now and it is not done. Boundaries: Critical
// strictly more than 7 days, Urgent 2 up to and including 7 days,
// Recent under 2 days.
const (
	criticalAfterDays = 7.0
	urgentAfterDays   = 2.0
)

// weeklyWindow is the trailing span the weekly report covers.
const weeklyWindow = 7 * 24 * time.Hour

// upcomingWindow is how far ahead the summary looks for deadlines.
const upcomingWindow = 7 * 24 * time.Hour

// Fetcher is the slice of the ClickUp client the aggregator needs.
type Fetcher interface {
	TeamTasks(ctx context.Context, teamID string, includeClosed bool) ([]clickup.Task, error)
	TeamMembers(ctx context.Context, teamID string) ([]string, error)
}

// OverdueTask pairs a task with how many whole days it is past due.
type OverdueTask struct {
	Task clickup.Task
	Days int
}

// DueTask pairs a task with how many whole days remain until its due
// date.
type DueTask struct {
	Task clickup.Task
	Days int
}

// StatCount is one bucket of a distribution, ordered for display.
type StatCount struct {
	Name  string
	Count int
}

// AssigneeStat tallies one assignee's totals for analytics.
type AssigneeStat struct {
	Name      string
	Total     int
	Completed int
}

// Performer is one entry of the weekly top-performer ranking.
type Performer struct {
	Name      string
	Completed int
	// completedAtSum breaks count ties: the assignee whose completions
	// happened earlier in aggregate ranks first.
	completedAtSum int64
}

// Report is a computed, never-persisted value. All fields derive
// deterministically from the fetched task set and the evaluation
// instant.
type Report struct {
	Kind  Kind
	Start time.Time
	End   time.Time

	Total     int
	Completed int
	Active    int

	CreatedInWindow   []clickup.Task
	CompletedInWindow []clickup.Task

	Overdue  []OverdueTask
	Critical []OverdueTask
	Urgent   []OverdueTask
	Recent   []OverdueTask

	// CompletionRate is completed / (completed + still open and due in
	// window) for weekly, completed / total for analytics.
	CompletionRate float64
	TopPerformers  []Performer

	StatusCounts   []StatCount
	PriorityCounts []StatCount
	AssigneeStats  []AssigneeStat
	Members        []string

	Upcoming []DueTask
}

// Generator fetches task sets and computes reports. It holds no state
// between requests; every report re-fetches, because task state
// changes externally.
type Generator struct {
	fetch Fetcher
	now   func() time.Time
}

func NewGenerator(fetch Fetcher) *Generator {
	return &Generator{fetch: fetch, now: time.Now}
}

// Report computes the requested report over one team's tasks.
func (g *Generator) Report(ctx context.Context, kind Kind, teamID string) (Report, error) {
	tasks, err := g.fetch.TeamTasks(ctx, teamID, true)
	if err != nil {
		return Report{}, err
	}
	now := g.now().UTC()

	switch kind {
	case KindDaily:
		return buildDaily(tasks, now), nil
	case KindWeekly:
		return buildWeekly(tasks, now), nil
	case KindOverdue:
		return buildOverdue(tasks, now), nil
	case KindCompleted:
		return buildCompleted(tasks, now), nil
	case KindAnalytics:
		r := buildAnalytics(tasks)
		if members, memErr := g.fetch.TeamMembers(ctx, teamID); memErr == nil {
			r.Members = members
		}
		return r, nil
	default:
		return buildSummary(tasks, now), nil
	}
}

// Build computes and formats a report in one step.
func (g *Generator) Build(ctx context.Context, kind Kind, teamID string) (string, error) {
	r, err := g.Report(ctx, kind, teamID)
	if err != nil {
		return "", err
	}
	return Format(r), nil
}

func buildDaily(tasks []clickup.Task, now time.Time) Report {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	r := Report{Kind: KindDaily, Start: dayStart, End: now, Total: len(tasks)}

	for _, t := range tasks {
		if inWindow(t.CreatedAt, dayStart, now) {
			r.CreatedInWindow = append(r.CreatedInWindow, t)
		}
		if t.Done() && inWindow(t.CompletedAt, dayStart, now) {
			r.CompletedInWindow = append(r.CompletedInWindow, t)
		}
		if t.Done() {
			r.Completed++
		}
	}
	r.Active = r.Total - r.Completed
	r.Overdue = collectOverdue(tasks, now)
	return r
}

func buildWeekly(tasks []clickup.Task, now time.Time) Report {
	start := now.Add(-weeklyWindow)
	r := Report{Kind: KindWeekly, Start: start, End: now, Total: len(tasks)}

	openDueInWindow := 0
	for _, t := range tasks {
		if inWindow(t.CreatedAt, start, now) {
			r.CreatedInWindow = append(r.CreatedInWindow, t)
		}
		if t.Done() {
			r.Completed++
			if inWindow(t.CompletedAt, start, now) {
				r.CompletedInWindow = append(r.CompletedInWindow, t)
			}
			continue
		}
		if inWindow(t.DueDate, start, now) {
			openDueInWindow++
		}
	}
	r.Active = r.Total - r.Completed
	r.Overdue = collectOverdue(tasks, now)

	if denom := len(r.CompletedInWindow) + openDueInWindow; denom > 0 {
		r.CompletionRate = float64(len(r.CompletedInWindow)) / float64(denom)
	}
	r.TopPerformers = rankPerformers(r.CompletedInWindow)
	return r
}

func buildOverdue(tasks []clickup.Task, now time.Time) Report {
	r := Report{Kind: KindOverdue, End: now, Total: len(tasks)}
	r.Overdue = collectOverdue(tasks, now)
	for _, o := range r.Overdue {
		age := now.Sub(o.Task.DueDate).Hours() / 24
		switch {
		case age > criticalAfterDays:
			r.Critical = append(r.Critical, o)
		case age >= urgentAfterDays:
			r.Urgent = append(r.Urgent, o)
		default:
			r.Recent = append(r.Recent, o)
		}
	}
	return r
}

func buildCompleted(tasks []clickup.Task, now time.Time) Report {
	start := now.Add(-weeklyWindow)
	r := Report{Kind: KindCompleted, Start: start, End: now, Total: len(tasks)}
	for _, t := range tasks {
		if t.Done() {
			r.Completed++
			if inWindow(t.CompletedAt, start, now) {
				r.CompletedInWindow = append(r.CompletedInWindow, t)
			}
		}
	}
	r.Active = r.Total - r.Completed
	// Most recent completions first.
	sort.SliceStable(r.CompletedInWindow, func(i, j int) bool {
		return r.CompletedInWindow[i].CompletedAt.After(r.CompletedInWindow[j].CompletedAt)
	})
	return r
}

func buildAnalytics(tasks []clickup.Task) Report {
	r := Report{Kind: KindAnalytics, Total: len(tasks)}

	statuses := map[string]int{}
	priorities := map[string]int{}
	assignees := map[string]*AssigneeStat{}

	for _, t := range tasks {
		done := t.Done()
		if done {
			r.Completed++
		}

		status := t.Status
		if status == "" {
			status = "unknown"
		}
		statuses[status]++

		priority := t.Priority
		if priority == "" {
			priority = "normal"
		}
		priorities[priority]++

		names := t.Assignees
		if len(names) == 0 {
			names = []string{"Unassigned"}
		}
		for _, name := range names {
			stat, ok := assignees[name]
			if !ok {
				stat = &AssigneeStat{Name: name}
				assignees[name] = stat
			}
			stat.Total++
			if done {
				stat.Completed++
			}
		}
	}

	r.Active = r.Total - r.Completed
	if r.Total > 0 {
		r.CompletionRate = float64(r.Completed) / float64(r.Total)
	}
	r.StatusCounts = sortCounts(statuses)
	r.PriorityCounts = sortCounts(priorities)

	for _, stat := range assignees {
		r.AssigneeStats = append(r.AssigneeStats, *stat)
	}
	sort.Slice(r.AssigneeStats, func(i, j int) bool {
		a, b := r.AssigneeStats[i], r.AssigneeStats[j]
		if a.Completed != b.Completed {
			return a.Completed > b.Completed
		}
		return a.Name < b.Name
	})
	return r
}

func buildSummary(tasks []clickup.Task, now time.Time) Report {
	r := Report{Kind: KindSummary, End: now, Total: len(tasks)}
	for _, t := range tasks {
		if t.Done() {
			r.Completed++
			continue
		}
		if t.DueDate.IsZero() {
			continue
		}
		if t.DueDate.Before(now) {
			r.Overdue = append(r.Overdue, OverdueTask{Task: t, Days: wholeDays(now.Sub(t.DueDate))})
			continue
		}
		if t.DueDate.Sub(now) <= upcomingWindow {
			r.Upcoming = append(r.Upcoming, DueTask{Task: t, Days: wholeDays(t.DueDate.Sub(now))})
		}
	}
	r.Active = r.Total - r.Completed
	sort.SliceStable(r.Upcoming, func(i, j int) bool { return r.Upcoming[i].Days < r.Upcoming[j].Days })
	sort.SliceStable(r.Overdue, func(i, j int) bool { return r.Overdue[i].Days > r.Overdue[j].Days })
	return r
}

func collectOverdue(tasks []clickup.Task, now time.Time) []OverdueTask {
	var overdue []OverdueTask
	for _, t := range tasks {
		if t.Done() || t.DueDate.IsZero() || !t.DueDate.Before(now) {
			continue
		}
		overdue = append(overdue, OverdueTask{Task: t, Days: wholeDays(now.Sub(t.DueDate))})
	}
	sort.SliceStable(overdue, func(i, j int) bool { return overdue[i].Days > overdue[j].Days })
	return overdue
}

func rankPerformers(completed []clickup.Task) []Performer {
	byName := map[string]*Performer{}
	for _, t := range completed {
		for _, name := range t.Assignees {
			p, ok := byName[name]
			if !ok {
				p = &Performer{Name: name}
				byName[name] = p
			}
			p.Completed++
			p.completedAtSum += t.CompletedAt.Unix()
		}
	}
	performers := make([]Performer, 0, len(byName))
	for _, p := range byName {
		performers = append(performers, *p)
	}
	sort.Slice(performers, func(i, j int) bool {
		a, b := performers[i], performers[j]
		if a.Completed != b.Completed {
			return a.Completed > b.Completed
		}
		if a.completedAtSum != b.completedAtSum {
			return a.completedAtSum < b.completedAtSum
		}
		return a.Name < b.Name
	})
	return performers
}

func sortCounts(counts map[string]int) []StatCount {
	out := make([]StatCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, StatCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func inWindow(ts, start, end time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return !ts.Before(start) && !ts.After(end)
}

func wholeDays(d time.Duration) int {
	return int(d.Hours() / 24)
}
