package clickup

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Task is an ephemeral, read-mostly copy of a ClickUp task. The
// external service stays the source of truth.
type Task struct {
	ID          string
	Name        string
	Description string
	Status      string
	Priority    string
	DueDate     time.Time // zero when unset
	Assignees   []string
	Tags        []string
	ListID      string
	URL         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time // zero while the task is open
}

// Done reports whether the task's status counts as finished.
func (t Task) Done() bool {
	switch strings.ToLower(strings.TrimSpace(t.Status)) {
	case "done", "closed", "complete", "completed":
		return true
	}
	return false
}

// TaskDraft carries the fields accumulated by the create flow.
// DueDate is a YYYY-MM-DD day; it is committed as 23:59:59 UTC.
type TaskDraft struct {
	Name        string
	Description string
	DueDate     string
}

// Task fetches one task by id.
func (c *Client) Task(ctx context.Context, taskID string) (Task, error) {
	res, err := c.get(ctx, fmt.Sprintf("/task/%s", url.PathEscape(taskID)), nil)
	if err != nil {
		return Task{}, err
	}
	return decodeTask(res), nil
}

// ListTasks fetches every task of a list, walking pagination so the
// caller always sees the complete ordered set.
func (c *Client) ListTasks(ctx context.Context, listID string, includeClosed bool) ([]Task, error) {
	return c.pagedTasks(ctx, fmt.Sprintf("/list/%s/task", url.PathEscape(listID)), includeClosed)
}

// TeamTasks fetches every task visible in a team, across all pages.
func (c *Client) TeamTasks(ctx context.Context, teamID string, includeClosed bool) ([]Task, error) {
	return c.pagedTasks(ctx, fmt.Sprintf("/team/%s/task", url.PathEscape(teamID)), includeClosed)
}

func (c *Client) pagedTasks(ctx context.Context, path string, includeClosed bool) ([]Task, error) {
	var tasks []Task
	for page := 0; ; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		if includeClosed {
			query.Set("include_closed", "true")
		}
		res, err := c.get(ctx, path, query)
		if err != nil {
			return nil, err
		}
		batch := res.Get("tasks").Array()
		for _, raw := range batch {
			tasks = append(tasks, decodeTask(raw))
		}
		if res.Get("last_page").Bool() || len(batch) < pageSize {
			return tasks, nil
		}
	}
}

// SearchTasks matches tasks across every accessible team by substring
// on name and description, case-insensitively.
func (c *Client) SearchTasks(ctx context.Context, query string) ([]Task, error) {
	teams, err := c.Teams(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	var matches []Task
	for _, team := range teams {
		tasks, err := c.TeamTasks(ctx, team.ID, true)
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			if strings.Contains(strings.ToLower(t.Name), needle) ||
				strings.Contains(strings.ToLower(t.Description), needle) {
				matches = append(matches, t)
			}
		}
	}
	return matches, nil
}

// CreateTask creates a task in the given list and returns the created
// record. This is the create flow's single commit call.
func (c *Client) CreateTask(ctx context.Context, listID string, draft TaskDraft) (Task, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		name = "Untitled task"
	}
	payload, _ := sjson.Set("", "name", name)
	if strings.TrimSpace(draft.Description) != "" {
		payload, _ = sjson.Set(payload, "description", draft.Description)
	}
	if strings.TrimSpace(draft.DueDate) != "" {
		millis, err := DueDateMillis(draft.DueDate)
		if err != nil {
			return Task{}, err
		}
		payload, _ = sjson.Set(payload, "due_date", millis)
		payload, _ = sjson.Set(payload, "due_date_time", true)
	}

	res, err := c.do(ctx, "POST", fmt.Sprintf("/list/%s/task", url.PathEscape(listID)), nil, []byte(payload))
	if err != nil {
		return Task{}, err
	}
	return decodeTask(res), nil
}

// UpdateTask changes a single field of a task. Supported fields are
// name, description, due_date (YYYY-MM-DD) and status.
func (c *Client) UpdateTask(ctx context.Context, taskID, field, value string) error {
	var payload string
	switch field {
	case "name", "description", "status":
		payload, _ = sjson.Set("", field, value)
	case "due_date":
		millis, err := DueDateMillis(value)
		if err != nil {
			return err
		}
		payload, _ = sjson.Set("", "due_date", millis)
		payload, _ = sjson.Set(payload, "due_date_time", true)
	default:
		return fmt.Errorf("unsupported update field: %s", field)
	}

	_, err := c.do(ctx, "PUT", fmt.Sprintf("/task/%s", url.PathEscape(taskID)), nil, []byte(payload))
	return err
}

// DeleteTask permanently removes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	_, err := c.do(ctx, "DELETE", fmt.Sprintf("/task/%s", url.PathEscape(taskID)), nil, nil)
	return err
}

func decodeTask(raw gjson.Result) Task {
	t := Task{
		ID:          raw.Get("id").String(),
		Name:        raw.Get("name").String(),
		Description: raw.Get("description").String(),
		Status:      raw.Get("status.status").String(),
		Priority:    raw.Get("priority.priority").String(),
		DueDate:     parseMillis(raw.Get("due_date")),
		ListID:      raw.Get("list.id").String(),
		URL:         raw.Get("url").String(),
		CreatedAt:   parseMillis(raw.Get("date_created")),
		UpdatedAt:   parseMillis(raw.Get("date_updated")),
		CompletedAt: parseMillis(raw.Get("date_closed")),
	}
	raw.Get("assignees").ForEach(func(_, a gjson.Result) bool {
		if name := a.Get("username").String(); name != "" {
			t.Assignees = append(t.Assignees, name)
		}
		return true
	})
	raw.Get("tags").ForEach(func(_, tag gjson.Result) bool {
		if name := tag.Get("name").String(); name != "" {
			t.Tags = append(t.Tags, name)
		}
		return true
	})
	if t.CompletedAt.IsZero() && t.Done() {
		t.CompletedAt = t.UpdatedAt
	}
	return t
}
