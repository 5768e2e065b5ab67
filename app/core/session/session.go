package session

import (
	"time"

	"taskpilot/app/core/clickup"
)

type FlowKind string

const (
	FlowNone   FlowKind = ""
	FlowCreate FlowKind = "create"
	FlowView   FlowKind = "view"
	FlowList   FlowKind = "list"
	FlowSearch FlowKind = "search"
	FlowUpdate FlowKind = "update"
	FlowDelete FlowKind = "delete"
	FlowReport FlowKind = "report"
)

// Key identifies one conversation: one user in one chat room.
type Key struct {
	UserID string
	ChatID string
}

// Path is the hierarchy selection accumulated so far. Folderless marks
// the synthetic "use space directly" choice.
type Path struct {
	Team       clickup.Item
	Space      clickup.Item
	Folder     clickup.Item
	Folderless bool
	List       clickup.Item
}

// Frame is one rendered prompt. The stack of frames is what makes
// "back" restore the exact prior prompt: popping a frame re-renders
// its text and restores the step, option list and hierarchy path that
// were live when it was shown.
type Frame struct {
	Step    string
	Prompt  string
	Options []clickup.Item
	Tasks   []clickup.Task
	Path    Path
}

// Session is the live state of one in-progress flow.
type Session struct {
	Key  Key
	Flow FlowKind
	Step string

	// Accumulated field values.
	Name        string
	Description string
	DueDate     string
	TaskID      string
	TaskName    string
	Field       string
	NewValue    string
	Query       string
	ReportKind  string

	Path    Path
	Options []clickup.Item
	Tasks   []clickup.Task
	Stack   []Frame

	UpdatedAt time.Time
}

func New(key Key, flow FlowKind) *Session {
	return &Session{Key: key, Flow: flow}
}

// PushFrame records a newly rendered prompt as the current top frame.
func (s *Session) PushFrame(step, prompt string, options []clickup.Item, tasks []clickup.Task) {
	s.Step = step
	s.Options = options
	s.Tasks = tasks
	s.Stack = append(s.Stack, Frame{
		Step:    step,
		Prompt:  prompt,
		Options: options,
		Tasks:   tasks,
		Path:    s.Path,
	})
}

// Top returns the current frame. Valid only while the stack is
// non-empty, which holds for every session that has rendered a prompt.
func (s *Session) Top() Frame {
	return s.Stack[len(s.Stack)-1]
}

// PopFrame discards the current frame and restores the previous one.
// Returns false when there is no previous frame to go back to.
func (s *Session) PopFrame() bool {
	if len(s.Stack) <= 1 {
		return false
	}
	s.Stack = s.Stack[:len(s.Stack)-1]
	top := s.Top()
	s.Step = top.Step
	s.Options = top.Options
	s.Tasks = top.Tasks
	s.Path = top.Path
	return true
}
