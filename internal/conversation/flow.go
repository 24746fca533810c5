// Package conversation implements the step-by-step task creation dialogue.
//
// A conversation walks through title, description and due date and commits a
// task at the end. State is kept per user, expires after a period of
// inactivity and is independent of the chat transport rendering the replies.
package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"task-planner/internal/model"
	"task-planner/internal/service"
)

// Step is the field a conversation is waiting for.
type Step int

const (
	StepNone Step = iota
	StepTitle
	StepDescription
	StepDueDate
)

func (s Step) String() string {
	switch s {
	case StepTitle:
		return "awaiting_title"
	case StepDescription:
		return "awaiting_description"
	case StepDueDate:
		return "awaiting_due_date"
	default:
		return "none"
	}
}

// Keyboard labels shared with the chat front-end.
const (
	CancelLabel = "❌ Отмена"
	SkipLabel   = "⏩ Пропустить"
)

// ReplyKind tells the front-end what to show next.
type ReplyKind int

const (
	AskTitle ReplyKind = iota
	AskDescription
	AskDueDate
	InvalidDueDate
	Cancelled
	Created
)

// Reply is the outcome of one step.
type Reply struct {
	Kind ReplyKind
	Task *model.Task
}

// Creator commits the collected fields.
type Creator interface {
	Create(ctx context.Context, input service.TaskInput) (*model.Task, error)
}

type state struct {
	step        Step
	title       string
	description string
	touched     time.Time
}

// Flow holds in-progress conversations keyed by user id.
type Flow struct {
	creator Creator
	loc     *time.Location
	ttl     time.Duration
	now     func() time.Time

	mu     sync.Mutex
	states map[int64]*state
}

// New creates a Flow. ttl <= 0 disables expiry.
func New(creator Creator, loc *time.Location, ttl time.Duration) *Flow {
	if loc == nil {
		loc = time.Local
	}
	return &Flow{
		creator: creator,
		loc:     loc,
		ttl:     ttl,
		now:     time.Now,
		states:  make(map[int64]*state),
	}
}

// Start begins a new conversation, discarding any previous one of the user.
func (f *Flow) Start(user int64) Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[user] = &state{step: StepTitle, touched: f.now()}
	return Reply{Kind: AskTitle}
}

// Step returns where the user's conversation currently is.
func (f *Flow) Step(user int64) Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.lookup(user)
	if st == nil {
		return StepNone
	}
	return st.step
}

// Active reports whether the user has a live conversation.
func (f *Flow) Active(user int64) bool {
	return f.Step(user) != StepNone
}

// Cancel drops the user's conversation and reports whether there was one.
func (f *Flow) Cancel(user int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.states[user]
	delete(f.states, user)
	return ok
}

// Handle feeds one inbound message into the user's conversation.
// ok is false when the user has no live conversation.
func (f *Flow) Handle(ctx context.Context, user int64, text string) (reply Reply, ok bool, err error) {
	f.mu.Lock()
	st := f.lookup(user)
	if st == nil {
		f.mu.Unlock()
		return Reply{}, false, nil
	}

	raw := text
	text = strings.TrimSpace(text)
	if IsCancel(text) {
		delete(f.states, user)
		f.mu.Unlock()
		return Reply{Kind: Cancelled}, true, nil
	}
	st.touched = f.now()

	switch st.step {
	case StepTitle:
		if text == "" {
			f.mu.Unlock()
			return Reply{Kind: AskTitle}, true, nil
		}
		st.title = raw
		st.step = StepDescription
		f.mu.Unlock()
		return Reply{Kind: AskDescription}, true, nil

	case StepDescription:
		if !IsSkip(text) {
			st.description = raw
		}
		st.step = StepDueDate
		f.mu.Unlock()
		return Reply{Kind: AskDueDate}, true, nil

	case StepDueDate:
		var due *time.Time
		if !IsSkip(text) {
			parsed, perr := time.ParseInLocation(service.ChatDateLayout, text, f.loc)
			if perr != nil {
				f.mu.Unlock()
				return Reply{Kind: InvalidDueDate}, true, nil
			}
			due = &parsed
		}
		input := service.TaskInput{Title: st.title, Description: st.description, DueDate: due}
		f.mu.Unlock()

		// Committing outside the lock; state stays on failure so the user can resend the date.
		task, cerr := f.creator.Create(ctx, input)
		if cerr != nil {
			return Reply{}, true, cerr
		}

		f.mu.Lock()
		if f.states[user] == st {
			delete(f.states, user)
		}
		f.mu.Unlock()
		return Reply{Kind: Created, Task: task}, true, nil

	default:
		delete(f.states, user)
		f.mu.Unlock()
		return Reply{Kind: Cancelled}, true, nil
	}
}

// Expire drops every conversation idle for longer than the ttl and returns how many were removed.
func (f *Flow) Expire() int {
	if f.ttl <= 0 {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	removed := 0
	for user, st := range f.states {
		if now.Sub(st.touched) > f.ttl {
			delete(f.states, user)
			removed++
		}
	}
	return removed
}

// lookup returns the live state, lazily dropping an expired one. Caller holds mu.
func (f *Flow) lookup(user int64) *state {
	st, ok := f.states[user]
	if !ok {
		return nil
	}
	if f.ttl > 0 && f.now().Sub(st.touched) > f.ttl {
		delete(f.states, user)
		return nil
	}
	return st
}

// IsCancel reports whether text aborts the conversation.
func IsCancel(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(CancelLabel) || value == "отмена" || value == "cancel" || value == "/cancel"
}

// IsSkip reports whether text skips an optional field.
func IsSkip(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(SkipLabel) || value == "пропустить" || value == "skip" || value == "-"
}
