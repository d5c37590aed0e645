package interview

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Author identifies who produced a dialogue message.
type Author string

const (
	AuthorInterviewer Author = "interviewer"
	AuthorRespondent  Author = "respondent"
)

// Message is one entry of the append-only dialogue log. Messages are
// never mutated or deleted after being appended.
type Message struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	StageID   string    `json:"stage_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrBlankReply signals an empty or whitespace-only respondent reply.
// No transition occurs; the caller re-issues the current prompt.
var ErrBlankReply = errors.New("reply must not be blank")

// ErrCompleted signals a reply submitted after the session reached the
// terminal state.
var ErrCompleted = errors.New("interview already completed")

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Turn is the outcome of one respondent reply: the interviewer messages
// emitted in response, and whether the session just completed.
type Turn struct {
	Replies   []Message
	Completed bool
}

// Machine advances a single session through the ordered stage script.
// It is not safe for concurrent use; callers serialize access per
// session (see the session package).
type Machine struct {
	script    []Stage
	stageIdx  int
	step      int
	completed bool
	messages  []Message
	clock     Clock
}

// NewMachine creates a Machine over the given script and emits the first
// stage prompt into the dialogue log.
func NewMachine(script []Stage) (*Machine, error) {
	return NewMachineWithClock(script, realClock{})
}

// NewMachineWithClock is NewMachine with an injectable clock.
func NewMachineWithClock(script []Stage, clock Clock) (*Machine, error) {
	if len(script) == 0 {
		return nil, fmt.Errorf("script must contain at least one stage")
	}
	m := &Machine{script: script, clock: clock}
	m.emit(script[0].Prompt, script[0].ID)
	return m, nil
}

// CurrentStage returns the active stage, or false once the session has
// completed.
func (m *Machine) CurrentStage() (Stage, bool) {
	if m.completed {
		return Stage{}, false
	}
	return m.script[m.stageIdx], true
}

// CurrentPrompt returns the interviewer message the respondent is being
// asked to answer: the most recent interviewer entry in the log.
func (m *Machine) CurrentPrompt() string {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Author == AuthorInterviewer {
			return m.messages[i].Content
		}
	}
	return ""
}

// Completed reports whether the session reached the terminal state.
func (m *Machine) Completed() bool {
	return m.completed
}

// SubmitReply records a respondent reply and advances the script: while
// follow-ups remain in the current stage the next follow-up is asked;
// otherwise the stage's exit message is emitted and the next stage
// begins, or the session completes after the last stage.
//
// A blank reply returns ErrBlankReply without any transition; the
// current prompt stands and is simply re-asked.
func (m *Machine) SubmitReply(text string) (Turn, error) {
	if m.completed {
		return Turn{}, ErrCompleted
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Turn{}, ErrBlankReply
	}

	stage := m.script[m.stageIdx]
	m.append(AuthorRespondent, trimmed, stage.ID)

	var turn Turn
	if m.step < len(stage.FollowUps) {
		msg := m.emit(stage.FollowUps[m.step], stage.ID)
		m.step++
		turn.Replies = append(turn.Replies, msg)
		return turn, nil
	}

	if stage.ExitMessage != "" {
		turn.Replies = append(turn.Replies, m.emit(stage.ExitMessage, stage.ID))
	}
	m.step = 0
	m.stageIdx++

	if m.stageIdx >= len(m.script) {
		m.completed = true
		turn.Completed = true
		return turn, nil
	}

	next := m.script[m.stageIdx]
	turn.Replies = append(turn.Replies, m.emit(next.Prompt, next.ID))
	return turn, nil
}

// Progress returns completion as a percentage. Each stage contributes an
// equal share; within a stage the fraction grows with each answered
// follow-up. A completed session is always exactly 100.
func (m *Machine) Progress() float64 {
	if m.completed {
		return 100
	}

	total := float64(len(m.script))
	stageWeight := 100 / total

	stage := m.script[m.stageIdx]
	var intra float64
	if n := len(stage.FollowUps); n > 0 {
		intra = float64(m.step) / float64(n+1)
		if intra > 1 {
			intra = 1
		}
	} else {
		intra = 0.5
	}

	p := float64(m.stageIdx)*stageWeight + intra*stageWeight
	if p > 100 {
		p = 100
	}
	return p
}

// Messages returns a copy of the dialogue log in order.
func (m *Machine) Messages() []Message {
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// LastRespondentMessage returns the most recent respondent entry, or
// false if the respondent has not spoken yet.
func (m *Machine) LastRespondentMessage() (Message, bool) {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Author == AuthorRespondent {
			return m.messages[i], true
		}
	}
	return Message{}, false
}

func (m *Machine) emit(content, stageID string) Message {
	return m.append(AuthorInterviewer, content, stageID)
}

func (m *Machine) append(author Author, content, stageID string) Message {
	msg := Message{
		ID:        uuid.New().String(),
		Author:    author,
		Content:   content,
		StageID:   stageID,
		Timestamp: m.clock.Now(),
	}
	m.messages = append(m.messages, msg)
	return msg
}
