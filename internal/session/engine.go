// Package session owns the per-interview state: one stage machine plus
// one record store per session id, serialized behind a per-session
// mutex. The engine is the only writer of session state; collaborators
// (persistence, knowledge base, synthesizer) are reached through narrow
// interfaces.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mbarros/escuta/internal/composer"
	"github.com/mbarros/escuta/internal/interview"
	"github.com/mbarros/escuta/internal/profile"
	"github.com/mbarros/escuta/internal/record"
	"github.com/mbarros/escuta/internal/report"
	"github.com/mbarros/escuta/internal/storage"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// ErrNotCompleted is returned when report synthesis is requested before
// the interview reached its terminal state.
var ErrNotCompleted = errors.New("interview not yet completed")

// Persister receives session state as it evolves. Calls are
// fire-and-forget: failures are logged and never alter the in-memory
// dialogue. Implemented by storage.Store.
type Persister interface {
	SaveSession(s storage.Session) error
	UpdateSession(s storage.Session) error
	AppendMessage(m storage.DialogueMessage) error
	AppendRecord(r storage.ResponseRecord) error
	SaveReport(r storage.Report) error
}

// ContextProvider supplies extra prompt context for a query.
// Implemented by knowledge.Base.
type ContextProvider interface {
	ContextBlock(query string) (string, error)
}

// Synthesizer produces the clinical report for a finished session.
// Implemented by report.Synthesizer.
type Synthesizer interface {
	Synthesize(ctx context.Context, records []record.Record, route composer.Route, profileID string, consent bool, contextBlock string) (report.Result, error)
}

// DelayFunc simulates interviewer thinking time before a reply. It must
// respect ctx cancellation and must not block other sessions.
type DelayFunc func(ctx context.Context, replyText string)

const (
	minThinkingDelay = 500 * time.Millisecond
	maxThinkingDelay = 1400 * time.Millisecond
	delayPerRune     = 22 * time.Millisecond
)

// defaultDelay scales with reply length inside fixed bounds.
func defaultDelay(ctx context.Context, replyText string) {
	d := time.Duration(len([]rune(replyText))) * delayPerRune
	if d < minThinkingDelay {
		d = minThinkingDelay
	}
	if d > maxThinkingDelay {
		d = maxThinkingDelay
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

type session struct {
	mu sync.Mutex

	id        string
	route     composer.Route
	profileID string
	consent   bool
	machine   *interview.Machine
	records   *record.Store
	vars      map[string]string
	createdAt time.Time
}

// Engine manages all live sessions.
type Engine struct {
	mu       sync.RWMutex
	sessions map[string]*session

	script     []interview.Stage
	registry   *profile.Registry
	classifier record.Classifier
	synth      Synthesizer
	persist    Persister
	knowledge  ContextProvider
	delay      DelayFunc
	clock      interview.Clock
}

// Option configures an Engine.
type Option func(*Engine)

// WithPersister attaches a persistence collaborator.
func WithPersister(p Persister) Option {
	return func(e *Engine) { e.persist = p }
}

// WithKnowledge attaches a knowledge-base lookup.
func WithKnowledge(k ContextProvider) Option {
	return func(e *Engine) { e.knowledge = k }
}

// WithDelay overrides the thinking-delay function (tests pass a no-op).
func WithDelay(d DelayFunc) Option {
	return func(e *Engine) { e.delay = d }
}

// WithClock overrides the message timestamp clock.
func WithClock(c interview.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithScript overrides the default interview script.
func WithScript(script []interview.Stage) Option {
	return func(e *Engine) { e.script = script }
}

// NewEngine creates an Engine over the default script.
func NewEngine(registry *profile.Registry, synth Synthesizer, opts ...Option) *Engine {
	e := &Engine{
		sessions:   make(map[string]*session),
		script:     interview.DefaultScript(),
		registry:   registry,
		classifier: record.KeywordClassifier{},
		synth:      synth,
		delay:      defaultDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// View is a read-only snapshot of a session.
type View struct {
	ID        string              `json:"id"`
	Route     composer.Route      `json:"route"`
	ProfileID string              `json:"profile_id,omitempty"`
	Consent   bool                `json:"consent"`
	Completed bool                `json:"completed"`
	Progress  float64             `json:"progress"`
	Messages  []interview.Message `json:"messages,omitempty"`
}

// Turn is the engine-level outcome of one respondent reply.
type Turn struct {
	Replies   []interview.Message `json:"replies"`
	Completed bool                `json:"completed"`
	Progress  float64             `json:"progress"`
}

// Begin starts a new session on the given route and returns its view,
// including the opening prompt.
func (e *Engine) Begin(route composer.Route, consent bool) (View, error) {
	var (
		machine *interview.Machine
		err     error
	)
	if e.clock != nil {
		machine, err = interview.NewMachineWithClock(e.script, e.clock)
	} else {
		machine, err = interview.NewMachine(e.script)
	}
	if err != nil {
		return View{}, fmt.Errorf("starting interview: %w", err)
	}

	s := &session{
		id:        uuid.New().String(),
		route:     route,
		consent:   consent,
		machine:   machine,
		records:   record.NewStore(),
		vars:      make(map[string]string),
		createdAt: time.Now(),
	}

	e.mu.Lock()
	e.sessions[s.id] = s
	e.mu.Unlock()

	e.persistSession(s)
	for _, m := range machine.Messages() {
		e.persistMessage(s.id, m)
	}
	return e.view(s), nil
}

// Reply submits a respondent reply to a session. Blank replies surface
// interview.ErrBlankReply and leave the session untouched.
func (e *Engine) Reply(ctx context.Context, sessionID, text string) (Turn, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return Turn{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stage, active := s.machine.CurrentStage()
	question := s.machine.CurrentPrompt()

	turn, err := s.machine.SubmitReply(text)
	if err != nil {
		return Turn{}, err
	}

	// Persona activation is checked on every accepted reply; the first
	// recognized phrase wins for the rest of the session.
	if s.profileID == "" {
		if p, ok := e.registry.Match(text); ok {
			s.profileID = p.ID
			e.updateSession(s)
		}
	}

	if active {
		rec := e.appendRecord(s, question, stage)
		e.captureVars(s, rec)
	}

	if respondent, ok := s.machine.LastRespondentMessage(); ok {
		e.persistMessage(s.id, respondent)
	}

	out := Turn{Completed: turn.Completed, Progress: s.machine.Progress()}
	for _, m := range turn.Replies {
		m.Content = interview.FillPlaceholders(m.Content, s.vars)
		e.persistMessage(s.id, m)
		out.Replies = append(out.Replies, m)
	}

	if len(out.Replies) > 0 {
		e.delay(ctx, out.Replies[0].Content)
	}
	if turn.Completed {
		e.updateSession(s)
	}
	return out, nil
}

// SetConsent records the respondent's consent decision.
func (e *Engine) SetConsent(sessionID string, consent bool) error {
	s, err := e.get(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consent = consent
	e.updateSession(s)
	return nil
}

// Get returns a snapshot of the session without its transcript.
func (e *Engine) Get(sessionID string) (View, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.view(s), nil
}

// Transcript returns the full dialogue log with placeholders filled.
func (e *Engine) Transcript(sessionID string) ([]interview.Message, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.machine.Messages()
	for i := range msgs {
		if msgs[i].Author == interview.AuthorInterviewer {
			msgs[i].Content = interview.FillPlaceholders(msgs[i].Content, s.vars)
		}
	}
	return msgs, nil
}

// SynthesizeReport produces the clinical report for a completed
// session. The records are read under the session lock, but the
// knowledge lookup and the synthesis call itself run unlocked so a
// slow gateway cannot stall other operations on the session.
func (e *Engine) SynthesizeReport(ctx context.Context, sessionID string) (report.Result, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return report.Result{}, err
	}

	s.mu.Lock()
	if !s.machine.Completed() {
		s.mu.Unlock()
		return report.Result{}, ErrNotCompleted
	}
	records := s.records.All()
	route := s.route
	profileID := s.profileID
	consent := s.consent
	query := s.vars["queixa"]
	s.mu.Unlock()

	// Consent gates every collaborator, the knowledge lookup included.
	if err := report.RequireConsent(route, consent); err != nil {
		return report.Result{}, err
	}

	if query == "" && len(records) > 0 {
		query = records[0].Answer
	}
	var contextBlock string
	if query != "" {
		contextBlock = e.ContextFor(query)
	}

	res, err := e.synth.Synthesize(ctx, records, route, profileID, consent, contextBlock)
	if err != nil {
		return report.Result{}, err
	}

	e.persistReport(sessionID, res)
	return res, nil
}

// ContextFor returns knowledge-base context for a query, or empty when
// no knowledge base is attached.
func (e *Engine) ContextFor(query string) string {
	if e.knowledge == nil {
		return ""
	}
	block, err := e.knowledge.ContextBlock(query)
	if err != nil {
		slog.Warn("looking up knowledge context", "error", err)
		return ""
	}
	return block
}

func (e *Engine) get(sessionID string) (*session, error) {
	e.mu.RLock()
	s, ok := e.sessions[sessionID]
	e.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (e *Engine) view(s *session) View {
	return View{
		ID:        s.id,
		Route:     s.route,
		ProfileID: s.profileID,
		Consent:   s.consent,
		Completed: s.machine.Completed(),
		Progress:  s.machine.Progress(),
		Messages:  s.machine.Messages(),
	}
}

// appendRecord tags the answer with the stage's category, falling back
// to the keyword classifier for stages without a declared mapping.
func (e *Engine) appendRecord(s *session, question string, stage interview.Stage) record.Record {
	answer, _ := s.machine.LastRespondentMessage()
	category := stage.Category
	if category == "" {
		category = e.classifier.Classify(answer.Content)
	}
	rec := s.records.Append(question, answer.Content, category)

	if e.persist != nil {
		if err := e.persist.AppendRecord(storage.ResponseRecord{
			SessionID: s.id,
			Question:  rec.Question,
			Answer:    rec.Answer,
			Category:  string(rec.Category),
			CreatedAt: answer.Timestamp,
		}); err != nil {
			slog.Warn("persisting response record", "session", s.id, "error", err)
		}
	}
	return rec
}

// captureVars feeds the placeholder table: the first identification
// answer becomes the respondent's name, the first complaint the main
// complaint.
func (e *Engine) captureVars(s *session, rec record.Record) {
	switch rec.Category {
	case record.CategoryIdentification:
		if s.vars["nome"] == "" {
			s.vars["nome"] = rec.Answer
		}
	case record.CategoryComplaints:
		if s.vars["queixa"] == "" {
			s.vars["queixa"] = rec.Answer
		}
	}
}

func (e *Engine) persistSession(s *session) {
	if e.persist == nil {
		return
	}
	if err := e.persist.SaveSession(storage.Session{
		ID:        s.id,
		Route:     string(s.route),
		ProfileID: s.profileID,
		Consent:   s.consent,
		Completed: s.machine.Completed(),
		CreatedAt: s.createdAt,
		UpdatedAt: s.createdAt,
	}); err != nil {
		slog.Warn("persisting session", "session", s.id, "error", err)
	}
}

func (e *Engine) updateSession(s *session) {
	if e.persist == nil {
		return
	}
	if err := e.persist.UpdateSession(storage.Session{
		ID:        s.id,
		Route:     string(s.route),
		ProfileID: s.profileID,
		Consent:   s.consent,
		Completed: s.machine.Completed(),
		CreatedAt: s.createdAt,
		UpdatedAt: time.Now(),
	}); err != nil {
		slog.Warn("updating session", "session", s.id, "error", err)
	}
}

func (e *Engine) persistMessage(sessionID string, m interview.Message) {
	if e.persist == nil {
		return
	}
	if err := e.persist.AppendMessage(storage.DialogueMessage{
		ID:        m.ID,
		SessionID: sessionID,
		Author:    string(m.Author),
		Content:   m.Content,
		StageID:   m.StageID,
		CreatedAt: m.Timestamp,
	}); err != nil {
		slog.Warn("persisting dialogue message", "session", sessionID, "error", err)
	}
}

func (e *Engine) persistReport(sessionID string, res report.Result) {
	if e.persist == nil {
		return
	}
	reportJSON, err := marshalReport(res.Report)
	if err != nil {
		slog.Warn("serializing report", "session", sessionID, "error", err)
		return
	}
	if err := e.persist.SaveReport(storage.Report{
		InferenceID: res.InferenceID,
		SessionID:   sessionID,
		Source:      string(res.Source),
		Narrative:   res.Narrative,
		ReportJSON:  reportJSON,
		CreatedAt:   time.Now(),
	}); err != nil {
		slog.Warn("persisting report", "session", sessionID, "error", err)
	}
}
