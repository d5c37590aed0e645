package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mbarros/escuta/internal/composer"
	"github.com/mbarros/escuta/internal/interview"
	"github.com/mbarros/escuta/internal/profile"
	"github.com/mbarros/escuta/internal/record"
	"github.com/mbarros/escuta/internal/report"
	"github.com/mbarros/escuta/internal/storage"
)

func noDelay(context.Context, string) {}

func testScript() []interview.Stage {
	return []interview.Stage{
		{
			ID:          "acolhimento",
			Prompt:      "Como prefere ser chamada?",
			FollowUps:   []string{"Algo urgente neste momento?"},
			ExitMessage: "Obrigado.",
			Category:    record.CategoryIdentification,
		},
		{
			ID:          "queixas",
			Prompt:      "Obrigado, [nome]. Quais as suas queixas?",
			ExitMessage: "Avaliação concluída.",
			Category:    record.CategoryComplaints,
		},
	}
}

func testEngine(t *testing.T, opts ...Option) (*Engine, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	synth := report.NewSynthesizer(composer.New(profile.NewRegistry()), nil)
	all := append([]Option{
		WithScript(testScript()),
		WithDelay(noDelay),
		WithPersister(store),
	}, opts...)
	return NewEngine(profile.NewRegistry(), synth, all...), store
}

func TestBeginEmitsOpeningPrompt(t *testing.T) {
	e, store := testEngine(t)

	view, err := e.Begin(composer.RouteAssessment, false)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if view.ID == "" {
		t.Error("session must carry an id")
	}
	if len(view.Messages) != 1 || view.Messages[0].Content != "Como prefere ser chamada?" {
		t.Errorf("unexpected opening messages: %+v", view.Messages)
	}

	if _, err := store.GetSession(view.ID); err != nil {
		t.Errorf("session not persisted: %v", err)
	}
	msgs, err := store.ListMessages(view.ID)
	if err != nil || len(msgs) != 1 {
		t.Errorf("opening message not persisted: %v (%d messages)", err, len(msgs))
	}
}

func TestReplyFillsPlaceholdersFromCapturedName(t *testing.T) {
	e, _ := testEngine(t)
	view, _ := e.Begin(composer.RouteAssessment, true)
	ctx := context.Background()

	if _, err := e.Reply(ctx, view.ID, "Maria"); err != nil {
		t.Fatalf("reply 1: %v", err)
	}
	turn, err := e.Reply(ctx, view.ID, "nada urgente")
	if err != nil {
		t.Fatalf("reply 2: %v", err)
	}

	var prompt string
	for _, m := range turn.Replies {
		if strings.Contains(m.Content, "queixas") {
			prompt = m.Content
		}
	}
	if !strings.Contains(prompt, "Maria") {
		t.Errorf("queixas prompt missing captured name: %q", prompt)
	}
}

func TestBlankRepliesDoNotAdvanceSession(t *testing.T) {
	e, _ := testEngine(t)
	view, _ := e.Begin(composer.RouteAssessment, false)
	ctx := context.Background()

	before, _ := e.Get(view.ID)
	for i := 0; i < 2; i++ {
		if _, err := e.Reply(ctx, view.ID, "  "); !errors.Is(err, interview.ErrBlankReply) {
			t.Fatalf("blank reply %d: got %v, want ErrBlankReply", i+1, err)
		}
	}
	after, _ := e.Get(view.ID)
	if after.Progress != before.Progress {
		t.Errorf("progress changed across blank replies: %v -> %v", before.Progress, after.Progress)
	}
	if len(after.Messages) != len(before.Messages) {
		t.Error("blank replies must not extend the dialogue log")
	}
}

func TestReplyUnknownSession(t *testing.T) {
	e, _ := testEngine(t)
	if _, err := e.Reply(context.Background(), "missing", "olá"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}

func TestPersonaActivationOnReply(t *testing.T) {
	e, _ := testEngine(t)
	view, _ := e.Begin(composer.RouteChat, false)

	if _, err := e.Reply(context.Background(), view.ID, "Olá, Nôa. Ricardo Valença, aqui"); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	got, _ := e.Get(view.ID)
	if got.ProfileID != "dr-ricardo" {
		t.Errorf("profile id = %q, want dr-ricardo", got.ProfileID)
	}
}

func TestSynthesizeReportRequiresCompletion(t *testing.T) {
	e, _ := testEngine(t)
	view, _ := e.Begin(composer.RouteAssessment, true)

	if _, err := e.SynthesizeReport(context.Background(), view.ID); !errors.Is(err, ErrNotCompleted) {
		t.Errorf("got %v, want ErrNotCompleted", err)
	}
}

func completeSession(t *testing.T, e *Engine, sessionID string, replies ...string) {
	t.Helper()
	ctx := context.Background()
	for _, r := range replies {
		if _, err := e.Reply(ctx, sessionID, r); err != nil {
			t.Fatalf("reply %q: %v", r, err)
		}
	}
}

func TestFullSessionProducesOfflineReport(t *testing.T) {
	e, store := testEngine(t)
	view, _ := e.Begin(composer.RouteAssessment, true)

	completeSession(t, e, view.ID, "Maria", "nada urgente", "dor de cabeça")

	got, _ := e.Get(view.ID)
	if !got.Completed || got.Progress != 100 {
		t.Fatalf("session not completed: %+v", got)
	}

	res, err := e.SynthesizeReport(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("SynthesizeReport: %v", err)
	}
	if res.Source != report.SourceOffline {
		t.Errorf("source = %q, want offline", res.Source)
	}
	if res.Report.PatientName != "Maria" {
		t.Errorf("patient name = %q", res.Report.PatientName)
	}
	if res.Report.MainComplaint != "dor de cabeça" {
		t.Errorf("main complaint = %q", res.Report.MainComplaint)
	}

	stored, err := store.GetReport(res.InferenceID)
	if err != nil {
		t.Fatalf("report not persisted: %v", err)
	}
	if stored.SessionID != view.ID {
		t.Errorf("stored report session = %q, want %q", stored.SessionID, view.ID)
	}
}

func TestSynthesizeReportWithoutConsent(t *testing.T) {
	e, _ := testEngine(t)
	view, _ := e.Begin(composer.RouteAssessment, false)
	completeSession(t, e, view.ID, "Maria", "nada urgente", "dor de cabeça")

	if _, err := e.SynthesizeReport(context.Background(), view.ID); !errors.Is(err, report.ErrConsentRequired) {
		t.Fatalf("got %v, want ErrConsentRequired", err)
	}

	if err := e.SetConsent(view.ID, true); err != nil {
		t.Fatalf("SetConsent: %v", err)
	}
	if _, err := e.SynthesizeReport(context.Background(), view.ID); err != nil {
		t.Errorf("synthesis after consent: %v", err)
	}
}

func TestTranscriptFillsPlaceholders(t *testing.T) {
	e, _ := testEngine(t)
	view, _ := e.Begin(composer.RouteAssessment, true)
	completeSession(t, e, view.ID, "Maria", "nada urgente")

	msgs, err := e.Transcript(view.ID)
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	for _, m := range msgs {
		if strings.Contains(m.Content, "[nome]") {
			t.Errorf("transcript contains unfilled placeholder: %q", m.Content)
		}
	}
}

// countingKnowledge records every lookup query.
type countingKnowledge struct {
	queries []string
	block   string
}

func (k *countingKnowledge) ContextBlock(query string) (string, error) {
	k.queries = append(k.queries, query)
	return k.block, nil
}

func TestSynthesizeReportConsultsKnowledge(t *testing.T) {
	kb := &countingKnowledge{block: "Protocolo: dor de cabeça tensional."}
	e, _ := testEngine(t, WithKnowledge(kb))
	view, _ := e.Begin(composer.RouteAssessment, true)
	completeSession(t, e, view.ID, "Maria", "nada urgente", "dor de cabeça")

	if len(kb.queries) != 0 {
		t.Fatalf("knowledge consulted %d times before synthesis", len(kb.queries))
	}

	if _, err := e.SynthesizeReport(context.Background(), view.ID); err != nil {
		t.Fatalf("SynthesizeReport: %v", err)
	}
	if len(kb.queries) != 1 {
		t.Fatalf("knowledge lookups = %d, want 1", len(kb.queries))
	}
	if kb.queries[0] != "dor de cabeça" {
		t.Errorf("lookup query = %q, want the main complaint", kb.queries[0])
	}
}

func TestSynthesizeReportSkipsKnowledgeWithoutConsent(t *testing.T) {
	kb := &countingKnowledge{block: "Protocolo."}
	e, _ := testEngine(t, WithKnowledge(kb))
	view, _ := e.Begin(composer.RouteAssessment, false)
	completeSession(t, e, view.ID, "Maria", "nada urgente", "dor de cabeça")

	if _, err := e.SynthesizeReport(context.Background(), view.ID); !errors.Is(err, report.ErrConsentRequired) {
		t.Fatalf("got %v, want ErrConsentRequired", err)
	}
	if len(kb.queries) != 0 {
		t.Errorf("knowledge consulted %d times despite missing consent", len(kb.queries))
	}
}

// failingPersister always errors; the engine must shrug it off.
type failingPersister struct{}

func (failingPersister) SaveSession(storage.Session) error           { return errors.New("down") }
func (failingPersister) UpdateSession(storage.Session) error         { return errors.New("down") }
func (failingPersister) AppendMessage(storage.DialogueMessage) error { return errors.New("down") }
func (failingPersister) AppendRecord(storage.ResponseRecord) error   { return errors.New("down") }
func (failingPersister) SaveReport(storage.Report) error             { return errors.New("down") }

func TestPersistenceFailuresNeverAbortDialogue(t *testing.T) {
	synth := report.NewSynthesizer(composer.New(profile.NewRegistry()), nil)
	e := NewEngine(profile.NewRegistry(), synth,
		WithScript(testScript()),
		WithDelay(noDelay),
		WithPersister(failingPersister{}),
	)

	view, err := e.Begin(composer.RouteAssessment, true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	completeSession(t, e, view.ID, "Maria", "nada urgente", "dor de cabeça")

	res, err := e.SynthesizeReport(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("SynthesizeReport: %v", err)
	}
	if res.Report.Summary == "" {
		t.Error("expected a usable report despite persistence failures")
	}
}
