package interview

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mbarros/escuta/internal/record"
)

func twoStageScript(t *testing.T) []Stage {
	t.Helper()
	return []Stage{
		{
			ID:          "acolhimento",
			Label:       "Acolhimento",
			Prompt:      "Como prefere ser chamada?",
			FollowUps:   []string{"Existe algo urgente neste momento?"},
			ExitMessage: "Obrigado. Vamos falar das queixas.",
			Category:    record.CategoryIdentification,
		},
		{
			ID:          "queixas",
			Label:       "Queixas Principais",
			Prompt:      "Quais sintomas merecem nossa atenção?",
			ExitMessage: "Triagem concluída.",
			Category:    record.CategoryComplaints,
		},
	}
}

func mustMachine(t *testing.T, script []Stage) *Machine {
	t.Helper()
	m, err := NewMachine(script)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	return m
}

func TestNewMachineEmitsFirstPrompt(t *testing.T) {
	m := mustMachine(t, twoStageScript(t))

	msgs := m.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 opening message, got %d", len(msgs))
	}
	if msgs[0].Author != AuthorInterviewer {
		t.Errorf("opening message author = %q, want interviewer", msgs[0].Author)
	}
	if m.CurrentPrompt() != "Como prefere ser chamada?" {
		t.Errorf("unexpected opening prompt: %q", m.CurrentPrompt())
	}
}

func TestScenarioTwoStageIntake(t *testing.T) {
	m := mustMachine(t, twoStageScript(t))

	// First reply answers the opening prompt; a follow-up is asked and
	// progress lands strictly between 0 and 50.
	turn, err := m.SubmitReply("Maria")
	if err != nil {
		t.Fatalf("reply 1: %v", err)
	}
	if turn.Completed {
		t.Fatal("session completed after first reply")
	}
	p := m.Progress()
	if p <= 0 || p >= 50 {
		t.Errorf("progress after reply 1 = %.1f, want in (0, 50)", p)
	}

	// Second reply exhausts acolhimento: exit message plus queixas prompt.
	turn, err = m.SubmitReply("dor de cabeca")
	if err != nil {
		t.Fatalf("reply 2: %v", err)
	}
	if len(turn.Replies) != 2 {
		t.Fatalf("expected exit message + next prompt, got %d replies", len(turn.Replies))
	}

	// Third reply finishes queixas; the exit message is emitted and the
	// session completes with progress exactly 100.
	turn, err = m.SubmitReply("só isso")
	if err != nil {
		t.Fatalf("reply 3: %v", err)
	}
	if !turn.Completed {
		t.Fatal("expected session to complete")
	}
	if len(turn.Replies) != 1 || turn.Replies[0].Content != "Triagem concluída." {
		t.Errorf("expected queixas exit message, got %+v", turn.Replies)
	}
	if m.Progress() != 100 {
		t.Errorf("progress after completion = %.1f, want 100", m.Progress())
	}
}

func TestProgressMonotonic(t *testing.T) {
	m := mustMachine(t, DefaultScript())

	last := m.Progress()
	for i := 0; !m.Completed(); i++ {
		if i > 100 {
			t.Fatal("script did not terminate")
		}
		if _, err := m.SubmitReply(fmt.Sprintf("resposta %d", i)); err != nil {
			t.Fatalf("reply %d: %v", i, err)
		}
		p := m.Progress()
		if p < last {
			t.Fatalf("progress decreased: %.2f -> %.2f at reply %d", last, p, i)
		}
		last = p
	}
	if last != 100 {
		t.Errorf("final progress = %.2f, want 100", last)
	}
}

func TestCompletionHappensExactlyOnce(t *testing.T) {
	m := mustMachine(t, twoStageScript(t))

	completions := 0
	for !m.Completed() {
		turn, err := m.SubmitReply("resposta")
		if err != nil {
			t.Fatalf("reply: %v", err)
		}
		if turn.Completed {
			completions++
		}
	}
	if completions != 1 {
		t.Errorf("expected exactly one completion signal, got %d", completions)
	}

	if _, err := m.SubmitReply("mais uma"); !errors.Is(err, ErrCompleted) {
		t.Errorf("reply after completion: got %v, want ErrCompleted", err)
	}
	if m.Progress() != 100 {
		t.Errorf("progress after completion = %.1f, want 100", m.Progress())
	}
}

func TestBlankRepliesDoNotAdvance(t *testing.T) {
	m := mustMachine(t, twoStageScript(t))
	prompt := m.CurrentPrompt()

	for i := 0; i < 2; i++ {
		_, err := m.SubmitReply("   ")
		if !errors.Is(err, ErrBlankReply) {
			t.Fatalf("blank reply %d: got %v, want ErrBlankReply", i+1, err)
		}
		if m.CurrentPrompt() != prompt {
			t.Errorf("prompt changed after blank reply %d: %q", i+1, m.CurrentPrompt())
		}
	}

	if len(m.Messages()) != 1 {
		t.Errorf("blank replies must not be logged, log has %d messages", len(m.Messages()))
	}
	if m.Progress() != m.Progress() {
		t.Error("progress must be stable across blank replies")
	}
}

func TestDialogueLogIsAppendOnlyAndOrdered(t *testing.T) {
	m := mustMachine(t, twoStageScript(t))
	m.SubmitReply("Maria")
	m.SubmitReply("dor de cabeça")

	msgs := m.Messages()
	seen := make(map[string]bool)
	for _, msg := range msgs {
		if seen[msg.ID] {
			t.Errorf("duplicate message id %s", msg.ID)
		}
		seen[msg.ID] = true
	}

	// Respondent entries appear interleaved after the prompts they answer.
	if msgs[1].Author != AuthorRespondent || msgs[1].Content != "Maria" {
		t.Errorf("expected respondent reply at position 1, got %+v", msgs[1])
	}
}

func TestDefaultScriptCoversAllCategories(t *testing.T) {
	want := map[record.Category]bool{}
	for _, c := range record.Categories() {
		want[c] = false
	}
	for _, stage := range DefaultScript() {
		want[stage.Category] = true
	}
	for c, covered := range want {
		if !covered {
			t.Errorf("default script has no stage for category %q", c)
		}
	}
}

func TestFillPlaceholders(t *testing.T) {
	vars := map[string]string{"nome": "Maria", "queixa": "a dor de cabeça"}

	got := FillPlaceholders("Obrigado, [nome]. Quando [queixa] começou?", vars)
	if got != "Obrigado, Maria. Quando a dor de cabeça começou?" {
		t.Errorf("unexpected substitution: %q", got)
	}

	got = FillPlaceholders("Quando [queixa] começou?", nil)
	if !strings.Contains(got, "isso") {
		t.Errorf("missing fallback substitution: %q", got)
	}
}
