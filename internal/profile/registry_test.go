package profile

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Olá, Nôa. Maria aqui!", "ola noa maria aqui"},
		{"  VALENÇA  ", "valenca"},
		{"dr. ricardo... aqui", "dr ricardo aqui"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMatchFoldsAccentsAndCase(t *testing.T) {
	r := NewRegistry()

	cases := []struct {
		utterance string
		wantID    string
	}{
		{"Olá, Nôa. Ricardo Valença, aqui", "dr-ricardo"},
		{"ola noa ricardo valenca aqui", "dr-ricardo"},
		{"OLÁ, NÔA. GABRIELA AQUI", "gabriela"},
		{"bom dia, eduardo faveret aqui para a sessão", "dr-eduardo"},
	}
	for _, tc := range cases {
		p, ok := r.Match(tc.utterance)
		if !ok {
			t.Errorf("Match(%q): no persona matched, want %q", tc.utterance, tc.wantID)
			continue
		}
		if p.ID != tc.wantID {
			t.Errorf("Match(%q) = %q, want %q", tc.utterance, p.ID, tc.wantID)
		}
	}
}

func TestMatchNoActivationPhrase(t *testing.T) {
	r := NewRegistry()

	for _, utterance := range []string{
		"estou com dor de cabeça",
		"meu nome é Ricardo",
		"",
		"   ",
	} {
		if p, ok := r.Match(utterance); ok {
			t.Errorf("Match(%q) activated persona %q, want none", utterance, p.ID)
		}
	}
}

func TestMatchFirstDeclaredWins(t *testing.T) {
	r := NewRegistry(
		Profile{ID: "first", Phrases: []string{"maria aqui"}},
		Profile{ID: "second", Phrases: []string{"maria aqui"}},
	)

	p, ok := r.Match("olá, maria aqui")
	if !ok || p.ID != "first" {
		t.Errorf("expected first declared profile to win, got %+v ok=%v", p, ok)
	}
}

func TestGet(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("dr-ricardo"); !ok {
		t.Error("expected built-in profile dr-ricardo")
	}
	if _, ok := r.Get("unknown"); ok {
		t.Error("unexpected match for unknown id")
	}
}
