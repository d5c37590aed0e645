// Package profile holds the persona registry: named prompt overlays
// activated when a respondent utterance contains a known activation
// phrase.
package profile

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Profile is one persona: a display name, a tone hint, and the prompt
// overlay injected by the composer when the persona is active.
type Profile struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Role    string   `json:"role"`
	Tone    string   `json:"tone"`
	Overlay string   `json:"overlay"`
	Phrases []string `json:"phrases"`
}

// Registry resolves personas by id and by activation phrase. Profiles
// are matched in declaration order; the first hit wins.
type Registry struct {
	profiles []Profile
}

// NewRegistry builds a registry over the given profiles, falling back
// to the built-in set when none are provided.
func NewRegistry(profiles ...Profile) *Registry {
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}
	return &Registry{profiles: profiles}
}

// Get returns the profile with the given id.
func (r *Registry) Get(id string) (Profile, bool) {
	for _, p := range r.profiles {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}

// Match compares an utterance against every activation phrase using
// case-insensitive, accent-folded containment. The first profile with a
// matching phrase wins; no match means no persona is active.
func (r *Registry) Match(utterance string) (Profile, bool) {
	folded := Normalize(utterance)
	if folded == "" {
		return Profile{}, false
	}
	for _, p := range r.profiles {
		for _, phrase := range p.Phrases {
			if strings.Contains(folded, Normalize(phrase)) {
				return p, true
			}
		}
	}
	return Profile{}, false
}

// All returns the registered profiles in declaration order.
func (r *Registry) All() []Profile {
	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases the text, strips diacritics, replaces
// punctuation with spaces and collapses runs of whitespace, so that
// "Olá, Nôa. Maria aqui!" and "ola noa maria aqui" compare equal.
func Normalize(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// DefaultProfiles returns the built-in persona table.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			ID:   "dr-ricardo",
			Name: "Dr. Ricardo Valença",
			Role: "Diretor clínico",
			Tone: "técnico e acolhedor",
			Overlay: "O interlocutor é o Dr. Ricardo Valença, diretor clínico. " +
				"Trate-o sempre como Dr. Ricardo, habilite vocabulário técnico " +
				"completo e priorize precisão semiológica nas respostas.",
			Phrases: []string{
				"Olá, Nôa. Ricardo Valença, aqui",
				"Olá, Nôa. Ricardo Valença aqui",
				"Dr. Ricardo aqui",
			},
		},
		{
			ID:   "dr-eduardo",
			Name: "Dr. Eduardo Faveret",
			Role: "Neurologista",
			Tone: "técnico",
			Overlay: "O interlocutor é o Dr. Eduardo Faveret, neurologista. " +
				"Aprofunde aspectos neurológicos da escuta e utilize " +
				"terminologia especializada quando pertinente.",
			Phrases: []string{
				"Olá, Nôa. Eduardo Faveret, aqui",
				"Eduardo Faveret aqui",
			},
		},
		{
			ID:   "gabriela",
			Name: "Gabriela",
			Role: "Estudante",
			Tone: "didático",
			Overlay: "A interlocutora é Gabriela, estudante. Adote tom " +
				"didático, explique termos técnicos e organize as orientações " +
				"em passos claros.",
			Phrases: []string{
				"Olá, Nôa. Gabriela aqui",
				"Gabriela aqui",
			},
		},
	}
}
