// Package composer renders the deterministic system prompt sent to the
// inference endpoint. Composition is a pure function of its inputs: the
// same route, persona, consent flag and context always yield the same
// string.
package composer

import (
	"strings"

	"github.com/mbarros/escuta/internal/profile"
)

// Route selects which prompt module applies to a conversation.
type Route string

const (
	RouteChat       Route = "chat"
	RouteTriage     Route = "triagem"
	RouteAssessment Route = "avaliacao-inicial"
)

// Module is the named prompt block a route resolves to.
type Module string

const (
	ModuleNarrative Module = "narrativo"
	ModuleClinical  Module = "clinico"
)

// ModuleFor maps a route to its prompt module. Unknown routes fall back
// to the narrative module.
func ModuleFor(route Route) Module {
	switch route {
	case RouteTriage, RouteAssessment:
		return ModuleClinical
	default:
		return ModuleNarrative
	}
}

const basePrompt = "Você é Nôa Esperanza, uma assistente de escuta clínica. " +
	"Conduza a conversa com acolhimento, registre o que for relatado sem " +
	"julgamentos e nunca formule diagnósticos ou prescrições. Responda " +
	"sempre em português."

var moduleBlocks = map[Module]string{
	ModuleNarrative: "Módulo ativo: narrativo. Priorize a escuta da história " +
		"de vida do interlocutor, com perguntas abertas e devolutivas breves.",
	ModuleClinical: "Módulo ativo: clínico. Siga o roteiro de avaliação " +
		"inicial, uma pergunta por vez, registrando queixas, história, " +
		"antecedentes familiares, hábitos e medicações.",
}

// Composer builds system prompts. The registry resolves persona
// overlays by profile id; a nil registry disables overlays.
type Composer struct {
	registry *profile.Registry
}

// New creates a Composer backed by the given persona registry.
func New(registry *profile.Registry) *Composer {
	return &Composer{registry: registry}
}

// Compose renders the system prompt for one inference call. Sections
// appear in a fixed order: base instruction block, persona overlay (if
// the profile id resolves), active-module marker, consent banner, and
// the user-context block. Empty sections are omitted except the consent
// banner, which is always present.
func (c *Composer) Compose(route Route, profileID string, consent bool, contextBlock string) string {
	sections := []string{basePrompt}

	if c.registry != nil && profileID != "" {
		if p, ok := c.registry.Get(profileID); ok && p.Overlay != "" {
			sections = append(sections, p.Overlay)
		}
	}

	sections = append(sections, moduleBlocks[ModuleFor(route)])
	sections = append(sections, consentBanner(consent))

	if block := strings.TrimSpace(contextBlock); block != "" {
		sections = append(sections, "Contexto adicional:\n"+block)
	}

	return strings.Join(sections, "\n\n")
}

func consentBanner(consent bool) string {
	if consent {
		return "Consentimento do interlocutor: OBTIDO. Os relatos podem ser " +
			"registrados no prontuário e utilizados na síntese clínica."
	}
	return "Consentimento do interlocutor: PENDENTE. Não registre dados " +
		"pessoais no prontuário e lembre o interlocutor de formalizar o " +
		"consentimento antes da síntese."
}
