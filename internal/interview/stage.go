package interview

import (
	"regexp"
	"strings"

	"github.com/mbarros/escuta/internal/record"
)

// Stage is one scripted step of the interview. The ordered stage list is
// loaded once at engine start and never mutated afterwards.
type Stage struct {
	ID          string
	Label       string
	Prompt      string
	Description string
	FollowUps   []string
	ExitMessage string
	Suggestions []string
	FocusTopics []string

	// Category tags every answer given during this stage. Empty means
	// the caller should fall back to a record.Classifier.
	Category record.Category
}

// DefaultScript returns the full anamnesis script: welcome, complaints,
// complaint history, family history, lifestyle habits, medications and
// allergies, and closing synthesis.
func DefaultScript() []Stage {
	return []Stage{
		{
			ID:    "acolhimento",
			Label: "Acolhimento",
			Prompt: "Olá! Eu vou conduzir a sua avaliação clínica inicial. " +
				"Antes de começarmos, pode me contar como prefere ser chamada?",
			Description: "Apresentação inicial, construção de vínculo e identificação de prioridades imediatas.",
			FollowUps: []string{
				"Existe algo urgente ou que precise de atenção imediata neste momento?",
				"Há algum limite ou necessidade especial que devo considerar durante nossa conversa?",
			},
			ExitMessage: "Perfeito, obrigado por compartilhar essas informações iniciais. " +
				"Vamos avançar para compreender as queixas que mais lhe chamam atenção.",
			Category: record.CategoryIdentification,
		},
		{
			ID:    "queixas",
			Label: "Queixas Principais",
			Prompt: "Conte-me quais questões, sintomas ou desconfortos estão presentes " +
				"e merecem nossa atenção neste momento.",
			Description: "Mapeamento das queixas principais e secundárias, identificando intensidade, frequência e impacto.",
			FollowUps: []string{
				"Há mais alguma queixa ou sintoma que gostaria de registrar?",
				"De tudo que você me contou, qual é a questão que mais lhe incomoda no momento?",
			},
			ExitMessage: "Anotei as queixas mencionadas. Agora vamos explorar a história " +
				"dessas questões para compreender como surgiram.",
			Suggestions: []string{
				"Dor abdominal",
				"Cefaleia persistente",
				"Insônia",
				"Ansiedade",
				"Fadiga crônica",
				"Alterações digestivas",
				"Desconforto torácico",
				"Oscilações de humor",
			},
			Category: record.CategoryComplaints,
		},
		{
			ID:          "historia-indiciaria",
			Label:       "História Indiciária",
			Prompt:      "Vamos aprofundar um pouco: quando [queixa] começou e como evoluiu até aqui?",
			Description: "Exploração da linha do tempo, gatilhos e interações com outros elementos da vida.",
			FollowUps: []string{
				"Que situações costumam desencadear ou intensificar os sintomas?",
				"O que parece melhorar ou piorar a queixa?",
				"Sobre sua vida até aqui, quais as questões de saúde que você já viveu?",
			},
			ExitMessage: "Obrigado pelos detalhes. Já tenho uma boa visão da evolução dessas questões.",
			FocusTopics: []string{
				"Início dos sintomas",
				"Episódios marcantes",
				"Fatores de alívio",
				"Fatores de piora",
				"Impacto no cotidiano",
				"Sono e recuperação",
			},
			Category: record.CategoryHistory,
		},
		{
			ID:          "historia-familiar",
			Label:       "História Familiar",
			Prompt:      "Começando pela parte da sua mãe, quais as questões de saúde dela e desse lado da família?",
			Description: "Levantamento dos antecedentes familiares maternos e paternos.",
			FollowUps: []string{
				"E por parte de seu pai?",
			},
			ExitMessage: "Registrei os antecedentes familiares. Vamos falar agora sobre seus hábitos.",
			Category:    record.CategoryFamily,
		},
		{
			ID:    "habitos",
			Label: "Hábitos de Vida",
			Prompt: "Além dos hábitos de vida que já apareceram em nossa conversa, " +
				"que outros hábitos você acha importante mencionar?",
			Description: "Hábitos de sono, alimentação, atividade física e uso de substâncias.",
			FollowUps: []string{
				"Como está o seu sono e a sua alimentação no dia a dia?",
			},
			ExitMessage: "Obrigado. Para finalizar a coleta, vamos revisar medicações e alergias.",
			Category:    record.CategoryHabits,
		},
		{
			ID:          "medicacoes-alergias",
			Label:       "Medicações e Alergias",
			Prompt:      "Você tem alguma alergia (mudança de tempo, medicação, poeira...)?",
			Description: "Alergias conhecidas e medicações de uso contínuo ou eventual.",
			FollowUps: []string{
				"Quais as medicações que você utiliza regularmente?",
				"Quais as medicações você utiliza esporadicamente (de vez em quando) e por que utiliza?",
			},
			ExitMessage: "Anotado. Vamos concluir com uma síntese do que construímos juntos.",
			Category:    record.CategoryMedications,
		},
		{
			ID:    "sintese-encaminhamento",
			Label: "Síntese e Encaminhamento",
			Prompt: "Obrigado, [nome]. Com base no que você compartilhou, vou preparar uma síntese " +
				"clínica inicial para orientar os próximos passos. Você concorda com o meu entendimento? " +
				"Há mais alguma coisa que gostaria de adicionar?",
			Description: "Síntese preliminar e alinhamento das ações subsequentes da jornada clínica.",
			ExitMessage: "Avaliação concluída. Registrarei a síntese no seu prontuário digital e " +
				"encaminharei as orientações necessárias.",
			Category: record.CategoryIdentification,
		},
	}
}

var placeholderRe = regexp.MustCompile(`\[(\w+)\]`)

// FillPlaceholders substitutes [name]-style placeholders in a stage text
// with captured variables, falling back to a neutral word for anything
// not yet captured.
func FillPlaceholders(text string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		key := strings.Trim(match, "[]")
		if v, ok := vars[key]; ok && v != "" {
			return v
		}
		return "isso"
	})
}
