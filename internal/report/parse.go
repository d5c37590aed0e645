package report

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/mbarros/escuta/internal/gateway"
)

// wireReport is the structured payload the inference endpoint is asked
// to produce. Field names follow the prompt contract, not the Go model.
type wireReport struct {
	Nome    string `json:"nome"`
	Queixas struct {
		Principal       string   `json:"principal"`
		Lista           []string `json:"lista"`
		Desenvolvimento string   `json:"desenvolvimento"`
	} `json:"queixas"`
	Historia []string `json:"historia"`
	Familia  struct {
		Mae []string `json:"mae"`
		Pai []string `json:"pai"`
	} `json:"familia"`
	Habitos    []string `json:"habitos"`
	Medicacoes struct {
		Continuas []string `json:"continuas"`
		Eventuais []string `json:"eventuais"`
	} `json:"medicacoes"`
	Alergias      []string `json:"alergias"`
	Sintese       string   `json:"sintese"`
	Recomendacoes []string `json:"recomendacoes"`
}

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// parseStructured extracts a ClinicalReport from a gateway reply. It
// prefers the dedicated data field and otherwise looks for a fenced
// JSON block inside the reply text. Missing keys map to safe empty
// defaults; false means no structured block could be decoded at all.
func parseStructured(reply *gateway.Reply) (ClinicalReport, bool) {
	raw := reply.Data
	if len(raw) == 0 {
		m := fencedJSONRe.FindStringSubmatch(reply.Text())
		if m == nil {
			return ClinicalReport{}, false
		}
		raw = json.RawMessage(m[1])
	}

	var wire wireReport
	if err := json.Unmarshal(raw, &wire); err != nil {
		return ClinicalReport{}, false
	}

	rep := emptyReport()
	rep.PatientName = wire.Nome
	rep.MainComplaint = wire.Queixas.Principal
	rep.ComplaintsList = orEmpty(wire.Queixas.Lista)
	rep.DevelopmentDetails = wire.Queixas.Desenvolvimento
	rep.MedicalHistory = orEmpty(wire.Historia)
	rep.FamilyHistory.Maternal = orEmpty(wire.Familia.Mae)
	rep.FamilyHistory.Paternal = orEmpty(wire.Familia.Pai)
	rep.LifestyleHabits = orEmpty(wire.Habitos)
	rep.Medications.Regular = orEmpty(wire.Medicacoes.Continuas)
	rep.Medications.Sporadic = orEmpty(wire.Medicacoes.Eventuais)
	rep.Allergies = orEmpty(wire.Alergias)
	rep.Summary = strings.TrimSpace(wire.Sintese)
	rep.Recommendations = orEmpty(wire.Recomendacoes)
	return rep, true
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var bulletRe = regexp.MustCompile(`^\s*(?:[-•*]|\d+[.)])\s+(.+)$`)

// extractNarrative pulls a summary and a recommendation list out of
// free text. The first non-bullet paragraph becomes the summary;
// bullet lines after a line mentioning recommendations become the
// recommendation list. Best effort: false means no usable summary.
func extractNarrative(text string) (summary string, recommendations []string, ok bool) {
	lines := strings.Split(text, "\n")

	inRecommendations := false
	var summaryLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(summaryLines) > 0 && !inRecommendations {
				// First paragraph closed; keep scanning for bullets only.
				inRecommendations = true
			}
			continue
		}
		if strings.Contains(strings.ToLower(trimmed), "recomenda") {
			inRecommendations = true
		}
		if m := bulletRe.FindStringSubmatch(trimmed); m != nil {
			if inRecommendations {
				recommendations = append(recommendations, m[1])
			}
			continue
		}
		if !inRecommendations {
			summaryLines = append(summaryLines, trimmed)
		}
	}

	summary = strings.Join(summaryLines, " ")
	if summary == "" {
		return "", nil, false
	}
	return summary, recommendations, true
}
