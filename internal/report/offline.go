package report

import (
	"strings"

	"github.com/mbarros/escuta/internal/record"
)

// standardRecommendations closes every offline report. The list is
// fixed so the offline path stays deterministic.
var standardRecommendations = []string{
	"Agendar consulta presencial para aprofundar a avaliação clínica.",
	"Manter um registro diário dos sintomas, gatilhos e horários.",
	"Procurar atendimento de urgência em caso de agravamento dos sintomas.",
}

const emptySummary = "Não há registros suficientes nesta escuta para uma " +
	"síntese detalhada. Recomenda-se repetir a avaliação inicial."

// Offline renders a ClinicalReport purely from the local records. The
// rendering is deterministic: the same records always produce the same
// report, byte for byte. Categories without records are omitted from
// the summary entirely.
func Offline(records []record.Record) ClinicalReport {
	rep := emptyReport()

	byCat := make(map[record.Category][]record.Record)
	for _, r := range records {
		byCat[r.Category] = append(byCat[r.Category], r)
	}

	for _, r := range byCat[record.CategoryIdentification] {
		if rep.PatientName == "" {
			rep.PatientName = r.Answer
		}
	}
	for _, r := range byCat[record.CategoryComplaints] {
		rep.ComplaintsList = append(rep.ComplaintsList, r.Answer)
	}
	if len(rep.ComplaintsList) > 0 {
		rep.MainComplaint = rep.ComplaintsList[0]
	}
	for _, r := range byCat[record.CategoryHistory] {
		rep.MedicalHistory = append(rep.MedicalHistory, r.Answer)
	}
	rep.DevelopmentDetails = strings.Join(rep.MedicalHistory, " ")

	// Family answers split by which side the question asked about.
	for _, r := range byCat[record.CategoryFamily] {
		if strings.Contains(strings.ToLower(r.Question), "pai") {
			rep.FamilyHistory.Paternal = append(rep.FamilyHistory.Paternal, r.Answer)
		} else {
			rep.FamilyHistory.Maternal = append(rep.FamilyHistory.Maternal, r.Answer)
		}
	}
	for _, r := range byCat[record.CategoryHabits] {
		rep.LifestyleHabits = append(rep.LifestyleHabits, r.Answer)
	}

	// Medication-stage answers split by what the question asked.
	for _, r := range byCat[record.CategoryMedications] {
		q := strings.ToLower(r.Question)
		switch {
		case strings.Contains(q, "alergia"):
			rep.Allergies = append(rep.Allergies, r.Answer)
		case strings.Contains(q, "esporadicamente") || strings.Contains(q, "eventual"):
			rep.Medications.Sporadic = append(rep.Medications.Sporadic, r.Answer)
		default:
			rep.Medications.Regular = append(rep.Medications.Regular, r.Answer)
		}
	}

	rep.Summary = renderSummary(rep)
	rep.Recommendations = append(rep.Recommendations, standardRecommendations...)
	return rep
}

// renderSummary concatenates one fixed paragraph per non-empty
// category, following record.Categories() order.
func renderSummary(rep ClinicalReport) string {
	var paragraphs []string
	for _, cat := range record.Categories() {
		if p := categoryParagraph(rep, cat); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		return emptySummary
	}
	return strings.Join(paragraphs, "\n\n")
}

func categoryParagraph(rep ClinicalReport, cat record.Category) string {
	switch cat {
	case record.CategoryIdentification:
		if rep.PatientName == "" {
			return ""
		}
		return "Apresentação: " + rep.PatientName + "."
	case record.CategoryComplaints:
		if len(rep.ComplaintsList) == 0 {
			return ""
		}
		return "Queixas relatadas: " + joinItems(rep.ComplaintsList) +
			". A queixa principal identificada foi: " + rep.MainComplaint + "."
	case record.CategoryHistory:
		if len(rep.MedicalHistory) == 0 {
			return ""
		}
		return "História da queixa e antecedentes pessoais: " + joinItems(rep.MedicalHistory) + "."
	case record.CategoryFamily:
		var sides []string
		if len(rep.FamilyHistory.Maternal) > 0 {
			sides = append(sides, "por parte de mãe: "+joinItems(rep.FamilyHistory.Maternal))
		}
		if len(rep.FamilyHistory.Paternal) > 0 {
			sides = append(sides, "por parte de pai: "+joinItems(rep.FamilyHistory.Paternal))
		}
		if len(sides) == 0 {
			return ""
		}
		return "Antecedentes familiares — " + strings.Join(sides, "; ") + "."
	case record.CategoryHabits:
		if len(rep.LifestyleHabits) == 0 {
			return ""
		}
		return "Hábitos de vida: " + joinItems(rep.LifestyleHabits) + "."
	case record.CategoryMedications:
		var meds []string
		if len(rep.Medications.Regular) > 0 {
			meds = append(meds, "uso contínuo: "+joinItems(rep.Medications.Regular))
		}
		if len(rep.Medications.Sporadic) > 0 {
			meds = append(meds, "uso eventual: "+joinItems(rep.Medications.Sporadic))
		}
		if len(rep.Allergies) > 0 {
			meds = append(meds, "alergias relatadas: "+joinItems(rep.Allergies))
		}
		if len(meds) == 0 {
			return ""
		}
		return "Medicações e alergias — " + strings.Join(meds, "; ") + "."
	}
	return ""
}

func joinItems(items []string) string {
	return strings.Join(items, "; ")
}
