package report

import (
	"strings"
	"testing"

	"github.com/mbarros/escuta/internal/record"
)

func sampleRecords(t *testing.T) []record.Record {
	t.Helper()
	return []record.Record{
		{Question: "Como prefere ser chamada?", Answer: "Maria", Category: record.CategoryIdentification},
		{Question: "Quais queixas?", Answer: "dor de cabeça", Category: record.CategoryComplaints},
		{Question: "Mais alguma queixa?", Answer: "insônia", Category: record.CategoryComplaints},
		{Question: "Quando começou?", Answer: "há dois meses, piora à noite", Category: record.CategoryHistory},
		{Question: "Questões de saúde por parte de sua mãe?", Answer: "hipertensão", Category: record.CategoryFamily},
		{Question: "E por parte de seu pai?", Answer: "diabetes", Category: record.CategoryFamily},
		{Question: "Você tem alguma alergia?", Answer: "poeira", Category: record.CategoryMedications},
		{Question: "Quais as medicações que você utiliza regularmente?", Answer: "losartana", Category: record.CategoryMedications},
		{Question: "Quais as medicações você utiliza esporadicamente (de vez em quando)?", Answer: "dipirona", Category: record.CategoryMedications},
	}
}

func TestOfflineIsDeterministic(t *testing.T) {
	records := sampleRecords(t)

	a := Offline(records)
	b := Offline(records)
	if a.Summary != b.Summary {
		t.Error("identical records produced different summaries")
	}
	if a.Summary == "" {
		t.Error("offline summary must never be empty")
	}
}

func TestOfflineFieldMapping(t *testing.T) {
	rep := Offline(sampleRecords(t))

	if rep.PatientName != "Maria" {
		t.Errorf("PatientName = %q, want Maria", rep.PatientName)
	}
	if rep.MainComplaint != "dor de cabeça" {
		t.Errorf("MainComplaint = %q, want first complaint", rep.MainComplaint)
	}
	if len(rep.ComplaintsList) != 2 {
		t.Errorf("ComplaintsList = %v, want 2 entries", rep.ComplaintsList)
	}
	if len(rep.FamilyHistory.Maternal) != 1 || rep.FamilyHistory.Maternal[0] != "hipertensão" {
		t.Errorf("maternal history = %v", rep.FamilyHistory.Maternal)
	}
	if len(rep.FamilyHistory.Paternal) != 1 || rep.FamilyHistory.Paternal[0] != "diabetes" {
		t.Errorf("paternal history = %v", rep.FamilyHistory.Paternal)
	}
	if len(rep.Allergies) != 1 || rep.Allergies[0] != "poeira" {
		t.Errorf("allergies = %v", rep.Allergies)
	}
	if len(rep.Medications.Regular) != 1 || rep.Medications.Regular[0] != "losartana" {
		t.Errorf("regular medications = %v", rep.Medications.Regular)
	}
	if len(rep.Medications.Sporadic) != 1 || rep.Medications.Sporadic[0] != "dipirona" {
		t.Errorf("sporadic medications = %v", rep.Medications.Sporadic)
	}
	if len(rep.Recommendations) == 0 {
		t.Error("offline report must carry the standard recommendations")
	}
}

func TestOfflineOmitsEmptyCategories(t *testing.T) {
	records := []record.Record{
		{Question: "Quais queixas?", Answer: "tontura", Category: record.CategoryComplaints},
	}

	rep := Offline(records)
	if strings.Contains(rep.Summary, "Hábitos") {
		t.Error("summary mentions habits with no habit records")
	}
	if strings.Contains(rep.Summary, "Antecedentes familiares") {
		t.Error("summary mentions family history with no family records")
	}
	if strings.Contains(rep.Summary, "Medicações") {
		t.Error("summary mentions medications with no medication records")
	}
	if !strings.Contains(rep.Summary, "tontura") {
		t.Error("summary missing the reported complaint")
	}
}

func TestOfflineSummaryFollowsCategoryOrder(t *testing.T) {
	rep := Offline(sampleRecords(t))

	markers := []string{
		"Apresentação:",
		"Queixas relatadas:",
		"História da queixa",
		"Antecedentes familiares",
		"Medicações e alergias",
	}
	last := -1
	for _, m := range markers {
		idx := strings.Index(rep.Summary, m)
		if idx < 0 {
			t.Fatalf("summary missing section %q", m)
		}
		if idx < last {
			t.Errorf("section %q out of order", m)
		}
		last = idx
	}
}

func TestOfflineWithNoRecords(t *testing.T) {
	rep := Offline(nil)
	if rep.Summary == "" {
		t.Error("summary must never be empty, even without records")
	}
	if rep.ComplaintsList == nil || rep.FamilyHistory.Maternal == nil {
		t.Error("list fields must be non-nil empty slices")
	}
}

func TestExtractNarrative(t *testing.T) {
	text := "A escuta sugere um quadro de cefaleia tensional com componente de insônia.\n" +
		"O padrão relatado é consistente ao longo de dois meses.\n" +
		"\n" +
		"Recomendações:\n" +
		"- Higiene do sono\n" +
		"- Diário de cefaleia\n" +
		"1. Retorno em 30 dias\n"

	summary, recs, ok := extractNarrative(text)
	if !ok {
		t.Fatal("expected a usable summary")
	}
	if !strings.Contains(summary, "cefaleia tensional") {
		t.Errorf("summary = %q", summary)
	}
	if strings.Contains(summary, "Higiene do sono") {
		t.Error("bullet content leaked into the summary")
	}
	if len(recs) != 3 {
		t.Errorf("recommendations = %v, want 3", recs)
	}
}

func TestExtractNarrativeEmptyText(t *testing.T) {
	if _, _, ok := extractNarrative("   \n\n  "); ok {
		t.Error("blank text must not yield a summary")
	}
}
