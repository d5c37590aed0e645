// Package report synthesizes the structured clinical report from the
// categorized interview records, through the inference endpoint when it
// is reachable and through a deterministic offline template otherwise.
package report

// Source records which path produced a result.
type Source string

const (
	SourceExternal Source = "external"
	SourceOffline  Source = "offline"
)

// FamilyHistory splits family antecedents by lineage.
type FamilyHistory struct {
	Maternal []string `json:"maternal"`
	Paternal []string `json:"paternal"`
}

// Medications splits reported medications by usage pattern.
type Medications struct {
	Regular  []string `json:"regular"`
	Sporadic []string `json:"sporadic"`
}

// ClinicalReport is the typed outcome of one completed interview.
type ClinicalReport struct {
	PatientName        string        `json:"patient_name"`
	MainComplaint      string        `json:"main_complaint"`
	ComplaintsList     []string      `json:"complaints_list"`
	DevelopmentDetails string        `json:"development_details"`
	MedicalHistory     []string      `json:"medical_history"`
	FamilyHistory      FamilyHistory `json:"family_history"`
	LifestyleHabits    []string      `json:"lifestyle_habits"`
	Medications        Medications   `json:"medications"`
	Allergies          []string      `json:"allergies"`
	Summary            string        `json:"summary"`
	Recommendations    []string      `json:"recommendations"`
}

// Result is the unified outcome of a synthesis call: the narrative
// text, the typed report, a globally unique id and the provenance tag.
type Result struct {
	Narrative   string         `json:"narrative"`
	Report      ClinicalReport `json:"report"`
	InferenceID string         `json:"inference_id"`
	Source      Source         `json:"source"`
}

// emptyReport returns a report with every list field non-nil so JSON
// consumers always see arrays, never null.
func emptyReport() ClinicalReport {
	return ClinicalReport{
		ComplaintsList:  []string{},
		MedicalHistory:  []string{},
		FamilyHistory:   FamilyHistory{Maternal: []string{}, Paternal: []string{}},
		LifestyleHabits: []string{},
		Medications:     Medications{Regular: []string{}, Sporadic: []string{}},
		Allergies:       []string{},
		Recommendations: []string{},
	}
}
