package record

import "strings"

// Classifier resolves a category for free text. The default interview
// script declares a category per stage, so the classifier is only
// consulted for stages without a declared mapping; keeping it behind an
// interface lets the keyword heuristic be swapped out without touching
// the state machine or the synthesizer.
type Classifier interface {
	Classify(text string) Category
}

// KeywordClassifier is a substring-based heuristic over lowercased text.
// Tables are checked in a fixed order; the first hit wins and unmatched
// text falls back to identification.
type KeywordClassifier struct{}

var keywordTables = []struct {
	category Category
	keywords []string
}{
	{CategoryMedications, []string{
		"medicação", "medicacao", "medicamento", "remédio", "remedio",
		"alergia", "alérgic", "alergic", "comprimido", "dose",
	}},
	{CategoryFamily, []string{
		"minha mãe", "minha mae", "meu pai", "família", "familia",
		"materno", "materna", "paterno", "paterna", "avó", "avo", "irmã", "irma",
	}},
	{CategoryHabits, []string{
		"fumo", "fumar", "cigarro", "álcool", "alcool", "bebida",
		"exercício", "exercicio", "sono", "dormir", "alimentação", "alimentacao",
	}},
	{CategoryHistory, []string{
		"cirurgia", "internação", "internacao", "diagnóstico", "diagnostico",
		"tratamento", "desde", "começou", "comecou", "anos atrás", "anos atras",
	}},
	{CategoryComplaints, []string{
		"dor", "sintoma", "desconforto", "queixa", "sentindo", "mal-estar",
		"mal estar", "cansaço", "cansaco", "tontura", "náusea", "nausea", "febre",
	}},
}

// Classify scans the keyword tables in order and returns the first
// matching category, defaulting to identification.
func (KeywordClassifier) Classify(text string) Category {
	lower := strings.ToLower(text)
	for _, table := range keywordTables {
		for _, kw := range table.keywords {
			if strings.Contains(lower, kw) {
				return table.category
			}
		}
	}
	return CategoryIdentification
}
