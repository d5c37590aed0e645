package record

import "testing"

func TestAppendPreservesInsertionOrder(t *testing.T) {
	s := NewStore()
	s.Append("q1", "dor de cabeça", CategoryComplaints)
	s.Append("q2", "dor nas costas", CategoryComplaints)
	s.Append("q3", "Maria", CategoryIdentification)

	complaints := s.ByCategory(CategoryComplaints)
	if len(complaints) != 2 {
		t.Fatalf("expected 2 complaint records, got %d", len(complaints))
	}
	if complaints[0].Answer != "dor de cabeça" || complaints[1].Answer != "dor nas costas" {
		t.Errorf("insertion order not preserved: %+v", complaints)
	}
}

func TestAppendNeverOverwrites(t *testing.T) {
	s := NewStore()
	s.Append("qual a queixa?", "enxaqueca", CategoryComplaints)
	s.Append("qual a queixa?", "insônia", CategoryComplaints)

	if s.Len() != 2 {
		t.Fatalf("expected 2 records for repeated question, got %d", s.Len())
	}
}

func TestByCategoryEmpty(t *testing.T) {
	s := NewStore()
	if got := s.ByCategory(CategoryFamily); got != nil {
		t.Errorf("expected nil for empty category, got %v", got)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Append("q", "a", CategoryHabits)

	all := s.All()
	all[0].Answer = "mutated"

	if s.All()[0].Answer != "a" {
		t.Error("All must return a copy, store was mutated through it")
	}
}

func TestKeywordClassifier(t *testing.T) {
	cases := []struct {
		text string
		want Category
	}{
		{"sinto uma dor forte no peito", CategoryComplaints},
		{"tomo remédio para pressão todo dia", CategoryMedications},
		{"minha mãe teve diabetes", CategoryFamily},
		{"parei de fumar há dois anos", CategoryHabits},
		{"fiz uma cirurgia no joelho", CategoryHistory},
		{"me chamo João", CategoryIdentification},
	}

	var c KeywordClassifier
	for _, tc := range cases {
		if got := c.Classify(tc.text); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}
