package record

import "sync"

// Category classifies a respondent answer into one of the anamnesis axes.
type Category string

const (
	CategoryIdentification Category = "identification"
	CategoryComplaints     Category = "complaints"
	CategoryHistory        Category = "history"
	CategoryFamily         Category = "family"
	CategoryHabits         Category = "habits"
	CategoryMedications    Category = "medications"
)

// Categories lists all categories in the fixed rendering order used by
// offline report synthesis.
func Categories() []Category {
	return []Category{
		CategoryIdentification,
		CategoryComplaints,
		CategoryHistory,
		CategoryFamily,
		CategoryHabits,
		CategoryMedications,
	}
}

// Record is one question/answer pair captured during an interview,
// tagged with the category resolved from the active stage.
type Record struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Category Category `json:"category"`
}

// Store is an append-only, insertion-ordered collection of records for
// a single interview session. Answers to the same category accumulate;
// nothing is ever overwritten or removed.
type Store struct {
	mu      sync.RWMutex
	records []Record
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Append records an answer and returns the stored record.
func (s *Store) Append(question, answer string, category Category) Record {
	r := Record{Question: question, Answer: answer, Category: category}
	s.mu.Lock()
	s.records = append(s.records, r)
	s.mu.Unlock()
	return r
}

// ByCategory returns all records of the given category in insertion order.
func (s *Store) ByCategory(category Category) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, r := range s.records {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// All returns a copy of every record in insertion order.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len reports how many records have been appended.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
