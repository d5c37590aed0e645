// Package knowledge maintains the document base consulted during
// prompt composition: ingested texts, PDFs and web pages, plus a small
// term-overlap lookup used to pick relevant excerpts.
package knowledge

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mbarros/escuta/internal/storage"
)

// DocStore is the slice of the persistence layer the base needs.
// Implemented by storage.Store.
type DocStore interface {
	SaveDoc(d storage.KnowledgeDoc) error
	GetDoc(id string) (storage.KnowledgeDoc, error)
	ListDocs() ([]storage.KnowledgeDoc, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Base stores and retrieves knowledge documents.
type Base struct {
	store DocStore
	clock Clock
}

// New creates a Base over the given document store.
func New(store DocStore) *Base {
	return &Base{store: store, clock: realClock{}}
}

// NewWithClock creates a Base with a custom clock (for testing).
func NewWithClock(store DocStore, clock Clock) *Base {
	return &Base{store: store, clock: clock}
}

// IngestText stores a plain-text document and returns it.
func (b *Base) IngestText(title, content, source string) (storage.KnowledgeDoc, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return storage.KnowledgeDoc{}, fmt.Errorf("document content must not be empty")
	}
	if title == "" {
		title = firstWords(content, 8)
	}

	doc := storage.KnowledgeDoc{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   content,
		Source:    source,
		CreatedAt: b.clock.Now(),
	}
	if err := b.store.SaveDoc(doc); err != nil {
		return storage.KnowledgeDoc{}, fmt.Errorf("saving document: %w", err)
	}
	return doc, nil
}

// Get returns a stored document by id.
func (b *Base) Get(id string) (storage.KnowledgeDoc, error) {
	return b.store.GetDoc(id)
}

// List returns all stored documents, newest first.
func (b *Base) List() ([]storage.KnowledgeDoc, error) {
	return b.store.ListDocs()
}

func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
