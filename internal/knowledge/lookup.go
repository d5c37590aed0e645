package knowledge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mbarros/escuta/internal/profile"
	"github.com/mbarros/escuta/internal/storage"
)

// stopwords are ignored during term matching.
var stopwords = map[string]bool{
	"a": true, "o": true, "e": true, "de": true, "da": true, "do": true,
	"em": true, "um": true, "uma": true, "que": true, "com": true,
	"para": true, "por": true, "na": true, "no": true, "as": true,
	"os": true, "se": true, "ao": true, "dos": true, "das": true,
	"mais": true, "como": true, "mas": true, "foi": true, "ele": true,
	"ela": true, "seu": true, "sua": true, "ou": true, "ser": true,
	"quando": true, "muito": true, "ja": true, "esta": true, "eu": true,
	"tambem": true, "so": true, "pelo": true, "pela": true, "ate": true,
	"isso": true, "ha": true, "nao": true, "sim": true,
}

// ScoredDoc is a document with its lookup score.
type ScoredDoc struct {
	Doc   storage.KnowledgeDoc
	Score float64
}

// Lookup ranks stored documents by term overlap with the query. Terms
// are lowercased and accent-folded before comparison; documents with no
// overlapping term are excluded.
func (b *Base) Lookup(query string, limit int) ([]ScoredDoc, error) {
	terms := termSet(query)
	if len(terms) == 0 {
		return nil, nil
	}

	docs, err := b.store.ListDocs()
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	var scored []ScoredDoc
	for _, doc := range docs {
		docTerms := termSet(doc.Title + " " + doc.Content)
		overlap := 0
		for term := range terms {
			if docTerms[term] {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		scored = append(scored, ScoredDoc{
			Doc:   doc,
			Score: float64(overlap) / float64(len(terms)),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

const (
	contextDocLimit     = 3
	contextExcerptChars = 600
)

// ContextBlock renders the best-matching documents as a text block for
// prompt composition. Empty when nothing matches.
func (b *Base) ContextBlock(query string) (string, error) {
	scored, err := b.Lookup(query, contextDocLimit)
	if err != nil {
		return "", err
	}
	if len(scored) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for i, s := range scored {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(s.Doc.Title)
		sb.WriteString(": ")
		sb.WriteString(excerpt(s.Doc.Content, contextExcerptChars))
	}
	return sb.String(), nil
}

func termSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range strings.Fields(profile.Normalize(text)) {
		if len(word) < 3 || stopwords[word] {
			continue
		}
		set[word] = true
	}
	return set
}

func excerpt(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	cut := text[:maxChars]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}
