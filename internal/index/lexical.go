package index

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// LexicalIndex ranks documents by term frequency against a tokenized query,
// scoped to a tenant. The only implementation is the in-memory inverted
// index below, used with every storage backend.
type LexicalIndex interface {
	Upsert(ctx context.Context, tenantID, id, text string) error
	Delete(ctx context.Context, tenantID, id string) error
	Query(ctx context.Context, tenantID, query string, topK int) ([]ScoredID, error)
}

// InvertedIndex is a plain token -> postings map per tenant, scored by a
// TF-based formula. It favors documents containing more of the distinct
// query terms, then higher term frequency within that set.
type InvertedIndex struct {
	mu sync.RWMutex
	// postings[tenantID][token][id] = term frequency within that document.
	postings map[string]map[string]map[string]int
	// docLen[tenantID][id] = token count, used to normalize TF.
	docLen map[string]map[string]int
}

// NewInvertedIndex returns an empty index.
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{
		postings: make(map[string]map[string]map[string]int),
		docLen:   make(map[string]map[string]int),
	}
}

func (idx *InvertedIndex) Upsert(ctx context.Context, tenantID, id, text string) error {
	tokens := tokenize(text)
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(tenantID, id)

	tenantPostings, ok := idx.postings[tenantID]
	if !ok {
		tenantPostings = make(map[string]map[string]int)
		idx.postings[tenantID] = tenantPostings
	}
	for token, count := range counts {
		docs, ok := tenantPostings[token]
		if !ok {
			docs = make(map[string]int)
			tenantPostings[token] = docs
		}
		docs[id] = count
	}

	tenantLens, ok := idx.docLen[tenantID]
	if !ok {
		tenantLens = make(map[string]int)
		idx.docLen[tenantID] = tenantLens
	}
	tenantLens[id] = len(tokens)

	return nil
}

func (idx *InvertedIndex) Delete(ctx context.Context, tenantID, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(tenantID, id)
	return nil
}

// removeLocked assumes idx.mu is already held.
func (idx *InvertedIndex) removeLocked(tenantID, id string) {
	for _, docs := range idx.postings[tenantID] {
		delete(docs, id)
	}
	delete(idx.docLen[tenantID], id)
}

func (idx *InvertedIndex) Query(ctx context.Context, tenantID, query string, topK int) ([]ScoredID, error) {
	if topK <= 0 {
		topK = 10
	}
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	idx.mu.RLock()
	tenantPostings := idx.postings[tenantID]
	tenantLens := idx.docLen[tenantID]

	type acc struct {
		distinctTerms int
		tfSum         float64
	}
	scores := make(map[string]*acc)
	for _, token := range tokens {
		docs, ok := tenantPostings[token]
		if !ok {
			continue
		}
		for id, count := range docs {
			length := tenantLens[id]
			if length == 0 {
				length = 1
			}
			a, ok := scores[id]
			if !ok {
				a = &acc{}
				scores[id] = a
			}
			a.distinctTerms++
			a.tfSum += float64(count) / float64(length)
		}
	}
	idx.mu.RUnlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	out := make([]ScoredID, 0, len(scores))
	for id, a := range scores {
		coverage := float64(a.distinctTerms) / float64(len(tokens))
		score := coverage + math.Log1p(a.tfSum)
		out = append(out, ScoredID{ID: id, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "to": {}, "of": {}, "in": {}, "on": {},
	"for": {}, "with": {}, "at": {}, "by": {}, "from": {}, "this": {}, "that": {}, "it": {},
	"as": {}, "i": {}, "you": {}, "we": {}, "they": {},
}

func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		word := strings.ToLower(cur.String())
		cur.Reset()
		if len(word) < 2 {
			return
		}
		if _, stop := stopWords[word]; stop {
			return
		}
		tokens = append(tokens, word)
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
