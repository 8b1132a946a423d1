// Package search is a small in-memory full-text index over feature requests.
// It backs the free-text filter of the feature list and the "similar
// requests" hint shown before filing a new one.
//
// Text is folded before indexing: lowercased, with diacritics stripped, so
// "für" and "fur" are the same term. A document scores by Jaccard similarity
// between the query terms Q and its own terms D, |Q ∩ D| / |Q ∪ D|, where a
// query term of at least three runes also hits any document term it
// prefixes ("exp" finds "Export"). Equal scores keep insertion order.
//
// An Index is immutable once built and safe for concurrent use.
package search

import (
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Document is one searchable feature.
type Document struct {
	ID   snowflake.ID
	Text string
}

// Result is a matched document with its similarity score.
type Result struct {
	ID    snowflake.ID
	Score float64
}

// Index answers free-text queries.
type Index interface {
	// Search returns every document with a positive score, best first.
	Search(query string) []Result
	// TopK returns at most k results of Search.
	TopK(query string, k int) []Result
}

// Option configures New.
type Option func(*options)

type options struct {
	stopwords map[string]struct{}
	minScore  float64
}

// WithStopwords drops the given words from both documents and queries.
func WithStopwords(words []string) Option {
	return func(o *options) {
		for _, w := range words {
			w = fold(strings.TrimSpace(w))
			if w == "" {
				continue
			}
			if o.stopwords == nil {
				o.stopwords = make(map[string]struct{}, len(words))
			}
			o.stopwords[w] = struct{}{}
		}
	}
}

// WithMinScore discards results scoring below s. Values outside [0,1] are
// ignored.
func WithMinScore(s float64) Option {
	return func(o *options) {
		if s >= 0 && s <= 1 {
			o.minScore = s
		}
	}
}

const minPrefixRunes = 3

type index struct {
	opts     options
	ids      []snowflake.ID
	sizes    []int            // distinct terms per document
	vocab    []string         // sorted, for prefix scans
	postings map[string][]int // term -> document positions, ascending
}

// New builds an Index over docs. Documents with no indexable words are
// skipped.
func New(docs []Document, opts ...Option) Index {
	idx := &index{postings: make(map[string][]int)}
	for _, o := range opts {
		o(&idx.opts)
	}
	for _, d := range docs {
		terms := idx.terms(d.Text)
		if len(terms) == 0 {
			continue
		}
		pos := len(idx.ids)
		idx.ids = append(idx.ids, d.ID)
		idx.sizes = append(idx.sizes, len(terms))
		for _, t := range terms {
			if _, seen := idx.postings[t]; !seen {
				idx.vocab = append(idx.vocab, t)
			}
			idx.postings[t] = append(idx.postings[t], pos)
		}
	}
	slices.Sort(idx.vocab)
	return idx
}

func (idx *index) Search(q string) []Result {
	if len(idx.ids) == 0 {
		return nil
	}
	qTerms := idx.terms(q)
	if len(qTerms) == 0 {
		return nil
	}

	hits := make(map[int]int)
	for _, t := range qTerms {
		for _, pos := range idx.matching(t) {
			hits[pos]++
		}
	}

	out := make([]Result, 0, len(hits))
	positions := make([]int, 0, len(hits))
	for pos, over := range hits {
		score := float64(over) / float64(len(qTerms)+idx.sizes[pos]-over)
		if score < idx.opts.minScore {
			continue
		}
		positions = append(positions, pos)
		out = append(out, Result{ID: idx.ids[pos], Score: score})
	}
	if len(out) == 0 {
		return nil
	}
	sort.Sort(byScore{out, positions})
	return out
}

// TopK returns up to k best-matching documents. k <= 0 defaults to 3.
func (idx *index) TopK(q string, k int) []Result {
	if k <= 0 {
		k = 3
	}
	res := idx.Search(q)
	return res[:min(k, len(res))]
}

// matching returns the positions of documents holding term t, or a term t
// prefixes. Each position appears once.
func (idx *index) matching(t string) []int {
	if utf8.RuneCountInString(t) < minPrefixRunes {
		return idx.postings[t]
	}
	var out []int
	for i := sort.SearchStrings(idx.vocab, t); i < len(idx.vocab) && strings.HasPrefix(idx.vocab[i], t); i++ {
		out = append(out, idx.postings[idx.vocab[i]]...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// terms returns the distinct folded words of s, minus stopwords, in order of
// first appearance.
func (idx *index) terms(s string) []string {
	words := wordRE.FindAllString(fold(s), -1)
	seen := make(map[string]struct{}, len(words))
	out := words[:0]
	for _, w := range words {
		if _, stop := idx.opts.stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// fold lowercases s and strips combining marks.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// byScore orders results best first; equal scores keep document order.
type byScore struct {
	res []Result
	pos []int
}

func (b byScore) Len() int { return len(b.res) }
func (b byScore) Less(i, j int) bool {
	if b.res[i].Score != b.res[j].Score {
		return b.res[i].Score > b.res[j].Score
	}
	return b.pos[i] < b.pos[j]
}
func (b byScore) Swap(i, j int) {
	b.res[i], b.res[j] = b.res[j], b.res[i]
	b.pos[i], b.pos[j] = b.pos[j], b.pos[i]
}
