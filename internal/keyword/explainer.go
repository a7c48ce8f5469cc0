// Package keyword explains matches by the keywords a job description shares with each
// resume. It never touches the vector index; scores and explanations are independent.
package keyword

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/hyperjump/kouho/internal/textnorm"
)

// DefaultMaxKeywords caps the matched keywords reported per resume.
const DefaultMaxKeywords = 10

const (
	summaryPrefix = "Matched based on overlapping skills/keywords: "
	summaryNone   = "No strong keyword overlap found."
)

// Document is a resume to explain against.
type Document struct {
	Filename string
	Text     string
}

// Explanation lists the keywords one resume shares with the job description, in order
// of first appearance in the job description.
type Explanation struct {
	Filename        string
	MatchedKeywords []string
}

// tokenizer is satisfied by bleve analyzers.
type tokenizer interface {
	Analyze(input []byte) analysis.TokenStream
}

// Explainer tokenises text with bleve's standard analyzer (unicode word boundaries,
// lowercase, English stop words) and drops the configured stop words.
type Explainer struct {
	analyzer    tokenizer
	stopwords   map[string]struct{}
	maxKeywords int
}

// NewExplainer creates an explainer. maxKeywords <= 0 uses DefaultMaxKeywords.
func NewExplainer(stopwords []string, maxKeywords int) (*Explainer, error) {
	analyzer, err := registry.NewCache().AnalyzerNamed(standard.Name)
	if err != nil {
		return nil, fmt.Errorf("load standard analyzer: %w", err)
	}
	if maxKeywords <= 0 {
		maxKeywords = DefaultMaxKeywords
	}
	stop := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stop[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return &Explainer{analyzer: analyzer, stopwords: stop, maxKeywords: maxKeywords}, nil
}

// Keywords returns the distinct keywords of text in order of first appearance.
func (e *Explainer) Keywords(text string) []string {
	cleaned := textnorm.Clean(text)
	if cleaned == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range e.analyzer.Analyze([]byte(cleaned)) {
		term := string(tok.Term)
		if term == "" {
			continue
		}
		if _, skip := e.stopwords[term]; skip {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}

// Explain returns one explanation per document, in input order.
func (e *Explainer) Explain(jobText string, docs []Document) []Explanation {
	jobKeywords := e.Keywords(jobText)
	out := make([]Explanation, 0, len(docs))
	for _, doc := range docs {
		out = append(out, Explanation{
			Filename:        doc.Filename,
			MatchedKeywords: e.overlap(jobKeywords, doc.Text),
		})
	}
	return out
}

func (e *Explainer) overlap(jobKeywords []string, resumeText string) []string {
	resume := make(map[string]struct{})
	for _, k := range e.Keywords(resumeText) {
		resume[k] = struct{}{}
	}
	matched := []string{}
	for _, k := range jobKeywords {
		if len(matched) == e.maxKeywords {
			break
		}
		if _, ok := resume[k]; ok {
			matched = append(matched, k)
		}
	}
	return matched
}

// Summary renders matched keywords as a sentence.
func Summary(keywords []string) string {
	if len(keywords) == 0 {
		return summaryNone
	}
	return summaryPrefix + strings.Join(keywords, ", ")
}
