package search

import (
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/registry"
)

// AnalyzerName is the registered name of the document text analyzer.
const AnalyzerName = "sowilo_text"

func init() {
	registry.RegisterAnalyzer(AnalyzerName, func(map[string]interface{}, *registry.Cache) (analysis.Analyzer, error) {
		return NewAnalyzer(), nil
	})
}

// NewAnalyzer builds the fixed pipeline used at index and query time:
// unicode word tokenizer, lowercase, stop words, stemming, diacritic folding.
func NewAnalyzer() analysis.Analyzer {
	return &analysis.DefaultAnalyzer{
		Tokenizer: unicode.NewUnicodeTokenizer(),
		TokenFilters: []analysis.TokenFilter{
			lowercase.NewLowerCaseFilter(),
			stop.NewStopTokensFilter(stopTokens),
			stemFilter{},
			foldFilter{},
		},
	}
}

var defaultAnalyzer = NewAnalyzer()

// Analyze runs text through the document analyzer and returns the terms.
func Analyze(text string) []string {
	stream := defaultAnalyzer.Analyze([]byte(text))
	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		out = append(out, string(tok.Term))
	}
	return out
}

type stemFilter struct{}

func (stemFilter) Filter(in analysis.TokenStream) analysis.TokenStream {
	for _, tok := range in {
		if tok.KeyWord {
			continue
		}
		tok.Term = []byte(Stem(string(tok.Term)))
	}
	return in
}

type foldFilter struct{}

func (foldFilter) Filter(in analysis.TokenStream) analysis.TokenStream {
	for _, tok := range in {
		tok.Term = []byte(Fold(string(tok.Term)))
	}
	return in
}
