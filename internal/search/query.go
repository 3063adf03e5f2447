package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	bsearch "github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/highlight/highlighter/html"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/models"
)

// Facet names reported in SearchResult.Facets.
const (
	FacetExtension = "extension"
	FacetAuthor    = "author"
)

// Query runs q and returns one page of ranked hits plus facet counts.
func (e *Engine) Query(ctx context.Context, q models.UserQuery) (models.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return models.SearchResult{}, fmt.Errorf("search: %w: %v", apperr.ErrInvalidInput, err)
	}
	req := e.buildRequest(q)

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return models.SearchResult{}, apperr.ErrClosed
	}
	res, err := e.idx.SearchInContext(ctx, req)
	if err != nil {
		if apperr.IsCanceled(err) {
			return models.SearchResult{}, err
		}
		return models.SearchResult{}, fmt.Errorf("search: query: %w", err)
	}

	out := models.SearchResult{
		Total:  res.Total,
		Hits:   make([]models.SearchHit, 0, len(res.Hits)),
		Facets: make(map[string]map[string]int, len(res.Facets)),
	}
	for _, h := range res.Hits {
		out.Hits = append(out.Hits, e.toHit(h))
	}
	for name, f := range res.Facets {
		counts := make(map[string]int)
		if f.Terms != nil {
			for _, t := range f.Terms.Terms() {
				counts[t.Term] = t.Count
			}
		}
		out.Facets[name] = counts
	}
	return out, nil
}

func (e *Engine) buildRequest(q models.UserQuery) *bleve.SearchRequest {
	req := bleve.NewSearchRequestOptions(buildQuery(q), q.PageSize, q.Offset(), false)
	req.Fields = []string{"*"}
	// Only fields with matches are highlighted; content matched solely by name
	// therefore gets the leading-text fallback.
	req.Highlight = bleve.NewHighlightWithStyle(html.Name)
	req.SortBy(sortOrder(q.Sort))
	req.AddFacet(FacetExtension, bleve.NewFacetRequest(fieldExtension, e.cfg.FacetSize))
	req.AddFacet(FacetAuthor, bleve.NewFacetRequest(fieldAuthor, e.cfg.FacetSize))
	return req
}

// buildQuery ANDs the free-text clause, one clause per filter and the date range.
func buildQuery(q models.UserQuery) query.Query {
	clauses := []query.Query{freeTextQuery(q.FreeText, q.UseFuzzy)}
	for key, value := range q.Filters.All() {
		if fq := filterQuery(key, value); fq != nil {
			clauses = append(clauses, fq)
		}
	}
	if rq := rangeQuery(q.FromUTC, q.ToUTC); rq != nil {
		clauses = append(clauses, rq)
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	return bleve.NewConjunctionQuery(clauses...)
}

// freeTextQuery ORs every analyzed term over content and name. With fuzzy set,
// each term matches within edit distance 1.
func freeTextQuery(text string, fuzzy bool) query.Query {
	if strings.TrimSpace(text) == "" {
		return bleve.NewMatchAllQuery()
	}
	terms := Analyze(text)
	if len(terms) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	var should []query.Query
	for _, term := range terms {
		for _, field := range []string{fieldContent, fieldNameText} {
			should = append(should, termQuery(term, field, fuzzy))
		}
	}
	return bleve.NewDisjunctionQuery(should...)
}

func termQuery(term, field string, fuzzy bool) query.Query {
	if fuzzy {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetField(field)
		fq.SetFuzziness(1)
		return fq
	}
	tq := bleve.NewTermQuery(term)
	tq.SetField(field)
	return tq
}

func filterQuery(key, value string) query.Query {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	lower := strings.ToLower(value)
	switch key {
	case "type", "ext", "extension":
		return fieldTerm(fieldExtension, strings.TrimPrefix(lower, "."))
	case "author":
		return fieldTerm(fieldAuthor, lower)
	case "version":
		return fieldTerm(fieldVersion, lower)
	case "checksum", "sha256":
		return fieldTerm(fieldSHA256, lower)
	case "path":
		pq := bleve.NewPrefixQuery(lower)
		pq.SetField(fieldPath)
		return pq
	case "name":
		mq := bleve.NewMatchQuery(spaceSeparators(value))
		mq.SetField(fieldNameText)
		mq.SetOperator(query.MatchQueryOperatorAnd)
		return mq
	default:
		return fieldTerm(fieldMeta+"."+key, lower)
	}
}

func fieldTerm(field, term string) query.Query {
	tq := bleve.NewTermQuery(term)
	tq.SetField(field)
	return tq
}

func rangeQuery(from, to *time.Time) query.Query {
	if from == nil && to == nil {
		return nil
	}
	inclusive := true
	var lo, hi *float64
	if from != nil {
		v := float64(from.UnixMilli())
		lo = &v
	}
	if to != nil {
		v := float64(to.UnixMilli())
		hi = &v
	}
	rq := bleve.NewNumericRangeInclusiveQuery(lo, hi, &inclusive, &inclusive)
	rq.SetField(fieldModifiedMS)
	return rq
}

func sortOrder(sort string) []string {
	switch sort {
	case models.SortModified:
		return []string{fieldModifiedMS, "_id"}
	case models.SortModifiedDesc:
		return []string{"-" + fieldModifiedMS, "_id"}
	case models.SortName:
		return []string{fieldName, "_id"}
	case models.SortSize:
		return []string{fieldSize, "_id"}
	case models.SortSizeDesc:
		return []string{"-" + fieldSize, "_id"}
	default:
		return []string{"-_score", "_id"}
	}
}

func (e *Engine) toHit(h *bsearch.DocumentMatch) models.SearchHit {
	hit := models.SearchHit{
		ID:          models.FileIdentity(h.ID),
		Path:        stringField(h.Fields, fieldPath),
		Name:        stringField(h.Fields, fieldName),
		Extension:   stringField(h.Fields, fieldExtension),
		Size:        int64(numberField(h.Fields, fieldSize)),
		CreatedUTC:  time.UnixMilli(int64(numberField(h.Fields, fieldCreatedMS))).UTC(),
		ModifiedUTC: time.UnixMilli(int64(numberField(h.Fields, fieldModifiedMS))).UTC(),
		SHA256:      stringField(h.Fields, fieldSHA256),
		Author:      stringField(h.Fields, fieldAuthor),
		Version:     stringField(h.Fields, fieldVersion),
		Score:       h.Score,
	}
	prefix := fieldMeta + "."
	for k, v := range h.Fields {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if hit.Metadata == nil {
			hit.Metadata = make(map[string]string)
		}
		hit.Metadata[strings.TrimPrefix(k, prefix)] = fmt.Sprint(v)
	}
	hit.Snippet = snippet(h.Fragments[fieldContent], stringField(h.Fields, fieldContent), e.cfg.SnippetLength)
	return hit
}
