package search

import (
	"github.com/blevesearch/bleve/v2"
	_ "github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	_ "github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	_ "github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Field names of the indexed document.
const (
	fieldPath       = "path"
	fieldName       = "name"
	fieldNameText   = "name_text"
	fieldExtension  = "extension"
	fieldSize       = "size"
	fieldCreatedMS  = "created_ms"
	fieldModifiedMS = "modified_ms"
	fieldSHA256     = "sha256"
	fieldContent    = "content"
	fieldAuthor     = "author"
	fieldVersion    = "version"
	fieldMeta       = "meta"
)

const keywordLC = "keyword_lc"

// document is the shape stored in the inverted index.
type document struct {
	Path       string            `json:"path"`
	Name       string            `json:"name"`
	NameText   string            `json:"name_text"`
	Extension  string            `json:"extension"`
	Size       float64           `json:"size"`
	CreatedMS  float64           `json:"created_ms"`
	ModifiedMS float64           `json:"modified_ms"`
	SHA256     string            `json:"sha256"`
	Content    string            `json:"content"`
	Author     string            `json:"author"`
	Version    string            `json:"version"`
	Meta       map[string]string `json:"meta,omitempty"`
}

func buildIndexMapping() (mapping.IndexMapping, error) {
	m := bleve.NewIndexMapping()

	err := m.AddCustomAnalyzer(keywordLC, map[string]interface{}{
		"type":          "custom",
		"tokenizer":     "single",
		"token_filters": []string{"to_lower"},
	})
	if err != nil {
		return nil, err
	}

	keywordField := func(analyzer string) *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = analyzer
		f.Store = true
		f.IncludeTermVectors = false
		f.IncludeInAll = false
		return f
	}
	numericField := func() *mapping.FieldMapping {
		f := bleve.NewNumericFieldMapping()
		f.Store = true
		f.IncludeInAll = false
		return f
	}

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(fieldPath, keywordField(keywordLC))
	doc.AddFieldMappingsAt(fieldName, keywordField(keywordLC))
	doc.AddFieldMappingsAt(fieldExtension, keywordField(keywordLC))
	doc.AddFieldMappingsAt(fieldAuthor, keywordField(keywordLC))
	doc.AddFieldMappingsAt(fieldVersion, keywordField(keywordLC))
	doc.AddFieldMappingsAt(fieldSHA256, keywordField(keyword.Name))
	doc.AddFieldMappingsAt(fieldSize, numericField())
	doc.AddFieldMappingsAt(fieldCreatedMS, numericField())
	doc.AddFieldMappingsAt(fieldModifiedMS, numericField())

	nameText := bleve.NewTextFieldMapping()
	nameText.Analyzer = AnalyzerName
	nameText.Store = false
	doc.AddFieldMappingsAt(fieldNameText, nameText)

	content := bleve.NewTextFieldMapping()
	content.Analyzer = AnalyzerName
	content.Store = true
	content.IncludeTermVectors = true
	doc.AddFieldMappingsAt(fieldContent, content)

	meta := bleve.NewDocumentMapping()
	meta.Dynamic = true
	meta.DefaultAnalyzer = keywordLC
	doc.AddSubDocumentMapping(fieldMeta, meta)

	m.DefaultMapping = doc
	m.DefaultAnalyzer = AnalyzerName
	return m, nil
}
