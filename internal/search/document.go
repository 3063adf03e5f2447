package search

import (
	"strings"

	"github.com/starford/sowilo/internal/models"
)

var nameSeparators = strings.NewReplacer("_", " ", "-", " ", ".", " ")

func spaceSeparators(name string) string { return nameSeparators.Replace(name) }

func toDocument(doc models.IndexDocument, contentCap int) document {
	d := document{
		Path:       doc.Path,
		Name:       doc.Name,
		NameText:   spaceSeparators(doc.Name),
		Extension:  doc.Extension,
		Size:       float64(doc.Size),
		CreatedMS:  float64(doc.CreatedUTC.UnixMilli()),
		ModifiedMS: float64(doc.ModifiedUTC.UnixMilli()),
		SHA256:     doc.SHA256,
		Content:    truncate(doc.Content, contentCap),
		Author:     doc.Author,
		Version:    doc.Version,
	}
	if len(doc.Metadata) > 0 {
		d.Meta = make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			d.Meta[strings.ToLower(k)] = v
		}
	}
	return d
}

// truncate returns at most n characters of s.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// snippet prefers the best highlighted fragment and falls back to the leading
// characters of the stored content. It returns nil when there is nothing to show.
func snippet(fragments []string, content string, n int) *string {
	for _, f := range fragments {
		if strings.TrimSpace(f) != "" {
			return &f
		}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	s := truncate(content, n)
	return &s
}

func stringField(fields map[string]interface{}, name string) string {
	switch v := fields[name].(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

func numberField(fields map[string]interface{}, name string) float64 {
	switch v := fields[name].(type) {
	case float64:
		return v
	case []interface{}:
		if len(v) > 0 {
			if f, ok := v[0].(float64); ok {
				return f
			}
		}
	}
	return 0
}
