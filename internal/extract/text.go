package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/sowilo/internal/apperr"
)

// Text extracts Markdown and plain-text files. A leading YAML front matter
// block supplies author, version, created and modified.
type Text struct{ extSet }

// NewText creates a Markdown / plain-text extractor.
func NewText() *Text { return &Text{extSet{"md", "markdown", "txt"}} }

// Extract implements Extractor.
func (t *Text) Extract(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Extraction(path, err)
	}
	fm, body := splitFrontmatter(data)

	res := &Result{Content: strings.TrimSpace(body)}
	for k, v := range fm {
		s := scalarString(v)
		if s == "" {
			continue
		}
		switch strings.ToLower(k) {
		case "author":
			res.Author = s
		case "version":
			res.Version = s
		case "created", "date":
			if ts, ok := parseFrontmatterTime(v); ok {
				res.Created = timePtr(ts)
			}
		case "modified", "updated":
			if ts, ok := parseFrontmatterTime(v); ok {
				res.Modified = timePtr(ts)
			}
		default:
			if res.Metadata == nil {
				res.Metadata = make(map[string]string)
			}
			res.Metadata[strings.ToLower(k)] = s
		}
	}
	return res, nil
}

// splitFrontmatter separates YAML front matter (between leading --- delimiters)
// from the body. Missing or invalid front matter leaves the whole input as body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	var fm map[string]any
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return nil, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return fm, body
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case []any, map[string]any:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func parseFrontmatterTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, strings.TrimSpace(x)); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}
