package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/starford/sowilo/internal/apperr"
)

const (
	docxBody = "word/document.xml"
	docxCore = "docProps/core.xml"
)

// DOCX extracts paragraph text and core properties from Word documents.
type DOCX struct{ extSet }

// NewDOCX creates a DOCX extractor.
func NewDOCX() *DOCX { return &DOCX{extSet{"docx"}} }

// Extract implements Extractor. The context is checked after every paragraph.
func (d *DOCX) Extract(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, apperr.Extraction(path, err)
	}
	defer zr.Close()

	var body, core *zip.File
	for _, f := range zr.File {
		switch f.Name {
		case docxBody:
			body = f
		case docxCore:
			core = f
		}
	}
	if body == nil {
		return nil, apperr.Extraction(path, errors.New("docx: missing "+docxBody))
	}

	content, err := readDocxBody(ctx, body)
	if err != nil {
		return nil, apperr.Extraction(path, err)
	}
	res := &Result{Content: content}
	if core != nil {
		// Broken core properties do not invalidate the document text.
		_ = readDocxCore(core, res)
	}
	return res, nil
}

func readDocxBody(ctx context.Context, f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		b      strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("docx: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
				if err := ctx.Err(); err != nil {
					return "", err
				}
			}
		case xml.CharData:
			if inText {
				b.Write(el)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

type docxCoreProps struct {
	Creator  string `xml:"creator"`
	Revision string `xml:"revision"`
	Created  string `xml:"created"`
	Modified string `xml:"modified"`
	Title    string `xml:"title"`
}

func readDocxCore(f *zip.File, res *Result) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	var props docxCoreProps
	if err := xml.NewDecoder(rc).Decode(&props); err != nil {
		return err
	}
	res.Author = strings.TrimSpace(props.Creator)
	res.Version = strings.TrimSpace(props.Revision)
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(props.Created)); err == nil {
		res.Created = timePtr(t)
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(props.Modified)); err == nil {
		res.Modified = timePtr(t)
	}
	if title := strings.TrimSpace(props.Title); title != "" {
		res.Metadata = map[string]string{"title": title}
	}
	return nil
}
