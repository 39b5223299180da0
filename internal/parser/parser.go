package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"
)

var (
	// ErrUnsupportedType reports a MIME type no extractor understands.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrEmptyDocument reports a document whose extracted text is empty or
	// whitespace only. A scanned or image-based file typically causes this.
	ErrEmptyDocument = errors.New("no text extracted from document")
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeODS  = "application/vnd.oasis.opendocument.spreadsheet"
)

// Extract converts an uploaded document to plain text based on its MIME
// type. Unknown types fail with ErrUnsupportedType.
func Extract(data []byte, mimeType string) (string, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	// Strip parameters like "; charset=utf-8".
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch {
	case mt == mimePDF:
		return extractPDF(data)
	case mt == mimeDOCX, strings.Contains(mt, "word"), strings.Contains(mt, "docx"):
		return extractDOCX(data)
	case mt == mimePPTX:
		return extractPPTX(data)
	case mt == mimeXLSX:
		return extractXLSX(data)
	case mt == mimeODS:
		return extractODS(data)
	case mt == "text/markdown":
		return extractMarkdown(data)
	case strings.HasPrefix(mt, "text/"):
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var text strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		text.WriteString(pageText)
		text.WriteString("\n\n")
	}
	return text.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	var text strings.Builder
	for _, paragraph := range strings.Split(content, "</w:p>") {
		line := strings.TrimSpace(extractTagText(paragraph, "<w:t", "</w:t>"))
		if line == "" {
			continue
		}
		text.WriteString(line)
		text.WriteString("\n")
	}
	return text.String(), nil
}

func extractPPTX(data []byte) (string, error) {
	f, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		rc.Close()
		if err != nil {
			continue
		}
		text.WriteString(extractTagText(buf.String(), "<a:t", "</a:t>"))
		text.WriteString("\n\n")
	}
	return text.String(), nil
}

func extractXLSX(data []byte) (string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		text.WriteString("\n")
	}
	return text.String(), nil
}

func extractODS(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		text.WriteString("\n")
	}
	return text.String(), nil
}

// extractMarkdown walks the goldmark AST and keeps only the text content,
// dropping markup so chunk boundaries never split inside syntax.
func extractMarkdown(data []byte) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(gmtext.NewReader(data))

	var text strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			text.Write(t.Segment.Value(data))
			if t.SoftLineBreak() || t.HardLineBreak() {
				text.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		if !entering && n.Type() == ast.TypeBlock {
			text.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text.String()), nil
}

// extractTagText pulls the character data out of every occurrence of an XML
// tag, e.g. openTag="<a:t" for DrawingML runs. Attributes on the open tag
// are tolerated.
func extractTagText(xmlContent, openTag, closeTag string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, openTag)
	for i, part := range parts {
		if i == 0 {
			continue
		}
		gt := strings.IndexByte(part, '>')
		if gt < 0 {
			continue
		}
		rest := part[gt+1:]
		end := strings.Index(rest, closeTag)
		if end >= 0 {
			text.WriteString(rest[:end] + " ")
		}
	}
	return text.String()
}
