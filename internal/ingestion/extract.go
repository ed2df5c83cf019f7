package ingestion

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Supported document formats.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatHTML = "html"
	FormatText = "text"
)

// Document is plain text extracted from an uploaded file.
type Document struct {
	Text      string `json:"text"`
	PageCount int    `json:"page_count"`
	Format    string `json:"format"`
	Hash      string `json:"hash"` // SHA256 hex digest of Text
}

var (
	docxTagRe   = regexp.MustCompile(`<[^>]+>`)
	docxParaEnd = strings.NewReplacer("</w:p>", "\n", "<w:tab/>", "\t", "<w:br/>", "\n")
)

// blockSelector lists HTML elements that end a line of text.
const blockSelector = "p, div, section, article, header, footer, li, tr, h1, h2, h3, h4, h5, h6, pre, blockquote, dt, dd"

// FormatForFilename maps a filename extension to a document format.
func FormatForFilename(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".txt", ".md":
		return FormatText, nil
	default:
		return "", &UnsupportedFormatError{Filename: filename, Ext: ext}
	}
}

// Extract reads a resume or job description file and returns its normalized
// text. PageCount is the PDF page count and 1 for every other format.
func Extract(filename string, data []byte) (*Document, error) {
	format, err := FormatForFilename(filename)
	if err != nil {
		return nil, err
	}

	var raw string
	pages := 1
	switch format {
	case FormatPDF:
		raw, pages, err = ExtractPDF(data)
	case FormatDOCX:
		raw, err = ExtractDOCX(data)
	case FormatHTML:
		raw, err = HTMLToText(string(data))
	default:
		if !utf8.Valid(data) {
			return nil, &ExtractionError{Format: format, Message: "file is not valid UTF-8 text"}
		}
		raw = string(data)
	}
	if err != nil {
		return nil, err
	}

	text := NormalizeResumeText(raw)
	return &Document{
		Text:      text,
		PageCount: pages,
		Format:    format,
		Hash:      computeHash(text),
	}, nil
}

// ExtractFile reads path from disk and extracts it.
func ExtractFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %w", err)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Extract(filepath.Base(path), data)
}

// ExtractPDF returns the plain text of every readable page and the page count.
func ExtractPDF(data []byte) (string, int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, &ExtractionError{Format: FormatPDF, Message: "failed to open pdf", Cause: err}
	}

	numPages := r.NumPage()
	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", numPages, &ExtractionError{
				Format:  FormatPDF,
				Message: fmt.Sprintf("failed to read page %d", i),
				Cause:   err,
			}
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), numPages, nil
}

// ExtractDOCX returns the paragraph text of a .docx document, one paragraph
// per line.
func ExtractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Format: FormatDOCX, Message: "failed to parse docx", Cause: err}
	}
	defer func() { _ = doc.Close() }()

	xml := doc.Editable().GetContent()
	xml = docxParaEnd.Replace(xml)
	text := docxTagRe.ReplaceAllString(xml, "")
	return html.UnescapeString(text), nil
}

// HTMLToText converts an HTML fragment or page into text. Block elements end
// a line and list items become "- " bullets.
func HTMLToText(content string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", &ExtractionError{Format: FormatHTML, Message: "failed to parse HTML", Cause: err}
	}

	doc.Find("script, style, noscript, nav").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("li").PrependHtml("- ")
	doc.Find(blockSelector).AppendHtml("\n")

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	return cleanWhitespace(root.Text()), nil
}

// cleanWhitespace trims every line and drops the empty ones.
func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

// computeHash computes SHA256 hash of content and returns hex string
func computeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
