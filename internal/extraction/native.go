package extraction

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kapmahc/epub"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeEPUB = "application/epub+zip"
	mimeRTF  = "application/rtf"
	mimeZIP  = "application/zip"
)

var (
	scriptRe     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	blockRe      = regexp.MustCompile(`(?i)</(div|p|h[1-6]|li|tr|br|hr)[^>]*>`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	spaceRe      = regexp.MustCompile(`[ \t]+`)
	newlineRe    = regexp.MustCompile(`\n{3,}`)
	rtfGroupRe   = regexp.MustCompile(`\{[^{}]*\}`)
	rtfControlRe = regexp.MustCompile(`\\[a-z]+\d*\s?`)

	htmlEntities = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
	)
)

var extensionMimeTypes = map[string]string{
	"pdf":  mimePDF,
	"txt":  "text/plain",
	"text": "text/plain",
	"log":  "text/plain",
	"md":   "text/markdown",
	"html": "text/html",
	"htm":  "text/html",
	"xml":  "text/xml",
	"csv":  "text/csv",
	"docx": mimeDOCX,
	"xlsx": mimeXLSX,
	"rtf":  mimeRTF,
	"epub": mimeEPUB,
	"json": "application/json",
}

// NativeEngine parses common document formats in-process with pure Go
// libraries. Formats it does not understand, images included, yield no text.
type NativeEngine struct{}

// NewNativeEngine creates the embedded engine
func NewNativeEngine() *NativeEngine {
	return &NativeEngine{}
}

// Name returns the engine name
func (e *NativeEngine) Name() string {
	return string(EngineTypeNative)
}

// Close is a no-op
func (e *NativeEngine) Close() error {
	return nil
}

// Parse extracts text from a document based on its detected MIME type
func (e *NativeEngine) Parse(ctx context.Context, doc Document) (string, error) {
	mimeType := DetectMimeType(doc.Name, doc.Data)

	switch mimeType {
	case mimePDF:
		return e.extractFromPDF(doc.Data)
	case mimeDOCX:
		return e.extractFromDOCX(doc.Data)
	case mimeXLSX:
		return e.extractFromXLSX(doc.Data)
	case "text/html":
		return extractFromHTML(doc.Data), nil
	case "text/csv":
		return extractFromCSV(doc.Data), nil
	case mimeRTF:
		return extractFromRTF(doc.Data), nil
	case mimeEPUB:
		return e.extractFromEPUB(doc.Data)
	case "text/plain", "text/markdown", "text/xml", "application/json":
		return string(doc.Data), nil
	default:
		log.Debug().
			Str("file", doc.Name).
			Str("mime_type", mimeType).
			Msg("No native parser for document type")
		return "", nil
	}
}

// DetectMimeType resolves a document's MIME type from its file extension,
// falling back to content sniffing.
func DetectMimeType(name string, data []byte) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if m, ok := extensionMimeTypes[ext]; ok {
		return m
	}

	sniffed, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "application/octet-stream"
	}

	if sniffed == mimeZIP {
		return detectZipContainer(data)
	}
	return sniffed
}

// detectZipContainer tells OOXML and EPUB packages apart from plain archives.
func detectZipContainer(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return mimeZIP
	}

	for _, f := range zr.File {
		switch {
		case f.Name == "mimetype":
			return mimeEPUB
		case strings.HasPrefix(f.Name, "word/"):
			return mimeDOCX
		case strings.HasPrefix(f.Name, "xl/"):
			return mimeXLSX
		}
	}
	return mimeZIP
}

// extractFromPDF returns the PDF text layer. Only a layer that is really a
// binary content stream is dropped.
func (e *NativeEngine) extractFromPDF(data []byte) (string, error) {
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}

	var text strings.Builder
	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text.WriteString(content)
		text.WriteString("\n\n")
	}

	result := strings.TrimSpace(text.String())
	if LooksBinary(result) {
		log.Warn().
			Int("original_length", len(result)).
			Msg("PDF text layer is a binary stream, treating as no text")
		return "", nil
	}
	return result, nil
}

func (e *NativeEngine) extractFromDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read DOCX: %w", err)
	}
	defer doc.Close()

	return strings.TrimSpace(doc.Editable().GetContent()), nil
}

func (e *NativeEngine) extractFromXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to read XLSX: %w", err)
	}
	defer f.Close()

	var text strings.Builder
	for _, sheet := range f.GetSheetList() {
		fmt.Fprintf(&text, "=== Sheet: %s ===\n", sheet)

		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}

		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t"))
			text.WriteString("\n")
		}
		text.WriteString("\n")
	}

	return strings.TrimSpace(text.String()), nil
}

// extractFromEPUB goes through a temp file because the epub reader needs a path.
func (e *NativeEngine) extractFromEPUB(data []byte) (string, error) {
	tmpFile, err := os.CreateTemp("", "gateway-*.epub")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	tmpFile.Close()

	book, err := epub.Open(tmpFile.Name())
	if err != nil {
		return "", fmt.Errorf("failed to read EPUB: %w", err)
	}
	defer book.Close()

	var text strings.Builder
	for _, rf := range book.Opf.Manifest {
		if rf.MediaType != "application/xhtml+xml" && rf.MediaType != "text/html" {
			continue
		}

		content, err := book.Open(rf.Href)
		if err != nil {
			continue
		}
		contentBytes, err := io.ReadAll(content)
		content.Close()
		if err != nil {
			continue
		}

		if extracted := extractFromHTML(contentBytes); extracted != "" {
			text.WriteString(extracted)
			text.WriteString("\n\n")
		}
	}

	return strings.TrimSpace(text.String()), nil
}

func extractFromHTML(data []byte) string {
	content := string(data)
	content = scriptRe.ReplaceAllString(content, "")
	content = styleRe.ReplaceAllString(content, "")
	content = blockRe.ReplaceAllString(content, "\n")
	content = tagRe.ReplaceAllString(content, "")
	content = htmlEntities.Replace(content)
	content = spaceRe.ReplaceAllString(content, " ")
	content = newlineRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

func extractFromCSV(data []byte) string {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	var text strings.Builder
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		text.WriteString(strings.Join(record, "\t"))
		text.WriteString("\n")
	}

	return strings.TrimSpace(text.String())
}

func extractFromRTF(data []byte) string {
	content := string(data)

	for rtfGroupRe.MatchString(content) {
		content = rtfGroupRe.ReplaceAllString(content, "")
	}
	content = rtfControlRe.ReplaceAllString(content, "")

	content = strings.NewReplacer("\\{", "{", "\\}", "}", "\\\\", "\\").Replace(content)
	content = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(content)
	content = spaceRe.ReplaceAllString(content, " ")
	content = newlineRe.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}
