package services

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Document formats accepted for upload.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatTXT  = "txt"
)

type FileExtractService struct{}

func NewFileExtractService() *FileExtractService {
	return &FileExtractService{}
}

// DetectFormat decides the document format from magic bytes, falling back to
// the file extension when sniffing is inconclusive.
func (s *FileExtractService) DetectFormat(data []byte, filename string) (string, error) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	mimeType := http.DetectContentType(head)
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case mimeType == "application/pdf":
		return FormatPDF, nil
	case mimeType == "application/zip" && ext == ".docx":
		return FormatDOCX, nil
	case strings.HasPrefix(mimeType, "text/plain") && (ext == ".txt" || ext == ""):
		return FormatTXT, nil
	case mimeType == "application/octet-stream":
		switch ext {
		case ".pdf":
			return FormatPDF, nil
		case ".docx":
			return FormatDOCX, nil
		case ".txt":
			return FormatTXT, nil
		}
	}

	return "", &UnsupportedFormatError{Message: "File type not supported. Upload a PDF, DOCX or TXT file"}
}

// ExtractText returns the normalised plain text of a document.
func (s *FileExtractService) ExtractText(data []byte, format string) (string, error) {
	var (
		text string
		err  error
	)

	switch format {
	case FormatTXT:
		text, err = s.extractTXT(data)
	case FormatPDF:
		text, err = s.extractPDF(data)
	case FormatDOCX:
		text, err = s.extractDOCX(data)
	default:
		return "", &UnsupportedFormatError{Message: fmt.Sprintf("unsupported file type for text extraction: %s", format)}
	}
	if err != nil {
		return "", err
	}

	text = normalizeExtractedText(text)
	if text == "" {
		return "", &EmptyDocumentError{Message: fmt.Sprintf("no extractable text found in %s", format)}
	}
	return text, nil
}

func (s *FileExtractService) extractTXT(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", &UnsupportedFormatError{Message: "text file is not valid UTF-8"}
	}
	return string(data), nil
}

func (s *FileExtractService) extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &UnsupportedFormatError{Message: fmt.Sprintf("failed to read pdf: %v", err)}
	}

	var b strings.Builder
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	return b.String(), nil
}

func (s *FileExtractService) extractDOCX(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &UnsupportedFormatError{Message: fmt.Sprintf("failed to read docx: %v", err)}
	}

	var documentXML []byte
	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		documentXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		break
	}

	if len(documentXML) == 0 {
		return "", &UnsupportedFormatError{Message: "docx document.xml not found"}
	}

	return stripDOCXML(documentXML), nil
}

var xmlTagPattern = regexp.MustCompile(`<[^>]+>`)

func stripDOCXML(src []byte) string {
	s := string(src)

	// DOCX paragraphs and line breaks
	s = strings.ReplaceAll(s, "</w:p>", "\n")
	s = strings.ReplaceAll(s, "<w:br/>", "\n")
	s = strings.ReplaceAll(s, "<w:br />", "\n")
	s = strings.ReplaceAll(s, "<w:tab/>", "\t")

	s = xmlTagPattern.ReplaceAllString(s, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
	return replacer.Replace(s)
}

func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	buf := bytes.Buffer{}

	emptyCount := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}
