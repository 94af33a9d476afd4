package services

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	docx := buildDOCX(t, "<w:document/>")

	tests := []struct {
		name     string
		data     []byte
		filename string
		want     string
		wantErr  bool
	}{
		{"pdf magic", []byte("%PDF-1.7\n%binary"), "lease.pdf", FormatPDF, false},
		{"pdf magic wrong ext", []byte("%PDF-1.7\n"), "lease.bin", FormatPDF, false},
		{"docx zip", docx, "contract.docx", FormatDOCX, false},
		{"plain zip", docx, "archive.zip", "", true},
		{"text", []byte("This Agreement is made..."), "nda.txt", FormatTXT, false},
		{"png", []byte("\x89PNG\r\n\x1a\n0000"), "scan.png", "", true},
	}

	s := NewFileExtractService()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.DetectFormat(tc.data, tc.filename)
			if tc.wantErr {
				var uErr *UnsupportedFormatError
				assert.ErrorAs(t, err, &uErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractText_DOCX(t *testing.T) {
	xml := `<w:document><w:body>` +
		`<w:p><w:r><w:t>Section 1 &amp; 2</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Term:</w:t><w:tab/><w:t>12 months</w:t></w:r></w:p>` +
		`</w:body></w:document>`

	text, err := NewFileExtractService().ExtractText(buildDOCX(t, xml), FormatDOCX)

	require.NoError(t, err)
	assert.Equal(t, "Section 1 & 2\nTerm:\t12 months", text)
}

func TestExtractText_DOCXWithoutBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = NewFileExtractService().ExtractText(buf.Bytes(), FormatDOCX)

	var uErr *UnsupportedFormatError
	assert.ErrorAs(t, err, &uErr)
}

func TestExtractText_TXTNormalizes(t *testing.T) {
	in := "  LEASE AGREEMENT  \r\n\r\n\r\n\r\nTenant: Jane\r\n"

	text, err := NewFileExtractService().ExtractText([]byte(in), FormatTXT)

	require.NoError(t, err)
	assert.Equal(t, "LEASE AGREEMENT\n\nTenant: Jane", text)
}

func TestExtractText_EmptyDocument(t *testing.T) {
	_, err := NewFileExtractService().ExtractText([]byte(" \n\n \t"), FormatTXT)

	var eErr *EmptyDocumentError
	assert.ErrorAs(t, err, &eErr)
}

func TestExtractText_CorruptPDF(t *testing.T) {
	_, err := NewFileExtractService().ExtractText([]byte("%PDF-1.4 truncated"), FormatPDF)

	var uErr *UnsupportedFormatError
	assert.ErrorAs(t, err, &uErr)
}
