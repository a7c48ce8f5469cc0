// Package extract turns resume files into plain text.
package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor extracts plain text from resume files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// SupportedExtensions lists the extensions with a dedicated extractor. Anything else is
// read as plain text.
var SupportedExtensions = []string{".txt", ".md", ".pdf", ".docx", ".odt", ".xlsx"}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"); case is ignored.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt":
		return extractODT(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return extractPlain(content)
	}
}

// readZipEntry returns the bytes of the named entry in an OOXML or ODF package.
func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%s not found", name)
}

func openZip(content []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a zip: %w", err)
	}
	return zr, nil
}
