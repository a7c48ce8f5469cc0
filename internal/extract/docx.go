package extract

import (
	"archive/zip"
	"fmt"
	"html"
	"regexp"
	"strings"
)

const (
	docxDocumentXMLPath = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// wtTag matches <w:t>text</w:t> with any attributes.
	wtTag = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	// paragraphEnd splits the body into paragraphs so lines survive extraction.
	paragraphEnd = regexp.MustCompile(`</w:p>`)
	// partNameRe finds the main document part in either attribute order.
	partNameRe  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// findDocxMainDocumentPath reads [Content_Types].xml. Returns "" when not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	data, err := readZipEntry(zr, contentTypesPath)
	if err != nil {
		return ""
	}
	s := string(data)
	for _, re := range []*regexp.Regexp{partNameRe, partNameRe2} {
		if m := re.FindStringSubmatch(s); len(m) > 1 {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return ""
}

// extractDOCX collects every <w:t> run, one line per paragraph.
func extractDOCX(content []byte) (string, error) {
	zr, err := openZip(content)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	docXML, err := readZipEntry(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}

	var lines []string
	for _, para := range paragraphEnd.Split(string(docXML), -1) {
		var b strings.Builder
		for _, m := range wtTag.FindAllStringSubmatch(para, -1) {
			b.WriteString(m[1])
		}
		if line := strings.TrimSpace(html.UnescapeString(b.String())); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
