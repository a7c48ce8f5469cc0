package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	odtContentPath = "content.xml"
	odfTextNS      = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
)

// extractODT walks content.xml and emits the character data of the document, one line
// per text:p or text:h element. text:s, text:tab and text:line-break become whitespace.
func extractODT(content []byte) (string, error) {
	zr, err := openZip(content)
	if err != nil {
		return "", fmt.Errorf("extract ODT: %w", err)
	}
	data, err := readZipEntry(zr, odtContentPath)
	if err != nil {
		return "", fmt.Errorf("extract ODT: %w", err)
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	var lines []string
	var cur strings.Builder
	depth := 0 // nesting of text:p / text:h
	flush := func() {
		if line := strings.TrimSpace(cur.String()); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("extract ODT: parse %s: %w", odtContentPath, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != odfTextNS {
				continue
			}
			switch t.Name.Local {
			case "p", "h":
				depth++
			case "s", "tab", "line-break":
				cur.WriteByte(' ')
			}
		case xml.EndElement:
			if t.Name.Space == odfTextNS && (t.Name.Local == "p" || t.Name.Local == "h") {
				depth--
				if depth == 0 {
					flush()
				}
			}
		case xml.CharData:
			if depth > 0 {
				cur.Write(t)
			}
		}
	}
	flush()
	return strings.Join(lines, "\n"), nil
}
