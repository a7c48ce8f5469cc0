package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel returns every non-empty row of every sheet, cells separated by tabs.
// Skills matrices and candidate trackers are sometimes kept as spreadsheets.
func extractExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			if line := strings.TrimSpace(strings.Join(row, "\t")); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
