package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	xlsxMaxSheets  = 2
	xlsxMaxRows    = 50
	xlsxMaxColumns = 10
)

func extractXLSX(_ string, raw []byte) (string, error) {
	book, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()

	var b strings.Builder
	sheets := book.GetSheetList()
	for i, sheet := range sheets {
		if i == xlsxMaxSheets {
			break
		}
		if err := writeSheet(&b, book, sheet); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func writeSheet(b *strings.Builder, book *excelize.File, sheet string) error {
	rows, err := book.Rows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	fmt.Fprintf(b, "Sheet: %s\n", sheet)
	for n := 0; n < xlsxMaxRows && rows.Next(); n++ {
		cols, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if len(cols) > xlsxMaxColumns {
			cols = cols[:xlsxMaxColumns]
		}
		line := strings.TrimSpace(strings.Join(cols, " | "))
		if strings.Trim(line, " |") == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return rows.Error()
}
