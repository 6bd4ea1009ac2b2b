package extractor

import (
	"bytes"
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/Raman369AI/fileProcessor/dto"
	"github.com/Raman369AI/fileProcessor/interfaces"
)

type spreadsheetExtractor struct{}

func NewSpreadsheetExtractor() interfaces.FormatExtractor {
	return &spreadsheetExtractor{}
}

func (e *spreadsheetExtractor) Extensions() []string {
	return []string{".xlsx", ".xlsm"}
}

// Extract keeps each sheet as a table and flattens cell values into the
// text field so downstream search works without table awareness.
func (e *spreadsheetExtractor) Extract(ctx context.Context, content []byte, filename string) (*dto.ExtractedContent, error) {
	result := dto.NewExtractedContent("xlsx")

	workbook, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return result, errors.Wrap(err, "failed to open workbook")
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	result.Metadata["sheet_count"] = len(sheets)
	result.Metadata["sheet_names"] = sheets

	var sb strings.Builder
	for _, sheet := range sheets {
		rows, rowsErr := workbook.GetRows(sheet)
		if rowsErr != nil {
			result.Metadata["sheet_error_"+sheet] = rowsErr.Error()
			continue
		}
		if len(rows) == 0 {
			continue
		}

		result.Tables = append(result.Tables, rows)

		sb.WriteString("Sheet: " + sheet + "\n")
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	result.Text = strings.TrimSpace(sb.String())
	return result, nil
}
