package extractor

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/Raman369AI/fileProcessor/dto"
	"github.com/Raman369AI/fileProcessor/interfaces"
)

type csvExtractor struct{}

func NewCSVExtractor() interfaces.FormatExtractor {
	return &csvExtractor{}
}

func (e *csvExtractor) Extensions() []string {
	return []string{".csv", ".tsv"}
}

func (e *csvExtractor) Extract(ctx context.Context, content []byte, filename string) (*dto.ExtractedContent, error) {
	result := dto.NewExtractedContent("csv")

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	if strings.HasSuffix(strings.ToLower(filename), ".tsv") {
		reader.Comma = '\t'
	}

	var table [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// keep whatever parsed before the malformed row
			result.Metadata["parse_error"] = err.Error()
			break
		}
		table = append(table, row)
	}

	if len(table) == 0 {
		return result, errors.New("no rows parsed")
	}

	result.Tables = append(result.Tables, table)
	result.Metadata["row_count"] = len(table)

	var sb strings.Builder
	for _, row := range table {
		sb.WriteString(strings.Join(row, ", "))
		sb.WriteString("\n")
	}
	result.Text = strings.TrimSpace(sb.String())

	return result, nil
}
