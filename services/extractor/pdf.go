package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"

	"github.com/Raman369AI/fileProcessor/dto"
	"github.com/Raman369AI/fileProcessor/interfaces"
)

type pdfExtractor struct{}

func NewPDFExtractor() interfaces.FormatExtractor {
	return &pdfExtractor{}
}

func (e *pdfExtractor) Extensions() []string {
	return []string{".pdf"}
}

// Extract pulls text page by page so a single corrupt page does not
// discard the rest of the document.
func (e *pdfExtractor) Extract(ctx context.Context, content []byte, filename string) (result *dto.ExtractedContent, err error) {
	result = dto.NewExtractedContent("pdf")

	// the pdf package panics on some malformed documents
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("pdf parsing panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return result, errors.Wrap(err, "failed to open pdf")
	}

	totalPages := reader.NumPage()
	result.Metadata["page_count"] = totalPages

	var sb strings.Builder
	var pageErrors int
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			pageErrors++
			continue
		}
		text, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			pageErrors++
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	result.Text = strings.TrimSpace(sb.String())
	if pageErrors > 0 {
		result.Metadata["pages_failed"] = pageErrors
	}
	if result.Text == "" && totalPages > 0 {
		return result, fmt.Errorf("no text extracted from %d pages", totalPages)
	}

	return result, nil
}
