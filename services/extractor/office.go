package extractor

import (
	"bytes"
	"context"
	"strings"

	"code.sajari.com/docconv"
	"github.com/pkg/errors"

	"github.com/Raman369AI/fileProcessor/dto"
	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/utils"
)

// officeExtractor converts word-processing documents and scanned images
// through docconv. Image formats go through its tesseract OCR path, which
// degrades to an error when the binary is not installed.
type officeExtractor struct{}

func NewOfficeExtractor() interfaces.FormatExtractor {
	return &officeExtractor{}
}

func (e *officeExtractor) Extensions() []string {
	return []string{".docx", ".doc", ".rtf", ".odt", ".png", ".jpg", ".jpeg", ".tiff"}
}

func (e *officeExtractor) Extract(ctx context.Context, content []byte, filename string) (*dto.ExtractedContent, error) {
	fileType := strings.TrimPrefix(utils.FileExtension(filename), ".")
	result := dto.NewExtractedContent(fileType)

	mimeType := utils.MimeTypeFromFilename(filename)
	res, err := docconv.Convert(bytes.NewReader(content), mimeType, true)
	if err != nil {
		return result, errors.Wrapf(err, "docconv failed for %s", mimeType)
	}

	result.Text = strings.TrimSpace(res.Body)
	for k, v := range res.Meta {
		result.Metadata["doc_"+strings.ToLower(k)] = v
	}

	return result, nil
}
