package extractor

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/Raman369AI/fileProcessor/dto"
	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/utils"
)

type textExtractor struct{}

func NewTextExtractor() interfaces.FormatExtractor {
	return &textExtractor{}
}

func (e *textExtractor) Extensions() []string {
	return []string{".txt", ".md", ".log", ".json", ".xml", ".html"}
}

func (e *textExtractor) Extract(ctx context.Context, content []byte, filename string) (*dto.ExtractedContent, error) {
	fileType := strings.TrimPrefix(utils.FileExtension(filename), ".")
	result := dto.NewExtractedContent(fileType)

	if !utf8.Valid(content) {
		return result, errors.New("content is not valid utf-8 text")
	}

	result.Text = string(content)
	result.Metadata["line_count"] = strings.Count(result.Text, "\n") + 1
	return result, nil
}
