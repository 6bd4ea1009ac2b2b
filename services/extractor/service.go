package extractor

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/opentracing/opentracing-go"

	"github.com/Raman369AI/fileProcessor/dto"
	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/internal/tracing"
	"github.com/Raman369AI/fileProcessor/internal/utils"
)

// Service dispatches attachment bytes to the extractor registered for the
// file's extension. Extraction never fails the caller: whatever went
// wrong is recorded in the result metadata and partial output is kept.
type Service struct {
	log        logger.Logger
	extractors map[string]interfaces.FormatExtractor
	formats    []string
}

func NewExtractorService(log logger.Logger) interfaces.ContentExtractor {
	s := &Service{
		log:        log,
		extractors: map[string]interfaces.FormatExtractor{},
	}

	s.register(NewPDFExtractor())
	s.register(NewOfficeExtractor())
	s.register(NewSpreadsheetExtractor())
	s.register(NewCSVExtractor())
	s.register(NewTextExtractor())

	return s
}

func (s *Service) register(e interfaces.FormatExtractor) {
	for _, ext := range e.Extensions() {
		s.extractors[ext] = e
		s.formats = append(s.formats, ext)
	}
}

func (s *Service) SupportedFormats() []string {
	return append([]string(nil), s.formats...)
}

func (s *Service) Extract(ctx context.Context, content []byte, filename string, contextMeta map[string]any) *dto.ExtractedContent {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ExtractorService.Extract")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("filename", filename, "size", len(content))

	ext := utils.FileExtension(filename)

	var result *dto.ExtractedContent
	if e, ok := s.extractors[ext]; ok {
		extracted, err := e.Extract(ctx, content, filename)
		if extracted == nil {
			extracted = dto.NewExtractedContent(strings.TrimPrefix(ext, "."))
		}
		result = extracted
		if err != nil {
			tracing.TraceErr(span, err)
			s.log.Warnf("extraction failed for %s: %v", filename, err)
			result.Metadata["error"] = err.Error()
		}
	} else {
		result = s.fallback(content, ext)
	}

	result.Metadata["filename"] = filename
	result.Metadata["size_bytes"] = len(content)
	result.Metadata["mime_type"] = utils.MimeTypeFromFilename(filename)
	result.Metadata["extracted_at"] = utils.Now().Format("2006-01-02T15:04:05Z07:00")
	for k, v := range contextMeta {
		result.Metadata[k] = v
	}

	s.enrichInvoiceFields(filename, result)

	return result
}

// fallback handles extensions with no registered extractor: readable
// bytes are kept as plain text, anything else is reported unsupported.
func (s *Service) fallback(content []byte, ext string) *dto.ExtractedContent {
	fileType := strings.TrimPrefix(ext, ".")
	if fileType == "" {
		fileType = "unknown"
	}

	result := dto.NewExtractedContent(fileType)
	if utf8.Valid(content) && len(content) > 0 {
		result.Text = string(content)
		result.Metadata["fallback"] = "decoded as plain text"
		return result
	}

	result.Metadata["error"] = "unsupported file format: " + ext
	return result
}

func (s *Service) enrichInvoiceFields(filename string, result *dto.ExtractedContent) {
	if result.Text == "" {
		return
	}
	lowerName := strings.ToLower(filename)
	if !strings.Contains(lowerName, "invoice") && !strings.Contains(strings.ToLower(result.Text), "invoice") {
		return
	}
	if fields := ExtractInvoiceFields(result.Text); len(fields) > 0 {
		result.Metadata["fields"] = fields
	}
}
