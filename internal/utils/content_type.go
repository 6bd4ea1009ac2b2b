package utils

import (
	"mime"
	"path/filepath"
	"strings"
)

const DefaultMimeType = "application/octet-stream"

// extensions the standard mime table does not always cover
var extraMimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
	".csv":  "text/csv",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".tiff": "image/tiff",
}

// FileExtension returns the lowercase extension of a filename, dot included
func FileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// MimeTypeFromFilename infers a MIME type from the filename extension,
// falling back to application/octet-stream when unknown
func MimeTypeFromFilename(filename string) string {
	ext := FileExtension(filename)
	if ext == "" {
		return DefaultMimeType
	}
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		// strip charset parameters, callers want the bare type
		if idx := strings.Index(mimeType, ";"); idx > 0 {
			mimeType = mimeType[:idx]
		}
		return strings.TrimSpace(mimeType)
	}
	if mimeType, ok := extraMimeTypes[ext]; ok {
		return mimeType
	}
	return DefaultMimeType
}
