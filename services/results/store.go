package results

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/Raman369AI/fileProcessor/dto"
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/internal/tracing"
	"github.com/Raman369AI/fileProcessor/internal/utils"
)

const (
	processingSummaryMarker = "_processing_summary_"
	enqueueSummaryMarker    = "_enqueue_summary_"
	workerResultPrefix      = "result_"
)

// Store writes and reads the JSON artifacts the pipeline leaves behind:
// saved attachments, per-message summaries and per-task worker results.
// Filenames start with the date so a directory listing sorts by day.
type Store struct {
	dir string
	log logger.Logger
}

func NewStore(dir string, log logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create artifacts directory")
	}
	return &Store{dir: dir, log: log}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// SaveAttachment writes raw attachment bytes under a unique name and
// returns the saved filename.
func (s *Store) SaveAttachment(ctx context.Context, originalName string, content []byte) (string, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "ResultsStore.SaveAttachment")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	name := s.uniqueName(originalName)
	if err := os.WriteFile(filepath.Join(s.dir, name), content, 0o644); err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrap(err, "failed to save attachment")
	}

	return name, nil
}

// SaveExtractedContent writes the .processed.json sidecar next to a
// saved attachment.
func (s *Store) SaveExtractedContent(ctx context.Context, savedFilename string, content *dto.ExtractedContent) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "ResultsStore.SaveExtractedContent")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if err := s.writeJSON(savedFilename+".processed.json", content); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (s *Store) SaveProcessingSummary(ctx context.Context, summary *dto.ProcessingSummary) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "ResultsStore.SaveProcessingSummary")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	name := s.uniqueName("processing_summary_" + utils.ShortID(summary.EmailInfo.MessageID, 8) + ".json")
	if err := s.writeJSON(name, summary); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (s *Store) SaveEnqueueSummary(ctx context.Context, summary *dto.EnqueueSummary) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "ResultsStore.SaveEnqueueSummary")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	name := s.uniqueName("enqueue_summary_" + utils.ShortID(summary.EmailInfo.MessageID, 8) + ".json")
	if err := s.writeJSON(name, summary); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (s *Store) SaveWorkerResult(ctx context.Context, result *dto.WorkerResult) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "ResultsStore.SaveWorkerResult")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagTaskId, result.TaskID)

	if err := s.writeJSON(workerResultPrefix+result.TaskID+".json", result); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// RecentResults returns the email info of the newest summaries, direct
// and queue mode mixed, sorted by processed date descending.
func (s *Store) RecentResults(ctx context.Context, limit int) ([]dto.EmailInfo, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "ResultsStore.RecentResults")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if limit <= 0 {
		limit = 10
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to list artifacts directory")
	}

	var results []dto.EmailInfo
	for _, entry := range entries {
		if entry.IsDir() || !s.isSummary(entry.Name()) {
			continue
		}
		info, err := s.readEmailInfo(entry.Name())
		if err != nil {
			s.log.Warnf("skipping unreadable summary %s: %v", entry.Name(), err)
			continue
		}
		results = append(results, info)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ProcessedDate.After(results[j].ProcessedDate)
	})
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// GetSummaryByMessageID finds the summary artifact written for a message.
// Returns (nil, nil) when no summary exists.
func (s *Store) GetSummaryByMessageID(ctx context.Context, messageID string) (map[string]any, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "ResultsStore.GetSummaryByMessageID")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagMessageId, messageID)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to list artifacts directory")
	}

	short := utils.ShortID(messageID, 8)
	for _, entry := range entries {
		name := entry.Name()
		if !s.isSummary(name) || !strings.Contains(name, "_"+short+".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, errors.Wrap(err, "failed to read summary")
		}
		var summary map[string]any
		if err := json.Unmarshal(data, &summary); err != nil {
			tracing.TraceErr(span, err)
			return nil, errors.Wrap(err, "failed to parse summary")
		}
		return summary, nil
	}

	return nil, nil
}

// GetWorkerResult loads the artifact a worker wrote for a task.
// Returns (nil, nil) when the task has no result yet.
func (s *Store) GetWorkerResult(ctx context.Context, taskID string) (*dto.WorkerResult, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, workerResultPrefix+taskID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read worker result")
	}

	var result dto.WorkerResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "failed to parse worker result")
	}
	return &result, nil
}

func (s *Store) isSummary(name string) bool {
	return strings.Contains(name, processingSummaryMarker) || strings.Contains(name, enqueueSummaryMarker)
}

func (s *Store) readEmailInfo(name string) (dto.EmailInfo, error) {
	var envelope struct {
		EmailInfo dto.EmailInfo `json:"email_info"`
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return dto.EmailInfo{}, err
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return dto.EmailInfo{}, err
	}
	return envelope.EmailInfo, nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize artifact")
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write artifact %s", name)
	}
	return nil
}

func (s *Store) uniqueName(name string) string {
	date := utils.Now().Format("2006-01-02")
	return date + "_" + utils.ShortID(uuid.NewString(), 8) + "_" + name
}
