package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/Raman369AI/fileProcessor/config"
	"github.com/Raman369AI/fileProcessor/dto"
	fileprocessor_errors "github.com/Raman369AI/fileProcessor/errors"
	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/enum"
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/internal/models"
	"github.com/Raman369AI/fileProcessor/internal/repository"
	"github.com/Raman369AI/fileProcessor/internal/tracing"
	"github.com/Raman369AI/fileProcessor/internal/utils"
	"github.com/Raman369AI/fileProcessor/services/results"
)

// Stats counts pipeline activity since process start
type Stats struct {
	LastRun              time.Time `json:"last_run"`
	TotalRuns            int       `json:"total_runs"`
	MessagesProcessed    int       `json:"messages_processed"`
	AttachmentsProcessed int       `json:"attachments_processed"`
	AttachmentsQueued    int       `json:"attachments_queued"`
	QueueErrors          int       `json:"queue_errors"`
	Errors               int       `json:"errors"`
	DownloadSkips        int       `json:"download_skips"`
}

// Service runs ingestion cycles: fetch new mail via the delta feed, then
// either enqueue attachments for the worker pool or process them inline.
type Service struct {
	graphCfg   *config.GraphConfig
	monitorCfg *config.MonitorConfig
	mail       interfaces.MailClient
	cursor     interfaces.CursorStore
	queue      interfaces.AttachmentQueue
	extractor  interfaces.ContentExtractor
	store      *results.Store
	repos      *repository.Repositories
	publisher  interfaces.EventPublisher
	mirror     interfaces.StorageService
	log        logger.Logger

	fileTypes []string
	useQueue  bool

	// one cycle at a time, concurrent triggers are rejected
	runMu   sync.Mutex
	running bool

	statsMu sync.Mutex
	stats   Stats
}

func NewMonitorService(
	graphCfg *config.GraphConfig,
	monitorCfg *config.MonitorConfig,
	mail interfaces.MailClient,
	cursor interfaces.CursorStore,
	queue interfaces.AttachmentQueue,
	extractor interfaces.ContentExtractor,
	store *results.Store,
	repos *repository.Repositories,
	publisher interfaces.EventPublisher,
	mirror interfaces.StorageService,
	log logger.Logger,
) *Service {
	return &Service{
		graphCfg:   graphCfg,
		monitorCfg: monitorCfg,
		mail:       mail,
		cursor:     cursor,
		queue:      queue,
		extractor:  extractor,
		store:      store,
		repos:      repos,
		publisher:  publisher,
		mirror:     mirror,
		log:        log,
		fileTypes:  utils.StringToSlice(monitorCfg.FileTypes),
		useQueue:   monitorCfg.UseQueue && queue != nil,
	}
}

func (s *Service) Enabled() bool {
	return s.mail != nil && s.graphCfg.IsConfigured()
}

func (s *Service) QueueMode() bool {
	return s.useQueue
}

// Stats returns a snapshot of the lifetime counters.
func (s *Service) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// ProcessCycle runs one full ingestion sweep. Only one cycle runs at a
// time; a second caller gets ErrCycleInProgress instead of blocking.
func (s *Service) ProcessCycle(ctx context.Context) error {
	if !s.Enabled() {
		return fileprocessor_errors.ErrIngestionDisabled
	}

	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return fileprocessor_errors.ErrCycleInProgress
	}
	s.running = true
	s.runMu.Unlock()
	defer func() {
		s.runMu.Lock()
		s.running = false
		s.runMu.Unlock()
	}()

	span, ctx := opentracing.StartSpanFromContext(ctx, "MonitorService.ProcessCycle")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if err := s.mail.Authenticate(ctx); err != nil {
		tracing.TraceErr(span, err)
		s.countError()
		return err
	}

	messages, err := s.mail.FetchNewMessages(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		s.countError()
		return err
	}

	if len(messages) == 0 {
		s.log.Info("no new messages to process")
	}

	var queuedTotal int
	var errorCount int
	for _, message := range messages {
		if err := s.processMessage(ctx, message, &queuedTotal); err != nil {
			s.log.Errorf("error processing message %s: %v", message.ID, err)
			s.countError()
			errorCount++
		}
	}

	s.statsMu.Lock()
	s.stats.TotalRuns++
	s.stats.LastRun = utils.Now()
	s.stats.MessagesProcessed += len(messages)
	s.statsMu.Unlock()

	s.recordCheckpoint(ctx, len(messages), queuedTotal, errorCount)

	span.LogKV("result.messages", len(messages))
	return nil
}

func (s *Service) processMessage(ctx context.Context, message interfaces.Message, queuedTotal *int) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MonitorService.processMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagMessageId, message.ID)

	if !message.HasAttachments {
		s.log.Infof("no attachments on message: %s", utils.Truncate(message.Subject, 50))
		return nil
	}

	refs, err := s.mail.ListAttachments(ctx, message.ID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if len(refs) == 0 {
		s.log.Infof("message flagged hasAttachments but listed none: %s", utils.Truncate(message.Subject, 50))
		return nil
	}

	s.log.Infof("processing %d attachments for: %s", len(refs), utils.Truncate(message.Subject, 50))

	emailRow := s.upsertEmail(ctx, message, len(refs))

	var handled, rejected int
	if s.useQueue {
		handled, rejected, err = s.enqueueAttachments(ctx, message, emailRow, refs, queuedTotal)
	} else {
		handled, rejected, err = s.processDirectly(ctx, message, emailRow, refs)
	}
	if err != nil {
		return err
	}

	s.publishEmailIngested(ctx, message, handled, rejected)
	return nil
}

// enqueueAttachments downloads the message's files and offers each to
// the queue. Admission failures are recorded per attachment, the rest
// of the batch still goes through.
func (s *Service) enqueueAttachments(ctx context.Context, message interfaces.Message, emailRow *models.IngestedEmail, refs []interfaces.AttachmentRef, queuedTotal *int) (int, int, error) {
	var entries []dto.EnqueuedAttachment
	var queued, rejected int

	for _, ref := range refs {
		content, skip := s.downloadFiltered(ctx, message.ID, ref)
		if skip {
			continue
		}

		record := s.buildRecord(message, ref, content)
		entry := dto.EnqueuedAttachment{
			TaskID:       record.TaskID,
			Filename:     ref.Name,
			MimeType:     record.MimeType,
			Size:         record.Size,
			AttachmentID: ref.ID,
		}

		if err := s.queue.Enqueue(ctx, record); err != nil {
			s.log.Warnf("failed to enqueue %s: %v", ref.Name, err)
			entry.Reason = err.Error()
			rejected++
			s.statsMu.Lock()
			s.stats.QueueErrors++
			s.statsMu.Unlock()
		} else {
			entry.Enqueued = true
			queued++
			s.createAttachmentRow(ctx, emailRow, record, enum.AttachmentStatusQueued)
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return 0, 0, nil
	}

	s.statsMu.Lock()
	s.stats.AttachmentsQueued += queued
	s.statsMu.Unlock()
	*queuedTotal += queued

	s.log.Infof("enqueued %d/%d attachments from email: %s", queued, len(entries), utils.Truncate(message.Subject, 50))

	summary := &dto.EnqueueSummary{
		EmailInfo: dto.EmailInfo{
			MessageID:           message.ID,
			Subject:             message.Subject,
			Sender:              message.SenderAddress,
			ProcessedDate:       utils.Now(),
			TotalAttachments:    len(entries),
			AttachmentsEnqueued: queued,
		},
		Attachments: entries,
	}
	if err := s.store.SaveEnqueueSummary(ctx, summary); err != nil {
		s.log.Errorf("error saving enqueue summary: %v", err)
	}

	return queued, rejected, nil
}

// processDirectly is the inline path: save, extract, persist, one
// attachment's failure never blocks its siblings.
func (s *Service) processDirectly(ctx context.Context, message interfaces.Message, emailRow *models.IngestedEmail, refs []interfaces.AttachmentRef) (int, int, error) {
	var processed []dto.ProcessedAttachment
	var failed int

	for _, ref := range refs {
		content, skip := s.downloadFiltered(ctx, message.ID, ref)
		if skip {
			continue
		}

		entry, err := s.processOne(ctx, message, emailRow, ref, content)
		if err != nil {
			s.log.Errorf("error processing attachment %s: %v", ref.Name, err)
			s.countError()
			failed++
			continue
		}
		processed = append(processed, *entry)

		s.statsMu.Lock()
		s.stats.AttachmentsProcessed++
		s.statsMu.Unlock()
	}

	if len(processed) > 0 {
		summary := &dto.ProcessingSummary{
			EmailInfo: dto.EmailInfo{
				MessageID:            message.ID,
				Subject:              message.Subject,
				Sender:               message.SenderAddress,
				ProcessedDate:        utils.Now(),
				AttachmentsProcessed: len(processed),
			},
			Attachments: processed,
		}
		if err := s.store.SaveProcessingSummary(ctx, summary); err != nil {
			s.log.Errorf("error saving processing summary: %v", err)
		}
	}

	return len(processed), failed, nil
}

func (s *Service) processOne(ctx context.Context, message interfaces.Message, emailRow *models.IngestedEmail, ref interfaces.AttachmentRef, content []byte) (*dto.ProcessedAttachment, error) {
	savedName, err := s.store.SaveAttachment(ctx, ref.Name, content)
	if err != nil {
		return nil, err
	}

	extracted := s.extractor.Extract(ctx, content, ref.Name, map[string]any{
		"email_id":      message.ID,
		"email_subject": message.Subject,
	})

	var extractErrors []string
	if msg, ok := extracted.Metadata["error"].(string); ok {
		extractErrors = append(extractErrors, msg)
	}

	if err := s.store.SaveExtractedContent(ctx, savedName, extracted); err != nil {
		s.log.Errorf("error saving extracted content for %s: %v", savedName, err)
	}

	if s.mirror != nil {
		key := message.ID + "/" + savedName
		if err := s.mirror.Upload(ctx, key, content, s.mimeType(ref)); err != nil {
			s.log.Warnf("failed to mirror %s to object storage: %v", savedName, err)
		}
	}

	record := s.buildRecord(message, ref, content)
	s.createAttachmentRow(ctx, emailRow, record, enum.AttachmentStatusProcessed)

	return &dto.ProcessedAttachment{
		OriginalFilename: ref.Name,
		SavedFilename:    savedName,
		FileType:         utils.FileExtension(ref.Name),
		FileSize:         int64(len(content)),
		SavedPath:        s.store.Dir() + "/" + savedName,
		ProcessingMethod: extracted.FileType,
		Errors:           extractErrors,
	}, nil
}

// downloadFiltered applies the extension allow-list and fetches the
// bytes. An empty body means the provider had nothing for us, the
// attachment is skipped rather than failed.
func (s *Service) downloadFiltered(ctx context.Context, messageID string, ref interfaces.AttachmentRef) ([]byte, bool) {
	if len(s.fileTypes) > 0 && !utils.IsStringInSlice(utils.FileExtension(ref.Name), s.fileTypes) {
		return nil, true
	}

	content, err := s.mail.DownloadAttachment(ctx, messageID, ref.ID)
	if err != nil {
		s.log.Warnf("failed to download %s: %v", ref.Name, err)
		s.countError()
		return nil, true
	}
	if len(content) == 0 {
		s.log.Warnf("empty download for %s, skipping", ref.Name)
		s.statsMu.Lock()
		s.stats.DownloadSkips++
		s.statsMu.Unlock()
		return nil, true
	}

	return content, false
}

func (s *Service) buildRecord(message interfaces.Message, ref interfaces.AttachmentRef, content []byte) *dto.AttachmentRecord {
	return &dto.AttachmentRecord{
		TaskID:             dto.NewTaskID(message.ID, ref.ID),
		EmailID:            message.ID,
		EmailSubject:       message.Subject,
		EmailSenderName:    message.SenderName,
		EmailSenderAddress: message.SenderAddress,
		EmailBodyPreview:   message.BodyPreview,
		EmailReceivedAt:    message.ReceivedAt,
		AttachmentID:       ref.ID,
		Filename:           ref.Name,
		Content:            content,
		MimeType:           s.mimeType(ref),
		Size:               int64(len(content)),
		Source:             dto.SourceEmail,
		CreatedAt:          utils.Now(),
	}
}

func (s *Service) mimeType(ref interfaces.AttachmentRef) string {
	if ref.ContentType != "" && ref.ContentType != utils.DefaultMimeType {
		return ref.ContentType
	}
	return utils.MimeTypeFromFilename(ref.Name)
}

func (s *Service) upsertEmail(ctx context.Context, message interfaces.Message, attachmentCount int) *models.IngestedEmail {
	if s.repos == nil {
		return nil
	}

	row, err := s.repos.EmailRepository.Upsert(ctx, &models.IngestedEmail{
		MessageID:       message.ID,
		Subject:         message.Subject,
		SenderName:      message.SenderName,
		SenderAddress:   message.SenderAddress,
		BodyPreview:     message.BodyPreview,
		ReceivedAt:      message.ReceivedAt,
		AttachmentCount: attachmentCount,
	})
	if err != nil {
		s.log.Errorf("error persisting email %s: %v", message.ID, err)
		return nil
	}
	return row
}

func (s *Service) createAttachmentRow(ctx context.Context, emailRow *models.IngestedEmail, record *dto.AttachmentRecord, status enum.AttachmentStatus) {
	if s.repos == nil {
		return
	}

	emailID := ""
	if emailRow != nil {
		emailID = emailRow.ID
	}

	_, err := s.repos.AttachmentRepository.Create(ctx, &models.Attachment{
		TaskID:      record.TaskID,
		EmailID:     emailID,
		Filename:    record.Filename,
		ContentType: record.MimeType,
		Size:        int(record.Size),
		Source:      enum.SourceEmail,
		Status:      status,
		ContentHash: utils.SHA256Hex(record.Content),
	})
	if err != nil {
		s.log.Errorf("error persisting attachment %s: %v", record.TaskID, err)
	}
}

func (s *Service) recordCheckpoint(ctx context.Context, messages, queued, errorCount int) {
	if s.repos == nil {
		return
	}

	cursor := ""
	if s.cursor != nil {
		if loaded, err := s.cursor.Load(); err == nil {
			cursor = loaded
		}
	}

	err := s.repos.CheckpointRepository.Record(ctx, &models.SyncCheckpoint{
		Cursor:   cursor,
		Messages: messages,
		Queued:   queued,
		Errors:   errorCount,
		RanAt:    utils.Now(),
	})
	if err != nil {
		s.log.Errorf("error recording sync checkpoint: %v", err)
	}
}

func (s *Service) publishEmailIngested(ctx context.Context, message interfaces.Message, handled, rejected int) {
	if s.publisher == nil {
		return
	}

	mode := enum.IngestModeDirect
	if s.useQueue {
		mode = enum.IngestModeQueue
	}

	err := s.publisher.PublishEmailIngestedEvent(ctx, dto.EmailIngested{
		MessageID:           message.ID,
		Subject:             message.Subject,
		Sender:              message.SenderAddress,
		ReceivedAt:          message.ReceivedAt,
		Mode:                mode.String(),
		AttachmentsHandled:  handled,
		AttachmentsRejected: rejected,
	})
	if err != nil {
		s.log.Errorf("error publishing email ingested event: %v", err)
	}
}

func (s *Service) countError() {
	s.statsMu.Lock()
	s.stats.Errors++
	s.statsMu.Unlock()
}
