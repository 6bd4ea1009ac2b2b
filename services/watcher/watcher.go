package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/Raman369AI/fileProcessor/dto"
	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/internal/utils"
)

// settleDelay gives the writer time to finish before the file is read.
// A file whose size changes between the delay and the read is left for
// the next event.
const settleDelay = 500 * time.Millisecond

// Service watches an upload directory and feeds dropped files into the
// attachment queue with synthetic email context. Files already present
// at start are swept once, then fsnotify takes over.
type Service struct {
	dir   string
	queue interfaces.AttachmentQueue
	log   logger.Logger

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewWatcher(uploadDir string, queue interfaces.AttachmentQueue, log logger.Logger) *Service {
	return &Service{dir: uploadDir, queue: queue, log: log}
}

func (s *Service) Enabled() bool {
	return s.dir != "" && s.queue != nil
}

func (s *Service) Start(ctx context.Context) error {
	if !s.Enabled() {
		return errors.New("upload watcher requires a directory and a queue")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create upload directory")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return errors.Wrap(err, "failed to watch upload directory")
	}
	s.watcher = w

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.sweep(runCtx)

	s.wg.Add(1)
	go s.loop(runCtx)

	s.log.Infof("watching upload directory %s", s.dir)
	return nil
}

func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.watcher.Close()
	s.wg.Wait()
}

// sweep enqueues files that were dropped while the service was down.
func (s *Service) sweep(ctx context.Context) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Errorf("failed to scan upload directory: %v", err)
		return
	}

	var records []*dto.AttachmentRecord
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		record, err := s.buildRecord(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			s.log.Warnf("skipping %s: %v", entry.Name(), err)
			continue
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return
	}

	admitted := s.queue.EnqueueBatch(ctx, records)
	s.log.Infof("swept %d/%d existing uploads into the queue", admitted, len(records))

	// only certain everything was consumed when the whole batch went in
	if admitted == len(records) {
		for _, record := range records {
			s.remove(filepath.Join(s.dir, record.Filename))
		}
	}
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			s.handleCreate(ctx, event.Name)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Errorf("upload watcher error: %v", err)
		}
	}
}

func (s *Service) handleCreate(ctx context.Context, path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(settleDelay):
	}

	record, err := s.buildRecord(path)
	if err != nil {
		s.log.Warnf("skipping upload %s: %v", name, err)
		return
	}

	if err := s.queue.Enqueue(ctx, record); err != nil {
		s.log.Errorf("failed to enqueue upload %s: %v", name, err)
		return
	}

	s.log.Infof("enqueued upload %s (%d bytes)", name, record.Size)
	s.remove(path)
}

func (s *Service) buildRecord(path string) (*dto.AttachmentRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat upload")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read upload")
	}
	if len(content) == 0 {
		return nil, errors.New("upload is empty")
	}
	if int64(len(content)) != info.Size() {
		return nil, errors.New("upload still being written")
	}

	name := filepath.Base(path)
	now := utils.Now()
	return &dto.AttachmentRecord{
		TaskID:          dto.NewTaskID("upload", name),
		EmailID:         "upload",
		EmailSubject:    "Uploaded file: " + name,
		EmailReceivedAt: now,
		AttachmentID:    name,
		Filename:        name,
		Content:         content,
		MimeType:        utils.MimeTypeFromFilename(name),
		Size:            int64(len(content)),
		Source:          dto.SourceUpload,
		CreatedAt:       now,
	}, nil
}

// remove deletes a consumed upload so it cannot be enqueued twice.
func (s *Service) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warnf("failed to remove consumed upload %s: %v", path, err)
	}
}
