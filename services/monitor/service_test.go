package monitor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raman369AI/fileProcessor/config"
	fileprocessor_errors "github.com/Raman369AI/fileProcessor/errors"
	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/services/extractor"
	"github.com/Raman369AI/fileProcessor/services/queue"
	"github.com/Raman369AI/fileProcessor/services/results"
)

type fakeMail struct {
	messages    []interfaces.Message
	attachments map[string][]interfaces.AttachmentRef
	downloads   map[string][]byte
	listErr     map[string]error
	fetchGate   chan struct{}
}

func (f *fakeMail) Authenticate(ctx context.Context) error { return nil }

func (f *fakeMail) FetchNewMessages(ctx context.Context) ([]interfaces.Message, error) {
	if f.fetchGate != nil {
		<-f.fetchGate
	}
	return f.messages, nil
}

func (f *fakeMail) ListAttachments(ctx context.Context, messageID string) ([]interfaces.AttachmentRef, error) {
	if err := f.listErr[messageID]; err != nil {
		return nil, err
	}
	return f.attachments[messageID], nil
}

func (f *fakeMail) DownloadAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	return f.downloads[messageID+"|"+attachmentID], nil
}

func (f *fakeMail) HasCursor() bool { return true }

func testLogger() logger.Logger {
	l := logger.NewAppLogger(&logger.Config{LogLevel: "error"})
	l.InitLogger()
	return l
}

func graphCfg() *config.GraphConfig {
	return &config.GraphConfig{ClientID: "c", ClientSecret: "s", TenantID: "t"}
}

func newDirectService(t *testing.T, mail interfaces.MailClient, monitorCfg *config.MonitorConfig) (*Service, *results.Store) {
	t.Helper()
	log := testLogger()
	store, err := results.NewStore(t.TempDir(), log)
	require.NoError(t, err)

	svc := NewMonitorService(graphCfg(), monitorCfg, mail, nil, nil,
		extractor.NewExtractorService(log), store, nil, nil, nil, log)
	return svc, store
}

func newQueueService(t *testing.T, mail interfaces.MailClient, monitorCfg *config.MonitorConfig) (*Service, interfaces.AttachmentQueue, *results.Store) {
	t.Helper()
	log := testLogger()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	q := queue.NewRedisQueueWithClient(client, &config.QueueConfig{
		QueueName:   "email_attachments",
		MaxLength:   1000,
		MaxItemSize: 52428800,
	}, log)

	store, err := results.NewStore(t.TempDir(), log)
	require.NoError(t, err)

	svc := NewMonitorService(graphCfg(), monitorCfg, mail, nil, q,
		extractor.NewExtractorService(log), store, nil, nil, nil, log)
	return svc, q, store
}

func TestProcessCycle_DirectMode(t *testing.T) {
	mail := &fakeMail{
		messages: []interfaces.Message{
			{ID: "msg-1", Subject: "Notes", SenderAddress: "a@b.com", HasAttachments: true},
		},
		attachments: map[string][]interfaces.AttachmentRef{
			"msg-1": {
				{ID: "att-1", Name: "notes.txt", ContentType: "text/plain", Size: 11},
				{ID: "att-2", Name: "image.bmp", Size: 4},
			},
		},
		downloads: map[string][]byte{
			"msg-1|att-1": []byte("hello world"),
		},
	}

	svc, store := newDirectService(t, mail, &config.MonitorConfig{FileTypes: ".txt,.csv"})

	require.NoError(t, svc.ProcessCycle(context.Background()))

	stats := svc.Stats()
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.MessagesProcessed)
	assert.Equal(t, 1, stats.AttachmentsProcessed)
	assert.Zero(t, stats.Errors)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)

	var savedAttachment, sidecar, summary bool
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), "_notes.txt"):
			savedAttachment = true
		case strings.HasSuffix(e.Name(), ".processed.json"):
			sidecar = true
		case strings.Contains(e.Name(), "_processing_summary_"):
			summary = true
		}
	}
	assert.True(t, savedAttachment, "attachment file not saved")
	assert.True(t, sidecar, "processed sidecar not written")
	assert.True(t, summary, "processing summary not written")

	recent, err := store.RecentResults(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "msg-1", recent[0].MessageID)
	assert.Equal(t, 1, recent[0].AttachmentsProcessed)
}

func TestProcessCycle_QueueMode(t *testing.T) {
	mail := &fakeMail{
		messages: []interfaces.Message{
			{ID: "msg-1", Subject: "Invoices", SenderAddress: "a@b.com", HasAttachments: true},
		},
		attachments: map[string][]interfaces.AttachmentRef{
			"msg-1": {
				{ID: "att-1", Name: "one.pdf", ContentType: "application/pdf"},
				{ID: "att-2", Name: "two.pdf", ContentType: "application/pdf"},
			},
		},
		downloads: map[string][]byte{
			"msg-1|att-1": []byte("%PDF-1"),
			"msg-1|att-2": []byte("%PDF-2"),
		},
	}

	svc, q, store := newQueueService(t, mail, &config.MonitorConfig{FileTypes: ".pdf", UseQueue: true})
	require.True(t, svc.QueueMode())

	require.NoError(t, svc.ProcessCycle(context.Background()))

	length, err := q.Length(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), length)

	stats := svc.Stats()
	assert.Equal(t, 2, stats.AttachmentsQueued)
	assert.Zero(t, stats.AttachmentsProcessed)

	record, err := q.DequeueBlocking(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "msg-1", record.EmailID)
	assert.Equal(t, "one.pdf", record.Filename)
	assert.Equal(t, []byte("%PDF-1"), record.Content)
	assert.NotEmpty(t, record.TaskID)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	var enqueueSummary bool
	for _, e := range entries {
		if strings.Contains(e.Name(), "_enqueue_summary_") {
			enqueueSummary = true
		}
	}
	assert.True(t, enqueueSummary, "enqueue summary not written")
}

func TestProcessCycle_EmptyDownloadSkipped(t *testing.T) {
	mail := &fakeMail{
		messages: []interfaces.Message{
			{ID: "msg-1", Subject: "Empty", HasAttachments: true},
		},
		attachments: map[string][]interfaces.AttachmentRef{
			"msg-1": {{ID: "att-1", Name: "ghost.pdf"}},
		},
		downloads: map[string][]byte{},
	}

	svc, store := newDirectService(t, mail, &config.MonitorConfig{FileTypes: ".pdf"})

	require.NoError(t, svc.ProcessCycle(context.Background()))

	stats := svc.Stats()
	assert.Equal(t, 1, stats.DownloadSkips)
	assert.Zero(t, stats.AttachmentsProcessed)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing should have been written")
}

func TestProcessCycle_CountsAttachmentlessMessages(t *testing.T) {
	mail := &fakeMail{
		messages: []interfaces.Message{
			{ID: "msg-with", Subject: "Report", HasAttachments: true},
			{ID: "msg-without", Subject: "Just text", HasAttachments: false},
		},
		attachments: map[string][]interfaces.AttachmentRef{
			"msg-with": {{ID: "att-1", Name: "report.txt"}},
		},
		downloads: map[string][]byte{
			"msg-with|att-1": []byte("numbers"),
		},
	}

	svc, _ := newDirectService(t, mail, &config.MonitorConfig{FileTypes: ".txt"})

	require.NoError(t, svc.ProcessCycle(context.Background()))

	stats := svc.Stats()
	assert.Equal(t, 2, stats.MessagesProcessed)
	assert.Equal(t, 1, stats.AttachmentsProcessed)
	assert.Zero(t, stats.Errors)
}

func TestProcessCycle_EmptyDownloadIsolatedInBatch(t *testing.T) {
	mail := &fakeMail{
		messages: []interfaces.Message{
			{ID: "msg-1", Subject: "Three files", HasAttachments: true},
		},
		attachments: map[string][]interfaces.AttachmentRef{
			"msg-1": {
				{ID: "att-1", Name: "first.txt"},
				{ID: "att-2", Name: "ghost.txt"},
				{ID: "att-3", Name: "third.txt"},
			},
		},
		downloads: map[string][]byte{
			"msg-1|att-1": []byte("first"),
			"msg-1|att-3": []byte("third"),
		},
	}

	svc, _ := newDirectService(t, mail, &config.MonitorConfig{FileTypes: ".txt"})

	require.NoError(t, svc.ProcessCycle(context.Background()))

	stats := svc.Stats()
	assert.Equal(t, 1, stats.MessagesProcessed)
	assert.Equal(t, 2, stats.AttachmentsProcessed)
	assert.Equal(t, 1, stats.DownloadSkips)
	assert.Zero(t, stats.Errors)
}

func TestProcessCycle_ExtensionFiltered(t *testing.T) {
	mail := &fakeMail{
		messages: []interfaces.Message{
			{ID: "msg-1", Subject: "Mixed", HasAttachments: true},
		},
		attachments: map[string][]interfaces.AttachmentRef{
			"msg-1": {{ID: "att-1", Name: "malware.exe"}},
		},
		downloads: map[string][]byte{
			"msg-1|att-1": []byte("MZ"),
		},
	}

	svc, _ := newDirectService(t, mail, &config.MonitorConfig{FileTypes: ".pdf,.docx,.xlsx"})

	require.NoError(t, svc.ProcessCycle(context.Background()))
	assert.Zero(t, svc.Stats().AttachmentsProcessed)
}

func TestProcessCycle_MessageFailureIsolated(t *testing.T) {
	mail := &fakeMail{
		messages: []interfaces.Message{
			{ID: "msg-bad", Subject: "Broken", HasAttachments: true},
			{ID: "msg-good", Subject: "Fine", HasAttachments: true},
		},
		attachments: map[string][]interfaces.AttachmentRef{
			"msg-good": {{ID: "att-1", Name: "a.txt"}},
		},
		downloads: map[string][]byte{
			"msg-good|att-1": []byte("content"),
		},
		listErr: map[string]error{
			"msg-bad": fileprocessor_errors.ErrFetchFailed,
		},
	}

	svc, _ := newDirectService(t, mail, &config.MonitorConfig{FileTypes: ".txt"})

	require.NoError(t, svc.ProcessCycle(context.Background()))

	stats := svc.Stats()
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, stats.AttachmentsProcessed)
	assert.Equal(t, 2, stats.MessagesProcessed)
}

func TestProcessCycle_SingleFlight(t *testing.T) {
	gate := make(chan struct{})
	mail := &fakeMail{fetchGate: gate}

	svc, _ := newDirectService(t, mail, &config.MonitorConfig{})

	done := make(chan error, 1)
	go func() { done <- svc.ProcessCycle(context.Background()) }()

	// wait for the first cycle to be holding the run slot
	require.Eventually(t, func() bool {
		return svc.ProcessCycle(context.Background()) == fileprocessor_errors.ErrCycleInProgress
	}, time.Second, 10*time.Millisecond)

	close(gate)
	require.NoError(t, <-done)

	// slot released, next cycle runs
	require.NoError(t, svc.ProcessCycle(context.Background()))
}

func TestProcessCycle_DisabledWithoutCredentials(t *testing.T) {
	log := testLogger()
	store, err := results.NewStore(t.TempDir(), log)
	require.NoError(t, err)

	svc := NewMonitorService(&config.GraphConfig{}, &config.MonitorConfig{}, &fakeMail{}, nil, nil,
		extractor.NewExtractorService(log), store, nil, nil, nil, log)

	assert.False(t, svc.Enabled())
	assert.ErrorIs(t, svc.ProcessCycle(context.Background()), fileprocessor_errors.ErrIngestionDisabled)
}

func TestProcessCycle_ProcessedSidecarContent(t *testing.T) {
	mail := &fakeMail{
		messages: []interfaces.Message{
			{ID: "msg-1", Subject: "CSV data", HasAttachments: true},
		},
		attachments: map[string][]interfaces.AttachmentRef{
			"msg-1": {{ID: "att-1", Name: "data.csv", ContentType: "text/csv"}},
		},
		downloads: map[string][]byte{
			"msg-1|att-1": []byte("a,b\n1,2\n"),
		},
	}

	svc, store := newDirectService(t, mail, &config.MonitorConfig{FileTypes: ".csv"})

	require.NoError(t, svc.ProcessCycle(context.Background()))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	var sidecarPath string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".processed.json") {
			sidecarPath = filepath.Join(store.Dir(), e.Name())
		}
	}
	require.NotEmpty(t, sidecarPath)

	data, err := os.ReadFile(sidecarPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"file_type": "csv"`)
	assert.Contains(t, string(data), `"email_subject": "CSV data"`)
}
