package results

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raman369AI/fileProcessor/dto"
	"github.com/Raman369AI/fileProcessor/internal/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log := logger.NewAppLogger(&logger.Config{LogLevel: "error"})
	log.InitLogger()

	store, err := NewStore(t.TempDir(), log)
	require.NoError(t, err)
	return store
}

func TestStore_SaveAttachmentUsesUniqueDatedName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.SaveAttachment(ctx, "invoice.pdf", []byte("one"))
	require.NoError(t, err)
	second, err := store.SaveAttachment(ctx, "invoice.pdf", []byte("two"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(first, "_invoice.pdf"))
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}_`, first)

	data, err := os.ReadFile(filepath.Join(store.Dir(), first))
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), data)
}

func TestStore_SaveExtractedContentSidecar(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.SaveAttachment(ctx, "notes.txt", []byte("hello"))
	require.NoError(t, err)

	content := dto.NewExtractedContent("txt")
	content.Text = "hello"
	require.NoError(t, store.SaveExtractedContent(ctx, saved, content))

	_, err = os.Stat(filepath.Join(store.Dir(), saved+".processed.json"))
	assert.NoError(t, err)
}

func TestStore_RecentResultsSortedByDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"message-aaaa", "message-bbbb", "message-cccc"} {
		summary := &dto.ProcessingSummary{
			EmailInfo: dto.EmailInfo{
				MessageID:            id,
				Subject:              "subject " + id,
				ProcessedDate:        base.Add(time.Duration(i) * time.Hour),
				AttachmentsProcessed: 1,
			},
		}
		require.NoError(t, store.SaveProcessingSummary(ctx, summary))
	}

	enqueue := &dto.EnqueueSummary{
		EmailInfo: dto.EmailInfo{
			MessageID:           "message-dddd",
			ProcessedDate:       base.Add(10 * time.Hour),
			AttachmentsEnqueued: 2,
		},
	}
	require.NoError(t, store.SaveEnqueueSummary(ctx, enqueue))

	results, err := store.RecentResults(ctx, 10)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "message-dddd", results[0].MessageID)
	assert.Equal(t, "message-cccc", results[1].MessageID)
	assert.Equal(t, "message-aaaa", results[3].MessageID)
}

func TestStore_RecentResultsHonorsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		summary := &dto.ProcessingSummary{
			EmailInfo: dto.EmailInfo{
				MessageID:     "message-" + string(rune('a'+i)),
				ProcessedDate: time.Now().UTC(),
			},
		}
		require.NoError(t, store.SaveProcessingSummary(ctx, summary))
	}

	results, err := store.RecentResults(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestStore_GetSummaryByMessageID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	summary := &dto.ProcessingSummary{
		EmailInfo: dto.EmailInfo{
			MessageID:     "AAMkAGI2TG93AAA=",
			Subject:       "Invoice March",
			ProcessedDate: time.Now().UTC(),
		},
		Attachments: []dto.ProcessedAttachment{{OriginalFilename: "invoice.pdf"}},
	}
	require.NoError(t, store.SaveProcessingSummary(ctx, summary))

	found, err := store.GetSummaryByMessageID(ctx, "AAMkAGI2TG93AAA=")
	require.NoError(t, err)
	require.NotNil(t, found)

	info, ok := found["email_info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Invoice March", info["subject"])

	missing, err := store.GetSummaryByMessageID(ctx, "unknown-message")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_WorkerResultRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result := &dto.WorkerResult{
		TaskID:      "abc12345_def67890_11112222",
		EmailID:     "msg-1",
		Filename:    "invoice.pdf",
		Status:      "completed",
		Attempts:    1,
		ProcessedAt: time.Now().UTC().Truncate(time.Second),
		WorkerID:    "worker-1",
	}
	require.NoError(t, store.SaveWorkerResult(ctx, result))

	loaded, err := store.GetWorkerResult(ctx, result.TaskID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, result.Status, loaded.Status)
	assert.Equal(t, result.Filename, loaded.Filename)

	none, err := store.GetWorkerResult(ctx, "no-such-task")
	require.NoError(t, err)
	assert.Nil(t, none)
}
