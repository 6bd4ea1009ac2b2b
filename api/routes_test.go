package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raman369AI/fileProcessor/api/handlers"
	"github.com/Raman369AI/fileProcessor/config"
	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/services/extractor"
	"github.com/Raman369AI/fileProcessor/services/monitor"
	"github.com/Raman369AI/fileProcessor/services/queue"
	"github.com/Raman369AI/fileProcessor/services/results"
)

type stubMail struct{}

func (stubMail) Authenticate(ctx context.Context) error { return nil }
func (stubMail) FetchNewMessages(ctx context.Context) ([]interfaces.Message, error) {
	return nil, nil
}
func (stubMail) ListAttachments(ctx context.Context, messageID string) ([]interfaces.AttachmentRef, error) {
	return nil, nil
}
func (stubMail) DownloadAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	return nil, nil
}
func (stubMail) HasCursor() bool { return false }

func newTestRouter(t *testing.T, withQueue bool, configured bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewAppLogger(&logger.Config{LogLevel: "error"})
	log.InitLogger()

	var q interfaces.AttachmentQueue
	if withQueue {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		q = queue.NewRedisQueueWithClient(client, &config.QueueConfig{
			QueueName:   "email_attachments",
			MaxLength:   100,
			MaxItemSize: 52428800,
		}, log)
	}

	store, err := results.NewStore(t.TempDir(), log)
	require.NoError(t, err)

	graphCfg := &config.GraphConfig{}
	if configured {
		graphCfg = &config.GraphConfig{ClientID: "c", ClientSecret: "s", TenantID: "t"}
	}
	monitorCfg := &config.MonitorConfig{FileTypes: ".pdf,.docx,.xlsx", AttachmentsDir: store.Dir(), UseQueue: withQueue}

	monitorService := monitor.NewMonitorService(graphCfg, monitorCfg, stubMail{}, nil, q,
		extractor.NewExtractorService(log), store, nil, nil, nil, log)

	r := gin.New()
	RegisterRoutes(context.Background(), r, &handlers.Dependencies{
		MonitorConfig: monitorCfg,
		Monitor:       monitorService,
		Queue:         q,
		Store:         store,
		Log:           log,
	}, "")
	return r
}

func do(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRoutes_Health(t *testing.T) {
	r := newTestRouter(t, false, false)
	w := do(r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_Status(t *testing.T) {
	r := newTestRouter(t, true, true)
	w := do(r, http.MethodGet, "/status")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mode":"queue"`)
	assert.Contains(t, w.Body.String(), `"queue_length":0`)
}

func TestRoutes_ProcessNowDisabled(t *testing.T) {
	r := newTestRouter(t, false, false)
	w := do(r, http.MethodPost, "/v1/process-now")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRoutes_ProcessNow(t *testing.T) {
	r := newTestRouter(t, false, true)
	w := do(r, http.MethodPost, "/v1/process-now")
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestRoutes_QueueUnavailable(t *testing.T) {
	r := newTestRouter(t, false, false)
	for _, path := range []string{"/v1/queue/status", "/v1/queue/stats", "/v1/queue/peek", "/v1/queue/health"} {
		w := do(r, http.MethodGet, path)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
	w := do(r, http.MethodPost, "/v1/queue/clear")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRoutes_QueueEndpoints(t *testing.T) {
	r := newTestRouter(t, true, true)

	w := do(r, http.MethodGet, "/v1/queue/status")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"length":0`)

	w = do(r, http.MethodGet, "/v1/queue/stats")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/v1/queue/peek?count=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/v1/queue/peek?count=51")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/v1/queue/peek?count=5")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/v1/queue/clear")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cleared":0`)

	w = do(r, http.MethodGet, "/v1/queue/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_ResultsRecentEmpty(t *testing.T) {
	r := newTestRouter(t, false, true)
	w := do(r, http.MethodGet, "/v1/results/recent")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)

	w = do(r, http.MethodGet, "/v1/results/recent?n=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoutes_ResultsNotFound(t *testing.T) {
	r := newTestRouter(t, false, true)

	w := do(r, http.MethodGet, "/v1/results/no-such-message")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/v1/results/task/no-such-task")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_WorkersUnavailable(t *testing.T) {
	r := newTestRouter(t, false, false)
	for _, path := range []string{"/v1/workers/stats", "/v1/workers/health"} {
		w := do(r, http.MethodGet, path)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
	w := do(r, http.MethodPost, "/v1/workers/restart")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRoutes_APIKeyEnforced(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.NewAppLogger(&logger.Config{LogLevel: "error"})
	log.InitLogger()
	store, err := results.NewStore(t.TempDir(), log)
	require.NoError(t, err)

	monitorCfg := &config.MonitorConfig{}
	monitorService := monitor.NewMonitorService(&config.GraphConfig{}, monitorCfg, stubMail{}, nil, nil,
		extractor.NewExtractorService(log), store, nil, nil, nil, log)

	r := gin.New()
	RegisterRoutes(context.Background(), r, &handlers.Dependencies{
		MonitorConfig: monitorCfg,
		Monitor:       monitorService,
		Store:         store,
		Log:           log,
	}, "topsecret")

	// unauthenticated admin call rejected, public health still open
	w := do(r, http.MethodGet, "/v1/results/recent")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/results/recent", nil)
	req.Header.Set("X-FILEPROCESSOR-API-KEY", "topsecret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutes_ProcessNowConflictTimeout(t *testing.T) {
	// a cycle that finishes within the ack window reports completed
	r := newTestRouter(t, false, true)
	start := time.Now()
	w := do(r, http.MethodPost, "/v1/process-now")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Contains(t, w.Body.String(), "completed")
}
