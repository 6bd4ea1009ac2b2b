package cron

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	fileprocessor_errors "github.com/Raman369AI/fileProcessor/errors"
	"github.com/Raman369AI/fileProcessor/interfaces"
	cron_config "github.com/Raman369AI/fileProcessor/internal/cron/config"
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/internal/tracing"
	"github.com/Raman369AI/fileProcessor/services/monitor"
)

// CONSTANTS
const (
	// GroupIngestion is the group for mail ingestion jobs
	GroupIngestion = "ingestion"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupIngestion: new(sync.Mutex),
	},
}

type CronManager struct {
	log     logger.Logger
	cron    *cronv3.Cron
	k8s     kubernetes.Interface
	stopCh  chan struct{}
	jobIDs  map[string]cronv3.EntryID
	monitor *monitor.Service
	queue   interfaces.AttachmentQueue
}

func NewCronManager(log logger.Logger, k8s kubernetes.Interface, monitorService *monitor.Service, queue interfaces.AttachmentQueue) *CronManager {
	return &CronManager{
		log:     log,
		k8s:     k8s,
		stopCh:  make(chan struct{}),
		jobIDs:  make(map[string]cronv3.EntryID),
		monitor: monitorService,
		queue:   queue,
	}
}

// Start initializes and starts the cron manager with leader election
// If k8s is nil, it will start in local mode without leader election
func (cm *CronManager) Start(podName, namespace string) error {
	// If k8s client is nil or we're in local development, start in local mode
	if cm.k8s == nil || os.Getenv("LOCAL_DEV") == "true" {
		cm.log.Info("Starting cron manager in local mode")
		cm.StartCron()
		return nil
	}

	// Create the leader election lock
	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      "fileprocessor-cron-leader",
			Namespace: namespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: podName,
		},
	}

	// Channel to track leader election errors
	errCh := make(chan error, 1)

	// Start leader election
	go func() {
		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					cm.StartCron()
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.Stop()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		ctx := context.Background()
		le.Run(ctx)
	}()

	// Wait briefly to see if leader election fails immediately
	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		cm.StartCron()
	case <-time.After(5 * time.Second):
		// Leader election seems to be working, continue normally
	}

	return nil
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	// Load cron config from environment variables
	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	// Register the mail ingestion job
	if cronConfig.CronScheduleIngest != "" && cm.monitor != nil {
		id, err := c.AddFunc(cronConfig.CronScheduleIngest, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupIngestion].Lock()
			defer jobLocks.locks[GroupIngestion].Unlock()
			cm.runIngestCycle()
		})
		if err != nil {
			cm.log.Fatalf("Could not add ingest cron job: %v", err)
		}
		cm.jobIDs["ingest"] = id
		cm.log.Infof("Registered ingest job with schedule: %s", cronConfig.CronScheduleIngest)
	}

	// Register the queue health heartbeat
	if cronConfig.CronScheduleQueueHealth != "" && cm.queue != nil {
		id, err := c.AddFunc(cronConfig.CronScheduleQueueHealth, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.checkQueueHealth()
		})
		if err != nil {
			cm.log.Fatalf("Could not add queue health cron job: %v", err)
		}
		cm.jobIDs["queue_health"] = id
		cm.log.Infof("Registered queue health job with schedule: %s", cronConfig.CronScheduleQueueHealth)
	}
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	// Create a new cron with seconds field enabled and panic recovery
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger), // Skip if still running
			cronv3.Recover(cronv3.DefaultLogger),            // Default recovery as backup
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

func (cm *CronManager) runIngestCycle() {
	cm.log.Info("Running scheduled mail ingestion cycle")

	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.runIngestCycle")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	err := cm.monitor.ProcessCycle(ctx)
	switch err {
	case nil:
		cm.log.Info("Successfully completed mail ingestion cycle")
	case fileprocessor_errors.ErrCycleInProgress:
		cm.log.Info("Skipping ingestion cycle, previous one still running")
	case fileprocessor_errors.ErrIngestionDisabled:
		cm.log.Warn("Mail ingestion is not configured, skipping cycle")
	default:
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to run ingestion cycle: %v", err)
	}
}

func (cm *CronManager) checkQueueHealth() {
	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.checkQueueHealth")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	health := cm.queue.HealthCheck(ctx)
	if !health.Connected || !health.Accessible {
		cm.log.Errorf("Queue health check failed: %v", health.Errors)
		return
	}
	cm.log.Infof("Queue healthy, %d items pending", health.Length)
}
