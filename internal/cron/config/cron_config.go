package cron_config

type Config struct {
	// Mail ingestion cycle, every 5 minutes
	CronScheduleIngest string `env:"CRON_SCHEDULE_INGEST" envDefault:"0 */5 * * * *"`
	// Queue health heartbeat, every minute
	CronScheduleQueueHealth string `env:"CRON_SCHEDULE_QUEUE_HEALTH" envDefault:"0 * * * * *"`
}
