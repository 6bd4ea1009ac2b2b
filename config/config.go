package config

import (
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/internal/tracing"
)

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"8000"`
	APIKey      string `env:"API_KEY"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type GraphConfig struct {
	ClientID     string `env:"AZURE_CLIENT_ID"`
	ClientSecret string `env:"AZURE_CLIENT_SECRET"`
	TenantID     string `env:"AZURE_TENANT_ID"`
	// comma separated, case-insensitive substring match on sender address
	EmailGroups    string `env:"EMAIL_GROUPS"`
	BaseURL        string `env:"GRAPH_BASE_URL" envDefault:"https://graph.microsoft.com/v1.0"`
	AuthorityURL   string `env:"GRAPH_AUTHORITY_URL" envDefault:"https://login.microsoftonline.com"`
	CursorFile     string `env:"DELTA_LINK_FILE" envDefault:"delta_link.txt"`
	RequestTimeout int    `env:"GRAPH_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
}

func (g *GraphConfig) IsConfigured() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.TenantID != ""
}

type MonitorConfig struct {
	// comma separated extension allow-list; empty accepts everything
	FileTypes      string `env:"FILE_TYPES" envDefault:".pdf,.docx,.xlsx"`
	AttachmentsDir string `env:"ATTACHMENTS_DIR" envDefault:"email_attachments"`
	UploadDir      string `env:"UPLOAD_DIR"`
	UseQueue       bool   `env:"USE_QUEUE" envDefault:"false"`
}

type QueueConfig struct {
	RedisURL      string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	QueueName     string `env:"EMAIL_QUEUE_NAME" envDefault:"email_attachments"`
	MaxLength     int64  `env:"MAX_QUEUE_SIZE" envDefault:"1000"`
	MaxItemSize   int64  `env:"MAX_ATTACHMENT_SIZE" envDefault:"52428800"`
	DequeueWindow int    `env:"QUEUE_DEQUEUE_TIMEOUT_SECONDS" envDefault:"5"`
}

type WorkerConfig struct {
	Count          int `env:"WORKER_COUNT" envDefault:"2"`
	MaxRetries     int `env:"WORKER_MAX_RETRIES" envDefault:"3"`
	RetryBaseDelay int `env:"WORKER_RETRY_BASE_DELAY_SECONDS" envDefault:"2"`
	LivenessPoll   int `env:"WORKER_LIVENESS_POLL_SECONDS" envDefault:"10"`
}

type DatabaseConfig struct {
	Host            string `env:"POSTGRES_HOST"`
	Port            string `env:"POSTGRES_PORT" envDefault:"5432"`
	User            string `env:"POSTGRES_USER"`
	DBName          string `env:"POSTGRES_DB_NAME"`
	Password        string `env:"POSTGRES_PASSWORD"`
	MaxConn         int    `env:"POSTGRES_DB_MAX_CONN" envDefault:"20"`
	MaxIdleConn     int    `env:"POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
}

func (d *DatabaseConfig) IsConfigured() bool {
	return d.Host != "" && d.User != "" && d.DBName != ""
}

type StorageConfig struct {
	Provider              string `env:"STORAGE_PROVIDER" envDefault:"local"` // local, s3, r2
	AWSRegion             string `env:"AWS_REGION"`
	AccessKeyID           string `env:"STORAGE_ACCESS_KEY_ID"`
	AccessKeySecret       string `env:"STORAGE_ACCESS_KEY_SECRET"`
	R2AccountID           string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	AttachmentBucket      string `env:"BUCKET_NAME_ATTACHMENT" envDefault:"attachments"`
	MirrorToObjectStorage bool   `env:"MIRROR_TO_OBJECT_STORAGE" envDefault:"false"`
}

type Config struct {
	AppConfig      *AppConfig
	GraphConfig    *GraphConfig
	MonitorConfig  *MonitorConfig
	QueueConfig    *QueueConfig
	WorkerConfig   *WorkerConfig
	DatabaseConfig *DatabaseConfig
	StorageConfig  *StorageConfig
	Logger         *logger.Config
	Tracing        *tracing.JaegerConfig
}
