package dto

import (
	"fmt"
	"time"
)

// ApplicationConfig is the root configuration structure
type ApplicationConfig struct {
	Application      ApplicationInfo        `mapstructure:"application"`
	Kafka            KafkaConfig            `mapstructure:"kafka"`
	Storage          StorageConfig          `mapstructure:"storage"`
	Observability    ObservabilityConfig    `mapstructure:"observability"`
	Shutdown         ShutdownConfig         `mapstructure:"shutdown"`
	QuotaEnforcement QuotaEnforcementConfig `mapstructure:"quota_enforcement"`
}

// QuotaEnforcementConfig contains hybrid-store partition quota enforcement
// settings: the store/version this process enforces quota for, the
// store-level byte quota (split evenly across partitions by the
// controller), and the redundant-log suppression window.
type QuotaEnforcementConfig struct {
	StoreName              string        `mapstructure:"store_name"`
	VersionTopic           string        `mapstructure:"version_topic"`
	PartitionCount         int           `mapstructure:"partition_count"`
	StorageQuotaInBytes    int64         `mapstructure:"storage_quota_in_bytes"`
	SuppressionWindow      time.Duration `mapstructure:"suppression_window"`
	MetricsEnabled         bool          `mapstructure:"metrics_enabled"`
	StoreSnapshotDirectory string        `mapstructure:"store_snapshot_directory"`
}

// ApplicationInfo contains application metadata
type ApplicationInfo struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// KafkaConfig contains Kafka-related configuration
type KafkaConfig struct {
	BootstrapServers []string       `mapstructure:"bootstrap_servers"`
	SecurityProtocol string         `mapstructure:"security_protocol"`
	SASLMechanism    string         `mapstructure:"sasl_mechanism"`
	SASLUsername     string         `mapstructure:"sasl_username"`
	SASLPassword     string         `mapstructure:"sasl_password"`
	Consumer         ConsumerConfig `mapstructure:"consumer"`
}

// ConsumerConfig contains Kafka consumer group tuning, mapped onto
// sarama.Config's consumer-group fields when the quota enforcer builds its
// consumer group.
type ConsumerConfig struct {
	GroupID             string   `mapstructure:"group_id"`
	Topics              []string `mapstructure:"topics"`
	AutoOffsetReset     string   `mapstructure:"auto_offset_reset"`
	EnableAutoCommit    bool     `mapstructure:"enable_auto_commit"`
	MaxPollRecords      int      `mapstructure:"max_poll_records"`
	MaxPollIntervalMS   int      `mapstructure:"max_poll_interval_ms"`
	SessionTimeoutMS    int      `mapstructure:"session_timeout_ms"`
	HeartbeatIntervalMS int      `mapstructure:"heartbeat_interval_ms"`
}

// StorageConfig contains storage backend configuration. Only the file and
// s3 backends have a storage engine; newStorageEngine rejects anything else.
type StorageConfig struct {
	Backend string     `mapstructure:"backend"`
	S3      S3Config   `mapstructure:"s3"`
	File    FileConfig `mapstructure:"file"`
}

// S3Config contains AWS S3 configuration. The quota enforcer only ever
// lists and sums object sizes under a partition prefix, so this carries no
// write-side (SSE) settings — see adapters.S3StorageEngineConfig.
type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	BasePath     string `mapstructure:"base_path"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// FileConfig contains local filesystem configuration
type FileConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// ObservabilityConfig contains observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Health  HealthConfig  `mapstructure:"health"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig contains metrics settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// TracingConfig contains tracing settings
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Exporter   string  `mapstructure:"exporter"`
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

// HealthConfig contains health check settings
type HealthConfig struct {
	Port          int    `mapstructure:"port"`
	LivenessPath  string `mapstructure:"liveness_path"`
	ReadinessPath string `mapstructure:"readiness_path"`
}

// ShutdownConfig contains shutdown settings
type ShutdownConfig struct {
	GracePeriodSeconds  time.Duration `mapstructure:"grace_period_seconds"`
	ForceTimeoutSeconds time.Duration `mapstructure:"force_timeout_seconds"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.Application.Name == "" {
		return fmt.Errorf("application name is required")
	}
	if len(c.Kafka.BootstrapServers) == 0 {
		return fmt.Errorf("kafka bootstrap servers are required")
	}
	if c.Kafka.Consumer.GroupID == "" {
		return fmt.Errorf("kafka consumer group ID is required")
	}
	if c.Storage.Backend == "" {
		return fmt.Errorf("storage backend is required")
	}
	return nil
}

// Validate validates S3 configuration.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}
	if c.Region == "" {
		return fmt.Errorf("s3 region is required")
	}
	return nil
}

// Validate validates file configuration.
func (c *FileConfig) Validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("file base path is required")
	}
	return nil
}

// Validate validates quota enforcement configuration.
func (c *QuotaEnforcementConfig) Validate() error {
	if c.StoreName == "" {
		return fmt.Errorf("quota enforcement store name is required")
	}
	if c.VersionTopic == "" {
		return fmt.Errorf("quota enforcement version topic is required")
	}
	if c.PartitionCount <= 0 {
		return fmt.Errorf("quota enforcement partition count must be positive")
	}
	return nil
}
