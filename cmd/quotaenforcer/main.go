// Command quotaenforcer runs a standalone hybrid-store partition quota
// enforcer bound to one store's version topic: it consumes the topic only
// to observe per-partition byte throughput, samples on-disk usage from a
// storage engine, and pauses or resumes partitions against the store's
// quota. It does not write the consumed records anywhere; record handling
// belongs to the ingestion task this enforcer would normally be embedded
// in, which is out of scope here.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jittakal/quotaenforcer/internal/config"
	"github.com/jittakal/quotaenforcer/internal/config/dto"
	"github.com/jittakal/quotaenforcer/internal/observability"
	pquota "github.com/jittakal/quotaenforcer/internal/quota"
	"github.com/jittakal/quotaenforcer/internal/quota/adapters"
	"github.com/jittakal/quotaenforcer/internal/server"
	"github.com/jittakal/quotaenforcer/pkg/quota"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	var cfgPath string
	if *configPath != "" {
		cfgPath = *configPath
	} else if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		cfgPath = envPath
	} else {
		cfgPath = "config/quotaenforcer.yaml"
	}

	loader := config.NewLoader()
	cfg, err := loader.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	identity := observability.EnforcerIdentity{
		StoreName:    cfg.QuotaEnforcement.StoreName,
		VersionTopic: cfg.QuotaEnforcement.VersionTopic,
	}
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
		Output: cfg.Observability.Logging.Output,
	}, identity).With("run_id", uuid.NewString())
	logger.Info("starting quota enforcer")

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	storageEngine, err := newStorageEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to build storage engine: %w", err)
	}

	partitionConsumer := adapters.NewSaramaPartitionConsumer()
	dispatcher := adapters.NewLoggingDispatcher(cfg.QuotaEnforcement.StoreName, logger, metrics)
	task := adapters.NewIngestionTaskShim(
		cfg.QuotaEnforcement.StoreName,
		[]quota.LogConsumer{partitionConsumer},
		dispatcher,
		metrics,
		cfg.QuotaEnforcement.MetricsEnabled,
		metrics,
	)

	controller, err := pquota.New(pquota.Config{
		Task:          task,
		StorageEngine: storageEngine,
		Suppressor:    pquota.NewLogSuppressor(cfg.QuotaEnforcement.SuppressionWindow),
		Logger:        logger,
		Store: quota.StoreSnapshot{
			Name:                cfg.QuotaEnforcement.StoreName,
			StorageQuotaInBytes: cfg.QuotaEnforcement.StorageQuotaInBytes,
			Versions: map[int]quota.VersionSnapshot{
				mustVersionNumber(cfg.QuotaEnforcement.VersionTopic): {Status: quota.ONLINE},
			},
		},
		VersionTopic:   cfg.QuotaEnforcement.VersionTopic,
		PartitionCount: cfg.QuotaEnforcement.PartitionCount,
	})
	if err != nil {
		return fmt.Errorf("failed to construct quota controller: %w", err)
	}

	var bus *adapters.FileStoreChangeBus
	if dir := cfg.QuotaEnforcement.StoreSnapshotDirectory; dir != "" {
		bus, err = adapters.NewFileStoreChangeBus(dir, logger)
		if err != nil {
			return fmt.Errorf("failed to build store change bus: %w", err)
		}
		bus.Subscribe(controller)
	}

	if err := adapters.ValidateBootstrapServers(cfg.Kafka.BootstrapServers); err != nil {
		return fmt.Errorf("invalid kafka configuration: %w", err)
	}

	saramaConfig := newSaramaConsumerConfig(cfg.Kafka.Consumer)

	group, err := sarama.NewConsumerGroup(cfg.Kafka.BootstrapServers, cfg.Kafka.Consumer.GroupID, saramaConfig)
	if err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	defer group.Close()

	handler := &quotaHandler{
		controller:        controller,
		partitionConsumer: partitionConsumer,
		logger:            logger,
	}

	healthChecker := &enforcerHealthChecker{}
	httpServer := server.NewServer(
		cfg.Observability.Health.Port,
		cfg.Observability.Metrics.Port,
		healthChecker,
		server.EnforcerIdentity{StoreName: identity.StoreName, VersionTopic: identity.VersionTopic},
		registry,
		logger,
	)
	if err := httpServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if bus != nil {
		go func() {
			if err := bus.Start(ctx); err != nil {
				logger.Error("store change bus stopped", "error", err)
			}
		}()
	}

	consumeErrChan := make(chan error, 1)
	go func() {
		for {
			if err := group.Consume(ctx, []string{cfg.QuotaEnforcement.VersionTopic}, handler); err != nil {
				if ctx.Err() != nil {
					consumeErrChan <- nil
					return
				}
				consumeErrChan <- fmt.Errorf("consumer group session error: %w", err)
				return
			}
			if ctx.Err() != nil {
				consumeErrChan <- nil
				return
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("received termination signal")
	case err := <-consumeErrChan:
		if err != nil {
			logger.Error("consume loop failed", "error", err)
			return err
		}
	}

	logger.Info("initiating graceful shutdown")
	cancel()
	if bus != nil {
		bus.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("quota enforcer stopped")
	return nil
}

func mustVersionNumber(versionTopic string) int {
	n, err := quota.ParseVersionNumber(versionTopic)
	if err != nil {
		return 0
	}
	return n
}

func newStorageEngine(cfg *dto.ApplicationConfig) (quota.StorageEngine, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return adapters.NewS3StorageEngine(context.Background(), adapters.S3StorageEngineConfig{
			Bucket:       cfg.Storage.S3.Bucket,
			Region:       cfg.Storage.S3.Region,
			BasePath:     cfg.Storage.S3.BasePath,
			Endpoint:     cfg.Storage.S3.Endpoint,
			UsePathStyle: cfg.Storage.S3.UsePathStyle,
		})
	case "file":
		return adapters.NewFileStorageEngine(cfg.Storage.File.BasePath), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

// newSaramaConsumerConfig maps the consumer group tuning knobs onto a
// sarama.Config. The enforcer never commits offsets on its own behalf
// beyond what the consumer group machinery already does, but it still
// needs these knobs to avoid triggering a rebalance storm on a store with
// slow partition quota checks.
func newSaramaConsumerConfig(cfg dto.ConsumerConfig) *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V2_8_0_0
	saramaConfig.Consumer.Offsets.Initial = offsetInitial(cfg.AutoOffsetReset)
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = cfg.EnableAutoCommit

	if cfg.SessionTimeoutMS > 0 {
		saramaConfig.Consumer.Group.Session.Timeout = time.Duration(cfg.SessionTimeoutMS) * time.Millisecond
	}
	if cfg.HeartbeatIntervalMS > 0 {
		saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(cfg.HeartbeatIntervalMS) * time.Millisecond
	}
	if cfg.MaxPollIntervalMS > 0 {
		saramaConfig.Consumer.MaxProcessingTime = time.Duration(cfg.MaxPollIntervalMS) * time.Millisecond
	}
	if cfg.MaxPollRecords > 0 {
		saramaConfig.Consumer.Fetch.Max = int32(cfg.MaxPollRecords)
	}

	saramaConfig.Consumer.Return.Errors = true
	return saramaConfig
}

func offsetInitial(autoOffsetReset string) int64 {
	switch autoOffsetReset {
	case "earliest":
		return sarama.OffsetOldest
	case "latest":
		return sarama.OffsetNewest
	default:
		return sarama.OffsetOldest
	}
}

// quotaHandler drives the quota controller from consumer group claims: it
// does not process record contents, only their cumulative size per batch,
// and installs the session on the shared partition consumer so pause/resume
// calls land on the session currently assigned to this partition.
type quotaHandler struct {
	controller        *pquota.Controller
	partitionConsumer *adapters.SaramaPartitionConsumer
	logger            *slog.Logger
}

func (h *quotaHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.partitionConsumer.SetSession(session)
	return nil
}

func (h *quotaHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *quotaHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	partition := quota.PartitionID(claim.Partition())

	for message := range claim.Messages() {
		batch := map[quota.PartitionID]int64{partition: int64(len(message.Value))}
		if err := h.controller.CheckPartitionQuota(batch); err != nil {
			h.logger.Error("quota check failed", "partition", partition, "error", err)
		}
		session.MarkMessage(message, "")
	}
	return nil
}

// enforcerHealthChecker reports healthy once constructed; a production
// deployment would gate readiness on consumer group join completion.
type enforcerHealthChecker struct{}

func (h *enforcerHealthChecker) Liveness() bool { return true }

func (h *enforcerHealthChecker) Readiness(ctx context.Context) bool { return true }

func (h *enforcerHealthChecker) IsHealthy() bool { return true }

func (h *enforcerHealthChecker) GetStatus() map[string]string {
	return map[string]string{"status": "healthy"}
}
