package adapters

import (
	"fmt"
	"log/slog"

	pquota "github.com/jittakal/quotaenforcer/pkg/quota"
)

// CompletionMetrics is the subset of observability.Metrics the completion
// notifier increments.
type CompletionMetrics interface {
	IncCompletionReports(store string)
}

// LoggingDispatcher reports completion by logging it and incrementing a
// counter; a production dispatcher would also flip the replica's status
// in the ingestion task's own bookkeeping, which is out of scope here
// (§1 names the notification dispatcher as an external collaborator).
type LoggingDispatcher struct {
	storeName string
	logger    *slog.Logger
	metrics   CompletionMetrics
}

// NewLoggingDispatcher builds a dispatcher for the given store.
func NewLoggingDispatcher(storeName string, logger *slog.Logger, metrics CompletionMetrics) *LoggingDispatcher {
	return &LoggingDispatcher{storeName: storeName, logger: logger, metrics: metrics}
}

// ReportCompleted logs the completion shortcut and increments the
// completion-reports counter.
func (d *LoggingDispatcher) ReportCompleted(state pquota.PartitionConsumptionState) error {
	if state == nil {
		return fmt.Errorf("adapters: cannot report completion for a nil consumption state")
	}

	d.logger.Info("reporting completion via quota-exceeded shortcut",
		"store", d.storeName,
	)
	if d.metrics != nil {
		d.metrics.IncCompletionReports(d.storeName)
	}
	return nil
}

var _ pquota.NotificationDispatcher = (*LoggingDispatcher)(nil)
