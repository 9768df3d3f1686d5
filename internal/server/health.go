// Package server implements health check handlers.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// HealthResponse represents the health check response. Store and
// VersionTopic identify which hybrid-store enforcer instance answered the
// probe, so a fleet of enforcers behind the same scrape config can be told
// apart without cross-referencing the listening port back to a deployment.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Store        string            `json:"store,omitempty"`
	VersionTopic string            `json:"version_topic,omitempty"`
	Checks       map[string]string `json:"checks,omitempty"`
}

// LivenessHandler returns a handler for Kubernetes liveness probes.
// Liveness probes should only fail if the process needs to be restarted.
func LivenessHandler(checker HealthChecker, identity EnforcerIdentity, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "alive"
		statusCode := http.StatusOK

		if !checker.Liveness() {
			status = "not alive"
			statusCode = http.StatusServiceUnavailable
		}

		response := HealthResponse{
			Status:       status,
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			Store:        identity.StoreName,
			VersionTopic: identity.VersionTopic,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.Error("failed to encode liveness response", "error", err)
		}
	}
}

// ReadinessHandler returns a handler for Kubernetes readiness probes.
// Readiness probes indicate if the application can handle traffic.
func ReadinessHandler(checker HealthChecker, identity EnforcerIdentity, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ready"
		statusCode := http.StatusOK

		if !checker.Readiness(r.Context()) {
			status = "not ready"
			statusCode = http.StatusServiceUnavailable
		}

		response := HealthResponse{
			Status:       status,
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			Store:        identity.StoreName,
			VersionTopic: identity.VersionTopic,
			Checks:       checker.GetStatus(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.Error("failed to encode readiness response", "error", err)
		}
	}
}
