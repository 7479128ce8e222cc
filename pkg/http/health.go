package http

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"dialog-analyzer/pkg/version"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Timestamp string                 `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
	System    SystemInfo             `json:"system"`
}

// CheckResult represents an individual health check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemInfo contains system resource information
type SystemInfo struct {
	GoRoutines int    `json:"goroutines"`
	MemoryMB   uint64 `json:"memory_mb"`
	CPUCount   int    `json:"cpu_count"`
}

// HealthHandler handles health check requests
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status:    "healthy",
		Version:   version.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Checks:    make(map[string]CheckResult),
	}

	if s.analyzer != nil {
		health.Checks["analyzer"] = CheckResult{
			Status: "healthy",
		}
	} else {
		health.Checks["analyzer"] = CheckResult{
			Status:  "unhealthy",
			Message: "Analyzer not initialized",
		}
		health.Status = "unhealthy"
	}

	if s.publisher == nil {
		health.Checks["amqp"] = CheckResult{
			Status:  "disabled",
			Message: "AMQP publishing not configured",
		}
	} else if s.publisher.IsConnected() {
		health.Checks["amqp"] = CheckResult{
			Status: "healthy",
		}
	} else {
		health.Checks["amqp"] = CheckResult{
			Status:  "degraded",
			Message: "AMQP connection lost",
		}
	}

	if s.hub != nil {
		health.Checks["websocket"] = CheckResult{
			Status: "healthy",
		}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	health.System = SystemInfo{
		GoRoutines: runtime.NumGoroutine(),
		MemoryMB:   memStats.Alloc / 1024 / 1024,
		CPUCount:   runtime.NumCPU(),
	}

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}

// LivenessHandler responds as long as the process is serving requests
func (s *Server) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// ReadinessHandler reports whether the service can accept analysis requests
func (s *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.analyzer == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
