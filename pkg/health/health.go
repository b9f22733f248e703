// Package health reports whether the storage, cache and broker connections
// of the service are usable.
package health

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/Koyo-os/form-builder/pkg/logger"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

type (
	// Healther is implemented by every dependency that can be checked.
	// IsHealthy should return quickly, it runs on each health request.
	Healther interface {
		IsHealthy() bool
	}

	// HealthChecker checks named components and serves the combined status
	HealthChecker struct {
		logger    *logger.Logger
		healthers map[string]Healther
	}

	// Report is the body written by the /health endpoint
	Report struct {
		Status     string          `json:"status"`
		Components map[string]bool `json:"components"`
	}
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

func NewHealthChecker(logger *logger.Logger) *HealthChecker {
	return &HealthChecker{
		healthers: make(map[string]Healther),
		logger:    logger,
	}
}

// Register adds a component under name, replacing one registered before
func (h *HealthChecker) Register(name string, healther Healther) *HealthChecker {
	h.healthers[name] = healther
	return h
}

// Check asks every component. All of them are asked even after a failure.
func (h *HealthChecker) Check() Report {
	report := Report{
		Status:     StatusOK,
		Components: make(map[string]bool, len(h.healthers)),
	}

	names := make([]string, 0, len(h.healthers))
	for name := range h.healthers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ok := h.healthers[name].IsHealthy()
		report.Components[name] = ok

		if !ok {
			report.Status = StatusDegraded
			h.logger.Error("health check failed", zap.String("component", name))
		}
	}

	return report
}

// HealthCheck answers 200 when every component is healthy and 503 otherwise
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := h.Check()

	body, err := sonic.Marshal(report)
	if err != nil {
		h.logger.Error("error encode health report", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	code := http.StatusOK
	if report.Status != StatusOK {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

// Serve runs a dedicated server for GET /health until ctx is done
func (h *HealthChecker) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HealthCheck)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		srv.Shutdown(shutdownCtx)
	}()

	h.logger.Info("starting health check server", zap.String("addr", addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		h.logger.Error("health check server failed", zap.Error(err))
		return err
	}

	return nil
}
