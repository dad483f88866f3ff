package utils

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pinger is anything the health monitor can ping.
type Pinger func(ctx context.Context) error

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Healthy   bool            `json:"healthy"`
	Services  map[string]bool `json:"services"`
	CheckedAt time.Time       `json:"checkedAt"`
}

// HealthMonitor periodically pings dependencies and keeps the last snapshot.
type HealthMonitor struct {
	pingers  map[string]Pinger
	interval time.Duration
	logger   *zap.Logger

	mu      sync.RWMutex
	current HealthStatus
}

func NewHealthMonitor(interval time.Duration, logger *zap.Logger, pingers map[string]Pinger) *HealthMonitor {
	return &HealthMonitor{
		pingers:  pingers,
		interval: interval,
		logger:   logger,
		current:  HealthStatus{Healthy: true, Services: map[string]bool{}},
	}
}

// Status returns latest stored health snapshot.
func (m *HealthMonitor) Status() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Check pings every dependency once and stores the result.
func (m *HealthMonitor) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{Healthy: true, Services: make(map[string]bool, len(m.pingers)), CheckedAt: time.Now()}
	for name, ping := range m.pingers {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := ping(pctx)
		cancel()
		status.Services[name] = err == nil
		if err != nil {
			status.Healthy = false
			m.logger.Warn("Health check failed", zap.String("service", name), zap.Error(err))
		}
	}
	m.mu.Lock()
	m.current = status
	m.mu.Unlock()
	return status
}

// Start runs Check on every tick until ctx is cancelled.
func (m *HealthMonitor) Start(ctx context.Context) {
	m.Check(ctx)
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}
