// Package monitor runs the periodic analysis sweep and turns findings
// into alerts.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/homepulse/homepulse/internal/insights"
	"github.com/homepulse/homepulse/internal/model"
	"github.com/homepulse/homepulse/internal/notify"
	"github.com/homepulse/homepulse/internal/store"
)

// Config holds monitor loop settings.
type Config struct {
	Interval      time.Duration
	LookbackHours int
	Cooldown      time.Duration
}

// DefaultConfig returns sensible monitor defaults.
func DefaultConfig() Config {
	return Config{
		Interval:      15 * time.Minute,
		LookbackHours: 24,
		Cooldown:      6 * time.Hour,
	}
}

// Monitor periodically re-runs anomaly detection and disk risk scoring
// and notifies on findings. One alert key per finding, with a cooldown
// so a persistent condition does not page every sweep.
type Monitor struct {
	analyzer  *insights.Analyzer
	store     *store.Store
	providers []notify.Provider
	config    Config

	// alert key to last fired time
	lastFired map[string]time.Time
}

// New creates a monitor.
func New(a *insights.Analyzer, s *store.Store, providers []notify.Provider, cfg Config) *Monitor {
	return &Monitor{
		analyzer:  a,
		store:     s,
		providers: providers,
		config:    cfg,
		lastFired: make(map[string]time.Time),
	}
}

// Run starts the sweep loop. Blocks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	slog.Info("monitor started", "interval", m.config.Interval)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *Monitor) sweep(ctx context.Context) {
	now := time.Now()
	m.cleanup(now)

	anomalies, err := m.analyzer.DetectAnomalies(m.config.LookbackHours)
	if err != nil {
		slog.Error("detecting anomalies", "error", err)
	}
	for _, anomaly := range anomalies {
		if anomaly.Severity.Rank() < model.SeverityMedium.Rank() {
			continue
		}
		key := fmt.Sprintf("anomaly:%s", anomaly.Metric)
		m.fire(ctx, now, key, model.Notification{
			AlertType: "anomaly",
			Severity:  notifySeverity(anomaly.Severity),
			Title:     fmt.Sprintf("Anomaly: %s %s", anomaly.Metric, anomaly.Kind),
			Message:   anomaly.Description,
			Subject:   anomaly.Metric,
			Timestamp: now,
			Metadata: map[string]string{
				"current":        fmt.Sprintf("%.1f", anomaly.CurrentValue),
				"expected":       fmt.Sprintf("%.1f", anomaly.ExpectedValue),
				"recommendation": anomaly.Recommendation,
			},
		})
	}

	predictions, err := m.analyzer.PredictAllDiskFailures()
	if err != nil {
		slog.Error("scoring disk failure risk", "error", err)
	}
	for _, p := range predictions {
		if p.FailureProbability < m.analyzer.Policy().RiskMedium {
			continue
		}
		key := fmt.Sprintf("disk_risk:%s", p.Disk)
		m.fire(ctx, now, key, model.Notification{
			AlertType: "disk_failure_risk",
			Severity:  diskRiskSeverity(p.FailureProbability, m.analyzer.Policy().RiskCritical),
			Title:     fmt.Sprintf("Disk failure risk: %s", p.Disk),
			Message: fmt.Sprintf("%s failure probability %.0f%%: %s",
				p.Disk, p.FailureProbability, p.RecommendedAction),
			Subject:   p.Disk,
			Timestamp: now,
			Metadata: map[string]string{
				"probability": fmt.Sprintf("%.0f", p.FailureProbability),
			},
		})
	}
}

func (m *Monitor) cleanup(now time.Time) {
	for key, t := range m.lastFired {
		if now.Sub(t) > 4*m.config.Cooldown {
			delete(m.lastFired, key)
		}
	}
}

func (m *Monitor) fire(ctx context.Context, now time.Time, key string, notif model.Notification) {
	if last, ok := m.lastFired[key]; ok && now.Sub(last) < m.config.Cooldown {
		return // still in cooldown
	}
	m.lastFired[key] = now

	if err := m.store.InsertAlert(now.Unix(), notif.AlertType, notif.Subject, notif.Message, notif.Severity); err != nil {
		slog.Error("storing alert", "type", notif.AlertType, "error", err)
	}

	if err := notify.Broadcast(ctx, m.providers, notif); err != nil {
		slog.Error("sending notification", "alert", notif.AlertType, "error", err)
	}

	slog.Warn("alert fired",
		"type", notif.AlertType,
		"severity", notif.Severity,
		"subject", notif.Subject,
		"title", notif.Title,
	)
}

func notifySeverity(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "critical"
	case model.SeverityHigh, model.SeverityMedium:
		return "warning"
	default:
		return "info"
	}
}

func diskRiskSeverity(probability, critical float64) string {
	if probability >= critical {
		return "critical"
	}
	return "warning"
}
