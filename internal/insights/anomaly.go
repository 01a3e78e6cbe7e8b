package insights

import (
	"fmt"
	"math"
	"time"

	"github.com/homepulse/homepulse/internal/model"
	"github.com/homepulse/homepulse/internal/stats"
)

// DetectAnomalies flags out-of-band current readings relative to a
// rolling baseline over the lookback window. At most one anomaly per
// monitored family is returned per call; deduplication against prior
// calls belongs to the alerting layer, not here.
func (a *Analyzer) DetectAnomalies(lookbackHours int) ([]model.Anomaly, error) {
	since := time.Now().Add(-time.Duration(lookbackHours) * time.Hour).Unix()

	checks := []func(since int64) (*model.Anomaly, error){
		a.cpuAnomaly,
		a.memoryAnomaly,
		a.poolAnomaly,
		a.diskHealthAnomaly,
	}

	var anomalies []model.Anomaly
	for _, check := range checks {
		anomaly, err := check(since)
		if err != nil {
			return nil, err
		}
		if anomaly != nil {
			anomalies = append(anomalies, *anomaly)
		}
	}
	return anomalies, nil
}

// cpuAnomaly compares the latest CPU reading against the window's
// mean/stddev baseline. A zero stddev means no baseline, not zero
// variance, so nothing is flagged.
func (a *Analyzer) cpuAnomaly(since int64) (*model.Anomaly, error) {
	samples, err := a.store.QuerySamples(model.FamilyCPUPercent, model.EntitySystem, since)
	if err != nil {
		return nil, fmt.Errorf("detecting CPU anomaly: %w", err)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	mean := stats.Mean(values)
	sd := stats.StdDev(values)
	if sd == 0 {
		return nil, nil
	}

	latest := samples[len(samples)-1].Value
	z := (latest - mean) / sd
	if math.Abs(z) <= a.policy.CPUZScoreFlag {
		return nil, nil
	}

	kind := model.AnomalySpike
	if latest < mean {
		kind = model.AnomalyDrop
	}
	severity := model.SeverityMedium
	if math.Abs(z) > a.policy.CPUZScoreHigh {
		severity = model.SeverityHigh
	}

	return &model.Anomaly{
		Metric:        model.FamilyCPUPercent,
		Kind:          kind,
		Severity:      severity,
		CurrentValue:  latest,
		ExpectedValue: mean,
		DeviationPct:  deviationPct(latest, mean),
		Description: fmt.Sprintf("CPU at %.1f%% is %.1f standard deviations from the %.1f%% baseline",
			latest, math.Abs(z), mean),
		Recommendation: "Check for runaway processes or stuck containers",
	}, nil
}

// memoryAnomaly flags saturation on an absolute threshold. Memory
// exhaustion is binary risk (OOM), so the window average is reported as
// the expected value but plays no part in the decision.
func (a *Analyzer) memoryAnomaly(since int64) (*model.Anomaly, error) {
	samples, err := a.store.QuerySamples(model.FamilyMemoryPercent, model.EntitySystem, since)
	if err != nil {
		return nil, fmt.Errorf("detecting memory anomaly: %w", err)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	latest := samples[len(samples)-1].Value
	if latest <= a.policy.MemoryHighPct {
		return nil, nil
	}

	severity := model.SeverityHigh
	if latest > a.policy.MemoryCriticalPct {
		severity = model.SeverityCritical
	}
	mean := stats.Mean(values)

	return &model.Anomaly{
		Metric:        model.FamilyMemoryPercent,
		Kind:          model.AnomalySpike,
		Severity:      severity,
		CurrentValue:  latest,
		ExpectedValue: mean,
		DeviationPct:  deviationPct(latest, mean),
		Description: fmt.Sprintf("Memory at %.1f%% exceeds the %.0f%% saturation threshold",
			latest, a.policy.MemoryHighPct),
		Recommendation: "Identify the largest consumers and consider adding RAM or limiting services",
	}, nil
}

// poolAnomaly flags the single most-full storage pool in the window.
// The expected value is the design-target fill level, not the window
// mean: capacity headroom is a policy goal, not a historical average.
func (a *Analyzer) poolAnomaly(since int64) (*model.Anomaly, error) {
	latest, err := a.store.QueryLatestByEntity(model.FamilyPoolPercentUsed, since)
	if err != nil {
		return nil, fmt.Errorf("detecting pool anomaly: %w", err)
	}
	if len(latest) == 0 {
		return nil, nil
	}

	var fullest model.Sample
	for _, s := range latest {
		if s.Value > fullest.Value {
			fullest = s
		}
	}
	if fullest.Value <= a.policy.PoolHighPct {
		return nil, nil
	}

	severity := model.SeverityHigh
	if fullest.Value > a.policy.PoolCriticalPct {
		severity = model.SeverityCritical
	}

	return &model.Anomaly{
		Metric:        model.FamilyPoolPercentUsed,
		Kind:          model.AnomalyTrend,
		Severity:      severity,
		CurrentValue:  fullest.Value,
		ExpectedValue: a.policy.PoolExpectedPct,
		DeviationPct:  deviationPct(fullest.Value, a.policy.PoolExpectedPct),
		Description: fmt.Sprintf("Pool %q at %.1f%% used exceeds the %.0f%% threshold",
			fullest.Entity, fullest.Value, a.policy.PoolHighPct),
		Recommendation: "Free space, prune snapshots, or expand the pool",
	}, nil
}

// diskHealthAnomaly flags the in-window disk with the most reallocated
// sectors when any of its SMART counters crosses a trigger.
func (a *Analyzer) diskHealthAnomaly(since int64) (*model.Anomaly, error) {
	disks, err := a.store.QueryLatestSMARTByDisk(since)
	if err != nil {
		return nil, fmt.Errorf("detecting disk health anomaly: %w", err)
	}
	if len(disks) == 0 {
		return nil, nil
	}

	worst := disks[0]
	for _, d := range disks[1:] {
		if d.Reallocated > worst.Reallocated {
			worst = d
		}
	}

	flagged := worst.Reallocated > a.policy.ReallocFlag ||
		worst.Pending > a.policy.PendingFlag ||
		worst.Temperature > a.policy.DiskTempFlagC
	if !flagged {
		return nil, nil
	}

	severity := model.SeverityHigh
	if worst.Reallocated > a.policy.ReallocCritical || worst.Pending > a.policy.PendingCritical {
		severity = model.SeverityCritical
	}

	return &model.Anomaly{
		Metric:        "disk_health",
		Kind:          model.AnomalyPattern,
		Severity:      severity,
		CurrentValue:  float64(worst.Reallocated),
		ExpectedValue: 0,
		DeviationPct:  0,
		Description: fmt.Sprintf("Disk %q: %d reallocated sectors, %d pending, %d°C",
			worst.Disk, worst.Reallocated, worst.Pending, worst.Temperature),
		Recommendation: "Run an extended SMART self-test and verify backups for this disk",
	}, nil
}

func deviationPct(current, expected float64) float64 {
	if expected == 0 {
		return 0
	}
	return (current - expected) / expected * 100
}
