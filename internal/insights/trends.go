package insights

import (
	"fmt"
	"time"

	"github.com/homepulse/homepulse/internal/model"
	"github.com/homepulse/homepulse/internal/stats"
)

// AnalyzeTrends classifies how each monitored metric family evolved over
// the period. Families with too little data are silently omitted; a
// trend report over missing data helps nobody.
func (a *Analyzer) AnalyzeTrends(periodDays int) ([]model.PerformanceTrend, error) {
	since := time.Now().AddDate(0, 0, -periodDays).Unix()

	var trends []model.PerformanceTrend

	// Weekly comparison mode: noisy gauges where the interesting signal
	// is week-over-week movement, not the absolute level.
	for _, family := range []string{model.FamilyCPUPercent, model.FamilyDiskTemperature} {
		t, err := a.weeklyTrend(family, periodDays, since)
		if err != nil {
			return nil, err
		}
		if t != nil {
			trends = append(trends, *t)
		}
	}

	// Threshold mode: utilization gauges where a high sustained average
	// is itself the problem.
	memory, err := a.utilizationTrend(model.FamilyMemoryPercent, model.EntitySystem, periodDays, since,
		"Review container memory limits or add RAM")
	if err != nil {
		return nil, err
	}
	if memory != nil {
		trends = append(trends, *memory)
	}
	storage, err := a.utilizationTrend(model.FamilyPoolPercentUsed, "", periodDays, since,
		"Free space or expand the fullest pool")
	if err != nil {
		return nil, err
	}
	if storage != nil {
		trends = append(trends, *storage)
	}

	return trends, nil
}

// weeklyTrend compares the most recent week's average against the first
// week's. Volatility is checked before direction: a metric swinging half
// its mean has no meaningful direction.
func (a *Analyzer) weeklyTrend(family string, periodDays int, since int64) (*model.PerformanceTrend, error) {
	daily, err := a.store.QueryDailyAggregate(family, "", "avg", since)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s trend: %w", family, err)
	}
	if len(daily) < a.policy.MinDailyPoints {
		return nil, nil
	}

	values := make([]float64, len(daily))
	for i, d := range daily {
		values[i] = d.Value
	}

	t := &model.PerformanceTrend{
		Metric:     family,
		PeriodDays: periodDays,
		Average:    stats.Mean(values),
		Min:        minOf(values),
		Max:        maxOf(values),
		StdDev:     stats.StdDev(values),
		Variance:   stats.Variance(values),
	}

	firstWeek := stats.Mean(values[:min(7, len(values))])
	lastWeek := stats.Mean(values[max(0, len(values)-7):])
	if firstWeek != 0 {
		t.ChangePct = (lastWeek - firstWeek) / firstWeek * 100
	}

	cv := 0.0
	if t.Average != 0 {
		cv = t.StdDev / t.Average
	}

	switch {
	case cv > a.policy.VolatilityCV:
		t.Trend = model.TrendVolatile
		t.Analysis = fmt.Sprintf("%s swings widely (stddev %.1f against a %.1f average); no stable direction", family, t.StdDev, t.Average)
		t.Recommendations = []string{"Identify the bursty workload before reading anything into averages"}
	case t.ChangePct > a.policy.TrendChangePct:
		t.Trend = model.TrendDegrading
		t.Analysis = fmt.Sprintf("%s rose %.0f%% week over week (%.1f to %.1f)", family, t.ChangePct, firstWeek, lastWeek)
		t.Recommendations = []string{"Find what changed recently; the load is climbing"}
	case t.ChangePct < -a.policy.TrendChangePct:
		t.Trend = model.TrendImproving
		t.Analysis = fmt.Sprintf("%s fell %.0f%% week over week (%.1f to %.1f)", family, -t.ChangePct, firstWeek, lastWeek)
	default:
		t.Trend = model.TrendStable
		t.Analysis = fmt.Sprintf("%s is steady around %.1f", family, t.Average)
	}
	return t, nil
}

// utilizationTrend flags a family whose period average sits above the
// fixed high-utilization threshold.
func (a *Analyzer) utilizationTrend(family, entity string, periodDays int, since int64, advice string) (*model.PerformanceTrend, error) {
	daily, err := a.store.QueryDailyAggregate(family, entity, "avg", since)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s trend: %w", family, err)
	}
	if len(daily) < a.policy.MinDailyPoints {
		return nil, nil
	}

	values := make([]float64, len(daily))
	for i, d := range daily {
		values[i] = d.Value
	}

	t := &model.PerformanceTrend{
		Metric:     family,
		PeriodDays: periodDays,
		Trend:      model.TrendStable,
		Average:    stats.Mean(values),
		Min:        minOf(values),
		Max:        maxOf(values),
		StdDev:     stats.StdDev(values),
		Variance:   stats.Variance(values),
		Analysis:   fmt.Sprintf("%s averaged %.1f%% over %d days", family, stats.Mean(values), periodDays),
	}
	if t.Average > a.policy.UtilizationHighPct {
		t.Trend = model.TrendDegrading
		t.Analysis = fmt.Sprintf("%s averaged %.1f%%, above the %.0f%% sustained-utilization threshold", family, t.Average, a.policy.UtilizationHighPct)
		t.Recommendations = []string{advice}
	}
	return t, nil
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
