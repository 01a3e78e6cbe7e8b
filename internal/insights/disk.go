package insights

import (
	"fmt"
	"math"
	"time"

	"github.com/homepulse/homepulse/internal/model"
	"github.com/homepulse/homepulse/internal/stats"
)

// diskHistoryDays is the SMART lookback window for risk scoring.
const diskHistoryDays = 90

// Recommended actions by risk band.
const (
	actionMonitor = "Continue monitoring"
	actionReplace = "Order a replacement drive"
	actionUrgent  = "URGENT: replace immediately"
)

// PredictDiskFailure scores the failure risk of one disk from its SMART
// history. The score is a sum of independent rule contributions, clamped
// to [0,100]. Every computed prediction is appended to the audit log,
// including zero-confidence insufficient-data ones, so the history of
// what the scorer said is complete.
func (a *Analyzer) PredictDiskFailure(diskName string) (*model.DiskFailurePrediction, error) {
	since := time.Now().AddDate(0, 0, -diskHistoryDays).Unix()

	history, err := a.store.QuerySMARTHistory(diskName, since)
	if err != nil {
		return nil, fmt.Errorf("predicting failure for disk %q: %w", diskName, err)
	}

	p := a.scoreDisk(diskName, history)
	if err := a.store.AppendDiskPrediction(*p); err != nil {
		return nil, fmt.Errorf("recording prediction for disk %q: %w", diskName, err)
	}
	return p, nil
}

// PredictAllDiskFailures scores every disk with recent SMART data.
func (a *Analyzer) PredictAllDiskFailures() ([]model.DiskFailurePrediction, error) {
	since := time.Now().AddDate(0, 0, -diskHistoryDays).Unix()
	disks, err := a.store.QueryLatestSMARTByDisk(since)
	if err != nil {
		return nil, fmt.Errorf("listing disks: %w", err)
	}

	var predictions []model.DiskFailurePrediction
	for _, d := range disks {
		p, err := a.PredictDiskFailure(d.Disk)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, *p)
	}
	return predictions, nil
}

// scoreDisk folds the rule list over the disk's history. history is
// most-recent-first as the store returns it.
func (a *Analyzer) scoreDisk(diskName string, history []model.SMARTSample) *model.DiskFailurePrediction {
	p := &model.DiskFailurePrediction{
		Disk:              diskName,
		Timestamp:         time.Now().Unix(),
		RecommendedAction: actionMonitor,
	}

	if len(history) < 2 {
		p.Factors = []string{"insufficient data: fewer than 2 SMART samples"}
		return p
	}

	latest := history[0]
	prob := 0.0

	reallocSlope := smartSlope(history, func(s model.SMARTSample) float64 { return float64(s.Reallocated) })

	if latest.Reallocated > 0 {
		prob += 20 + math.Min(20, float64(latest.Reallocated)*0.4)
		p.Factors = append(p.Factors, fmt.Sprintf("%d reallocated sectors", latest.Reallocated))
	}
	if reallocSlope > 0 {
		prob += math.Min(15, reallocSlope*3)
		p.Factors = append(p.Factors, fmt.Sprintf("reallocated sectors growing %.1f/day", reallocSlope))
	}
	if latest.Pending > 0 {
		prob += 30 + math.Min(10, float64(latest.Pending)*0.5)
		p.Factors = append(p.Factors, fmt.Sprintf("%d pending sectors", latest.Pending))
	}
	if latest.Temperature > a.policy.DiskTempFlagC {
		prob += 8
		p.Factors = append(p.Factors, fmt.Sprintf("running hot at %d°C", latest.Temperature))
		tempSlope := smartSlope(history, func(s model.SMARTSample) float64 { return float64(s.Temperature) })
		if tempSlope > 0 {
			prob += 5
			p.Factors = append(p.Factors, "temperature rising")
		}
	}
	years := float64(latest.PowerOnHours) / 8760
	if years >= a.policy.DriveAgeYears {
		prob += math.Min(12, (years-a.policy.DriveAgeYears)*3)
		p.Factors = append(p.Factors, fmt.Sprintf("%.1f power-on years", years))
	}

	// SMART overall-health FAILED overrides everything: the drive has
	// already told us it is dying.
	if latest.Health == model.HealthFailed {
		prob = math.Max(prob, a.policy.RiskCritical)
		days := 30
		p.DaysUntilFailure = &days
		p.Factors = append(p.Factors, "SMART overall health FAILED")
	}

	p.FailureProbability = math.Min(100, math.Max(0, prob))
	p.Confidence = math.Min(95, 30+float64(len(history))*2.5)

	if p.DaysUntilFailure == nil && reallocSlope > 0 && latest.Reallocated > 0 {
		days := int(float64(a.policy.ReallocLimit-latest.Reallocated) / reallocSlope)
		if days < 7 {
			days = 7
		}
		if days > 365 {
			days = 365
		}
		p.DaysUntilFailure = &days
	}

	switch {
	case p.FailureProbability >= a.policy.RiskCritical:
		p.RecommendedAction = actionUrgent
	case p.FailureProbability >= a.policy.RiskMedium:
		p.RecommendedAction = actionReplace
	}
	return p
}

// smartSlope fits a per-day growth rate to one SMART attribute.
// history is most-recent-first; the fit runs on real day offsets so
// uneven sampling does not skew it.
func smartSlope(history []model.SMARTSample, attr func(model.SMARTSample) float64) float64 {
	points := make([]stats.Point, len(history))
	oldest := history[len(history)-1].Timestamp
	for i, s := range history {
		points[len(history)-1-i] = stats.Point{
			X: float64(s.Timestamp-oldest) / 86400,
			Y: attr(s),
		}
	}
	return stats.GrowthRate(points)
}
