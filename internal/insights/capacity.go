package insights

import (
	"fmt"
	"math"
	"time"

	"github.com/homepulse/homepulse/internal/model"
	"github.com/homepulse/homepulse/internal/stats"
)

// Capacity prediction resources.
const (
	ResourceStorage = "storage"
	ResourceMemory  = "memory"
	ResourceSwap    = "swap"
)

// capacityWindowDays bounds how far back daily aggregates are read.
const capacityWindowDays = 60

// PredictCapacity fits a linear trend to recent daily aggregates for the
// resource and projects a time to exhaustion. It returns nil (not an
// error) for unsupported resources, for swap, and whenever fewer than
// the minimum daily points exist: the caller enumerates supported
// resources itself and must be able to tell "no forecast" from "failed".
func (a *Analyzer) PredictCapacity(resource string) (*model.CapacityPrediction, error) {
	switch resource {
	case ResourceStorage:
		return a.predictStorage()
	case ResourceMemory:
		return a.predictMemory()
	case ResourceSwap:
		// Defined but not implemented: swap sizing is static on the
		// hosts this runs against.
		return nil, nil
	default:
		return nil, nil
	}
}

// PredictAllCapacity runs every implemented resource forecast.
func (a *Analyzer) PredictAllCapacity() ([]model.CapacityPrediction, error) {
	var predictions []model.CapacityPrediction
	for _, resource := range []string{ResourceStorage, ResourceMemory} {
		p, err := a.PredictCapacity(resource)
		if err != nil {
			return nil, err
		}
		if p != nil {
			predictions = append(predictions, *p)
		}
	}
	return predictions, nil
}

func (a *Analyzer) predictStorage() (*model.CapacityPrediction, error) {
	since := time.Now().AddDate(0, 0, -capacityWindowDays).Unix()

	daily, err := a.store.QueryDailyAggregate(model.FamilyPoolUsedBytes, "", "sum", since)
	if err != nil {
		return nil, fmt.Errorf("predicting storage capacity: %w", err)
	}
	if len(daily) < a.policy.MinDailyPoints {
		return nil, nil
	}

	totals, err := a.store.QueryLatestByEntity(model.FamilyPoolTotalBytes, since)
	if err != nil {
		return nil, fmt.Errorf("predicting storage capacity: %w", err)
	}
	var capacity float64
	for _, s := range totals {
		capacity += s.Value
	}
	if capacity <= 0 {
		return nil, nil
	}

	growth := stats.GrowthRate(dailyPoints(daily)) // bytes per day
	current := daily[len(daily)-1].Value

	p := &model.CapacityPrediction{
		Resource:     ResourceStorage,
		CurrentUsage: current,
		CurrentPct:   current / capacity * 100,
		GrowthPerDay: growth,
		Confidence:   0.7,
	}
	if len(daily) >= a.policy.HighConfidencePoints {
		p.Confidence = 0.9
	}

	a.projectExhaustion(p, capacity-current, growth)
	if p.DaysUntilFull != nil && *p.DaysUntilFull < a.policy.NearTermDays {
		p.Recommendations = []string{
			fmt.Sprintf("Storage is on track to fill in ~%d days; plan an expansion now", *p.DaysUntilFull),
			"Prune old snapshots and downloads to buy headroom",
		}
	}
	return p, nil
}

func (a *Analyzer) predictMemory() (*model.CapacityPrediction, error) {
	since := time.Now().AddDate(0, 0, -capacityWindowDays).Unix()

	daily, err := a.store.QueryDailyAggregate(model.FamilyMemoryPercent, model.EntitySystem, "avg", since)
	if err != nil {
		return nil, fmt.Errorf("predicting memory capacity: %w", err)
	}
	if len(daily) < a.policy.MinDailyPoints {
		return nil, nil
	}

	growth := stats.GrowthRate(dailyPoints(daily)) // percent points per day
	current := daily[len(daily)-1].Value

	p := &model.CapacityPrediction{
		Resource:     ResourceMemory,
		CurrentUsage: current,
		CurrentPct:   current,
		GrowthPerDay: growth,
		// Memory pressure is noisier than storage growth and saturates
		// at 100%, so the forecast gets a fixed lower confidence.
		Confidence: 0.6,
	}

	a.projectExhaustion(p, 100-current, growth)
	if p.DaysUntilFull != nil && *p.DaysUntilFull < a.policy.NearTermDays {
		p.Recommendations = []string{
			fmt.Sprintf("Memory usage is trending toward saturation in ~%d days", *p.DaysUntilFull),
			"Review container memory limits or add RAM",
		}
	}
	return p, nil
}

// projectExhaustion sets the predicted-full fields when growth is
// positive. Flat or negative growth leaves them nil: a shrinking
// resource never gets a negative or infinite ETA.
func (a *Analyzer) projectExhaustion(p *model.CapacityPrediction, remaining, growth float64) {
	if growth <= 0 {
		return
	}
	days := int(math.Floor(remaining / growth))
	if days < 0 {
		days = 0
	}
	full := time.Now().AddDate(0, 0, days).Unix()
	p.DaysUntilFull = &days
	p.PredictedFull = &full
}

func dailyPoints(daily []model.DailyPoint) []stats.Point {
	points := make([]stats.Point, len(daily))
	for i, d := range daily {
		points[i] = stats.Point{X: float64(i), Y: d.Value}
	}
	return points
}
