package insights

import (
	"fmt"
	"time"

	"github.com/homepulse/homepulse/internal/model"
	"github.com/homepulse/homepulse/internal/stats"
)

const bytesPerTB = 1e12

// OptimizeCosts estimates the host's power draw from its current state
// and lists independent saving opportunities. Best effort throughout:
// a metric with no data contributes zero to the model rather than
// failing the whole report.
func (a *Analyzer) OptimizeCosts() (*model.CostOptimization, error) {
	state, err := a.systemState()
	if err != nil {
		return nil, err
	}

	result := &model.CostOptimization{State: *state}

	checks := []func(state *model.SystemState) (*model.Opportunity, error){
		a.snapshotOpportunity,
		a.idleContainerOpportunity,
		a.powerSavingOpportunity,
	}
	for _, check := range checks {
		opp, err := check(state)
		if err != nil {
			return nil, err
		}
		if opp != nil {
			result.Opportunities = append(result.Opportunities, *opp)
			result.TotalSavingsUSD += opp.SavingsUSD
		}
	}
	return result, nil
}

// systemState builds the utilization snapshot the power model runs on.
func (a *Analyzer) systemState() (*model.SystemState, error) {
	state := &model.SystemState{}

	if cpu, err := a.store.QueryLatest(model.FamilyCPUPercent, model.EntitySystem); err != nil {
		return nil, fmt.Errorf("reading system state: %w", err)
	} else if cpu != nil {
		state.CPUPercent = cpu.Value
	}

	since := time.Now().AddDate(0, 0, -1).Unix()
	totals, err := a.store.QueryLatestByEntity(model.FamilyPoolTotalBytes, since)
	if err != nil {
		return nil, fmt.Errorf("reading system state: %w", err)
	}
	for _, s := range totals {
		state.StorageTB += s.Value / bytesPerTB
	}

	if containers, err := a.store.QueryLatest(model.FamilyContainersActive, model.EntitySystem); err != nil {
		return nil, fmt.Errorf("reading system state: %w", err)
	} else if containers != nil {
		state.ActiveContainers = int(containers.Value)
	}

	if snapshots, err := a.store.QueryLatest(model.FamilySnapshotCount, model.EntitySystem); err != nil {
		return nil, fmt.Errorf("reading system state: %w", err)
	} else if snapshots != nil {
		state.SnapshotCount = int(snapshots.Value)
	}

	state.EstimatedWatts = a.policy.BaseWatts +
		state.StorageTB*a.policy.WattsPerTB +
		float64(state.ActiveContainers)*a.policy.WattsPerContainer
	state.MonthlyCostUSD = state.EstimatedWatts * 24 * 30 / 1000 * a.policy.PricePerKWh
	return state, nil
}

func (a *Analyzer) snapshotOpportunity(state *model.SystemState) (*model.Opportunity, error) {
	if state.SnapshotCount <= a.policy.SnapshotLimit {
		return nil, nil
	}
	// Snapshot churn costs disk, not watts; the saving here is deferred
	// storage expansion, estimated as one TB of drive amortized monthly.
	return &model.Opportunity{
		Category: "storage",
		Title:    "Prune old snapshots",
		Description: fmt.Sprintf("%d snapshots exceed the %d snapshot budget; old ones pin deleted data",
			state.SnapshotCount, a.policy.SnapshotLimit),
		SavingsUSD: 2.5,
		Difficulty: "easy",
		Steps: []string{
			"List snapshots older than 30 days",
			"Delete snapshots no restore plan depends on",
			"Set an automatic retention policy",
		},
	}, nil
}

func (a *Analyzer) idleContainerOpportunity(state *model.SystemState) (*model.Opportunity, error) {
	since := time.Now().AddDate(0, 0, -1).Unix()
	byContainer, err := a.averageByEntity(model.FamilyContainerCPU, since)
	if err != nil {
		return nil, fmt.Errorf("finding idle containers: %w", err)
	}

	var idle []string
	for name, avg := range byContainer {
		if avg < a.policy.IdleContainerPct {
			idle = append(idle, name)
		}
	}
	if len(idle) == 0 {
		return nil, nil
	}

	watts := float64(len(idle)) * a.policy.WattsPerContainer
	return &model.Opportunity{
		Category: "compute",
		Title:    fmt.Sprintf("Stop %d idle containers", len(idle)),
		Description: fmt.Sprintf("%d containers averaged under %.0f%% CPU over the last day",
			len(idle), a.policy.IdleContainerPct),
		SavingsUSD: watts * 24 * 30 / 1000 * a.policy.PricePerKWh,
		Difficulty: "easy",
		Steps: []string{
			"Confirm nothing depends on the idle containers",
			"Stop them and watch for a week before removing",
		},
	}, nil
}

func (a *Analyzer) powerSavingOpportunity(state *model.SystemState) (*model.Opportunity, error) {
	since := time.Now().AddDate(0, 0, -7).Unix()
	samples, err := a.store.QuerySamples(model.FamilyCPUPercent, model.EntitySystem, since)
	if err != nil {
		return nil, fmt.Errorf("checking power saving: %w", err)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	avg := stats.Mean(values)
	if avg >= a.policy.LowAvgCPUPct {
		return nil, nil
	}

	// A mostly-idle host can typically shed about a fifth of its draw
	// with CPU frequency governors and disk spindown.
	savedWatts := state.EstimatedWatts * 0.2
	return &model.Opportunity{
		Category: "power",
		Title:    "Enable power-saving mode",
		Description: fmt.Sprintf("CPU averaged %.1f%% over the last week; the host is mostly idle",
			avg),
		SavingsUSD: savedWatts * 24 * 30 / 1000 * a.policy.PricePerKWh,
		Difficulty: "medium",
		Steps: []string{
			"Switch the CPU governor to powersave",
			"Enable disk spindown for pools idle overnight",
			"Verify scheduled jobs still finish on time",
		},
	}, nil
}

// averageByEntity averages each entity's in-window samples.
func (a *Analyzer) averageByEntity(family string, since int64) (map[string]float64, error) {
	samples, err := a.store.QuerySamples(family, "", since)
	if err != nil {
		return nil, err
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, s := range samples {
		sums[s.Entity] += s.Value
		counts[s.Entity]++
	}

	avgs := make(map[string]float64, len(sums))
	for entity, sum := range sums {
		avgs[entity] = sum / float64(counts[entity])
	}
	return avgs, nil
}
