// Package model defines all shared domain types for homepulse.
package model

import "time"

// Metric families stored in the sample store. Every sample carries one of
// these plus an entity key (pool name, container name, disk name, or
// "system" for host-wide readings).
const (
	FamilyCPUPercent       = "cpu_percent"
	FamilyMemoryPercent    = "memory_percent"
	FamilyPoolPercentUsed  = "pool_percent_used"
	FamilyPoolUsedBytes    = "pool_used_bytes"
	FamilyPoolTotalBytes   = "pool_total_bytes"
	FamilyDiskTemperature  = "disk_temperature"
	FamilyContainerCPU     = "container_cpu_percent"
	FamilyContainersActive = "containers_running"
	FamilySnapshotCount    = "snapshot_count"
)

// EntitySystem is the entity key for host-wide samples.
const EntitySystem = "system"

// Sample is a single timestamped scalar reading. Immutable once written;
// the store returns samples in ascending timestamp order per entity+family.
type Sample struct {
	Timestamp int64   `json:"ts"`
	Family    string  `json:"family"`
	Entity    string  `json:"entity"`
	Value     float64 `json:"value"`
}

// DailyPoint is one calendar-day aggregate of a metric family.
type DailyPoint struct {
	Day   string  `json:"day"` // YYYY-MM-DD
	Value float64 `json:"value"`
}

// SMARTSample is a per-disk SMART reading.
type SMARTSample struct {
	Timestamp    int64  `json:"ts"`
	Disk         string `json:"disk"`
	Temperature  int    `json:"temperature"`
	Reallocated  int64  `json:"reallocated_sectors"`
	Pending      int64  `json:"pending_sectors"`
	PowerOnHours int64  `json:"power_on_hours"`
	Health       string `json:"health"` // "PASSED", "FAILED"
}

// HealthFailed is the SMART overall-health value that forces a critical
// failure prediction regardless of other attributes.
const HealthFailed = "FAILED"

// Severity classifies how serious an anomaly is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the position of s in the severity total order
// (info < low < medium < high < critical). Unknown values rank as info.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AnomalyKind classifies the shape of an anomaly.
type AnomalyKind string

const (
	AnomalySpike   AnomalyKind = "spike"
	AnomalyDrop    AnomalyKind = "drop"
	AnomalyTrend   AnomalyKind = "trend"
	AnomalyPattern AnomalyKind = "pattern"
)

// Anomaly is an out-of-band reading relative to a rolling baseline.
// Ephemeral: computed per call, never persisted.
type Anomaly struct {
	Metric         string      `json:"metric"`
	Kind           AnomalyKind `json:"kind"`
	Severity       Severity    `json:"severity"`
	CurrentValue   float64     `json:"current_value"`
	ExpectedValue  float64     `json:"expected_value"`
	DeviationPct   float64     `json:"deviation_pct"`
	Description    string      `json:"description"`
	Recommendation string      `json:"recommendation"`
}

// CapacityPrediction forecasts when a resource runs out.
type CapacityPrediction struct {
	Resource        string   `json:"resource"`
	CurrentUsage    float64  `json:"current_usage"`
	CurrentPct      float64  `json:"current_pct"`
	GrowthPerDay    float64  `json:"growth_per_day"`
	PredictedFull   *int64   `json:"predicted_full,omitempty"` // unix epoch
	DaysUntilFull   *int     `json:"days_until_full,omitempty"`
	Confidence      float64  `json:"confidence"` // [0,1]
	Recommendations []string `json:"recommendations,omitempty"`
}

// DiskFailurePrediction is a weighted, rule-based failure-risk score for
// one disk. Persisted as an append-only audit row on every computation.
type DiskFailurePrediction struct {
	Disk               string   `json:"disk"`
	Timestamp          int64    `json:"ts"`
	FailureProbability float64  `json:"failure_probability"` // [0,100]
	DaysUntilFailure   *int     `json:"days_until_failure,omitempty"`
	Confidence         float64  `json:"confidence"` // [0,100]
	Factors            []string `json:"factors"`
	RecommendedAction  string   `json:"recommended_action"`
}

// TrendDirection classifies a multi-week performance trend.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDegrading TrendDirection = "degrading"
	TrendVolatile  TrendDirection = "volatile"
)

// PerformanceTrend summarizes one metric family over a period.
type PerformanceTrend struct {
	Metric          string         `json:"metric"`
	PeriodDays      int            `json:"period_days"`
	Trend           TrendDirection `json:"trend"`
	Average         float64        `json:"average"`
	Min             float64        `json:"min"`
	Max             float64        `json:"max"`
	StdDev          float64        `json:"std_dev"`
	Variance        float64        `json:"variance"`
	ChangePct       float64        `json:"change_pct"` // recent week vs first week
	Analysis        string         `json:"analysis"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// SystemState is the current-utilization snapshot the cost optimizer
// derives its power model from.
type SystemState struct {
	CPUPercent       float64 `json:"cpu_percent"`
	StorageTB        float64 `json:"storage_tb"`
	ActiveContainers int     `json:"active_containers"`
	SnapshotCount    int     `json:"snapshot_count"`
	EstimatedWatts   float64 `json:"estimated_watts"`
	MonthlyCostUSD   float64 `json:"monthly_cost_usd"`
}

// Opportunity is a single cost-optimization suggestion. Checks are
// independent; savings are additive.
type Opportunity struct {
	Category    string   `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	SavingsUSD  float64  `json:"savings_usd"` // per month
	Difficulty  string   `json:"difficulty"`  // "easy", "medium", "hard"
	Steps       []string `json:"steps"`
}

// CostOptimization is the full cost-optimizer result. Fully derived, no
// persisted state.
type CostOptimization struct {
	State           SystemState   `json:"state"`
	Opportunities   []Opportunity `json:"opportunities"`
	TotalSavingsUSD float64       `json:"total_savings_usd"`
}

// Notification is a structured alert message for the notify providers.
type Notification struct {
	AlertType string            `json:"alert_type"`
	Severity  string            `json:"severity"` // "info", "warning", "critical"
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Subject   string            `json:"subject"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
