package insights

// Policy holds the tunable thresholds and weights for every analyzer.
// The exact numbers are operational policy, not protocol: recalibrating
// them is fine as long as the qualitative ordering of disk risk signals
// (FAILED > reallocated > pending > temperature > age) is preserved.
type Policy struct {
	// Anomaly detection
	CPUZScoreFlag     float64 // |z| above which CPU is anomalous
	CPUZScoreHigh     float64 // |z| above which severity is high
	MemoryHighPct     float64 // absolute memory threshold
	MemoryCriticalPct float64
	PoolHighPct       float64 // pool percent-used threshold
	PoolCriticalPct   float64
	PoolExpectedPct   float64 // design-target baseline, not a historical mean
	ReallocFlag       int64   // reallocated sectors that flag a disk
	PendingFlag       int64
	DiskTempFlagC     int
	ReallocCritical   int64
	PendingCritical   int64

	// Capacity prediction
	MinDailyPoints       int // daily aggregates required for a forecast
	HighConfidencePoints int // points for 0.9 confidence (storage)
	NearTermDays         int // horizon inside which recommendations fire

	// Disk failure risk bands
	RiskMedium    float64 // probability at which replacement is advised
	RiskCritical  float64 // probability treated as imminent failure
	DriveAgeYears float64 // power-on years before age risk accrues
	ReallocLimit  int64   // sector count treated as end-of-life for ETA

	// Trend classification
	VolatilityCV       float64 // stddev/mean above which a trend is volatile
	TrendChangePct     float64 // week-over-week % change for degrading/improving
	UtilizationHighPct float64 // fixed memory/storage degradation threshold

	// Cost model
	BaseWatts         float64
	WattsPerTB        float64
	WattsPerContainer float64
	PricePerKWh       float64
	SnapshotLimit     int
	IdleContainerPct  float64 // 24h average CPU below this is idle
	LowAvgCPUPct      float64 // 7d average CPU below this suggests power saving
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		CPUZScoreFlag:     2,
		CPUZScoreHigh:     3,
		MemoryHighPct:     90,
		MemoryCriticalPct: 95,
		PoolHighPct:       85,
		PoolCriticalPct:   95,
		PoolExpectedPct:   75,
		ReallocFlag:       10,
		PendingFlag:       5,
		DiskTempFlagC:     55,
		ReallocCritical:   50,
		PendingCritical:   20,

		MinDailyPoints:       7,
		HighConfidencePoints: 30,
		NearTermDays:         90,

		RiskMedium:    40,
		RiskCritical:  70,
		DriveAgeYears: 4,
		ReallocLimit:  500,

		VolatilityCV:       0.5,
		TrendChangePct:     20,
		UtilizationHighPct: 80,

		BaseWatts:         45,
		WattsPerTB:        8,
		WattsPerContainer: 2,
		PricePerKWh:       0.15,
		SnapshotLimit:     50,
		IdleContainerPct:  1,
		LowAvgCPUPct:      15,
	}
}
