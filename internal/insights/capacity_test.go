package insights

import (
	"testing"
	"time"

	"github.com/homepulse/homepulse/internal/model"
	"github.com/homepulse/homepulse/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// insertDaily writes one sample per day, the oldest first, the newest at
// now. Keeping the time of day constant puts every sample on its own
// calendar day.
func insertDaily(t *testing.T, s *store.Store, family, entity string, values []float64) {
	t.Helper()
	now := time.Now().Unix()
	n := int64(len(values))
	for i, v := range values {
		require.NoError(t, s.InsertSample(model.Sample{
			Timestamp: now - (n-1-int64(i))*86400,
			Family:    family,
			Entity:    entity,
			Value:     v,
		}))
	}
}

func TestPredictCapacity_StorageLinearGrowth(t *testing.T) {
	a, s := newTestAnalyzer(t)

	// One percent of a 1000-unit pool per day, ending at 70% full.
	insertDaily(t, s, model.FamilyPoolUsedBytes, "tank",
		[]float64{610, 620, 630, 640, 650, 660, 670, 680, 690, 700})
	require.NoError(t, s.InsertSample(model.Sample{
		Timestamp: time.Now().Unix(), Family: model.FamilyPoolTotalBytes,
		Entity: "tank", Value: 1000,
	}))

	p, err := a.PredictCapacity(ResourceStorage)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, ResourceStorage, p.Resource)
	assert.InDelta(t, 70, p.CurrentPct, 0.01)
	assert.InDelta(t, 10, p.GrowthPerDay, 0.01)
	require.NotNil(t, p.DaysUntilFull)
	assert.Equal(t, 30, *p.DaysUntilFull)
	require.NotNil(t, p.PredictedFull)
	assert.Equal(t, 0.7, p.Confidence)
	assert.NotEmpty(t, p.Recommendations)
}

func TestPredictCapacity_StorageFlatGrowth(t *testing.T) {
	a, s := newTestAnalyzer(t)

	insertDaily(t, s, model.FamilyPoolUsedBytes, "tank",
		[]float64{500, 500, 500, 500, 500, 500, 500, 500})
	require.NoError(t, s.InsertSample(model.Sample{
		Timestamp: time.Now().Unix(), Family: model.FamilyPoolTotalBytes,
		Entity: "tank", Value: 1000,
	}))

	p, err := a.PredictCapacity(ResourceStorage)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Nil(t, p.DaysUntilFull)
	assert.Nil(t, p.PredictedFull)
	assert.Empty(t, p.Recommendations)
}

func TestPredictCapacity_StorageShrinking(t *testing.T) {
	a, s := newTestAnalyzer(t)

	insertDaily(t, s, model.FamilyPoolUsedBytes, "tank",
		[]float64{700, 690, 680, 670, 660, 650, 640, 630})
	require.NoError(t, s.InsertSample(model.Sample{
		Timestamp: time.Now().Unix(), Family: model.FamilyPoolTotalBytes,
		Entity: "tank", Value: 1000,
	}))

	p, err := a.PredictCapacity(ResourceStorage)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Negative(t, p.GrowthPerDay)
	assert.Nil(t, p.DaysUntilFull)
}

func TestPredictCapacity_StorageSumsPools(t *testing.T) {
	a, s := newTestAnalyzer(t)

	insertDaily(t, s, model.FamilyPoolUsedBytes, "tank",
		[]float64{100, 110, 120, 130, 140, 150, 160, 170})
	insertDaily(t, s, model.FamilyPoolUsedBytes, "backup",
		[]float64{200, 200, 200, 200, 200, 200, 200, 200})
	now := time.Now().Unix()
	require.NoError(t, s.InsertSample(model.Sample{
		Timestamp: now, Family: model.FamilyPoolTotalBytes, Entity: "tank", Value: 500,
	}))
	require.NoError(t, s.InsertSample(model.Sample{
		Timestamp: now, Family: model.FamilyPoolTotalBytes, Entity: "backup", Value: 500,
	}))

	p, err := a.PredictCapacity(ResourceStorage)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.InDelta(t, 370, p.CurrentUsage, 0.01)
	assert.InDelta(t, 37, p.CurrentPct, 0.01)
	assert.InDelta(t, 10, p.GrowthPerDay, 0.01)
}

func TestPredictCapacity_InsufficientData(t *testing.T) {
	a, s := newTestAnalyzer(t)

	insertDaily(t, s, model.FamilyPoolUsedBytes, "tank", []float64{610, 620, 630})
	require.NoError(t, s.InsertSample(model.Sample{
		Timestamp: time.Now().Unix(), Family: model.FamilyPoolTotalBytes,
		Entity: "tank", Value: 1000,
	}))

	p, err := a.PredictCapacity(ResourceStorage)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPredictCapacity_Memory(t *testing.T) {
	a, s := newTestAnalyzer(t)

	insertDaily(t, s, model.FamilyMemoryPercent, model.EntitySystem,
		[]float64{50, 51, 52, 53, 54, 55, 56})

	p, err := a.PredictCapacity(ResourceMemory)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, ResourceMemory, p.Resource)
	assert.InDelta(t, 56, p.CurrentPct, 0.01)
	assert.InDelta(t, 1, p.GrowthPerDay, 0.01)
	require.NotNil(t, p.DaysUntilFull)
	assert.Equal(t, 44, *p.DaysUntilFull)
	assert.Equal(t, 0.6, p.Confidence)
	assert.NotEmpty(t, p.Recommendations)
}

func TestPredictCapacity_SwapAndUnknown(t *testing.T) {
	a, _ := newTestAnalyzer(t)

	p, err := a.PredictCapacity(ResourceSwap)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = a.PredictCapacity("gpu")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPredictAllCapacity(t *testing.T) {
	a, s := newTestAnalyzer(t)

	insertDaily(t, s, model.FamilyPoolUsedBytes, "tank",
		[]float64{610, 620, 630, 640, 650, 660, 670, 680, 690, 700})
	require.NoError(t, s.InsertSample(model.Sample{
		Timestamp: time.Now().Unix(), Family: model.FamilyPoolTotalBytes,
		Entity: "tank", Value: 1000,
	}))
	insertDaily(t, s, model.FamilyMemoryPercent, model.EntitySystem,
		[]float64{50, 51, 52, 53, 54, 55, 56})

	predictions, err := a.PredictAllCapacity()
	require.NoError(t, err)
	require.Len(t, predictions, 2)
	assert.Equal(t, ResourceStorage, predictions[0].Resource)
	assert.Equal(t, ResourceMemory, predictions[1].Resource)
}
