package store

import (
	"testing"
	"time"

	"github.com/homepulse/homepulse/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRetention(t *testing.T) {
	r := DefaultRetention()
	assert.Equal(t, 90*24*time.Hour, r.Samples)
	assert.Equal(t, 180*24*time.Hour, r.SMARTSamples)
	assert.Equal(t, 365*24*time.Hour, r.DiskPredictions)
	assert.Equal(t, 30*24*time.Hour, r.AlertLog)
}

func TestPrune_RemovesExpiredSamples(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Unix()

	old := now - int64((91 * 24 * time.Hour).Seconds())
	require.NoError(t, s.InsertSample(model.Sample{Timestamp: old, Family: model.FamilyCPUPercent, Entity: model.EntitySystem, Value: 10}))
	require.NoError(t, s.InsertSample(model.Sample{Timestamp: now, Family: model.FamilyCPUPercent, Entity: model.EntitySystem, Value: 20}))

	p := NewPruner(s, DefaultRetention())
	p.prune()

	samples, err := s.QuerySamples(model.FamilyCPUPercent, model.EntitySystem, 0)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, now, samples[0].Timestamp)
}

func TestPrune_KeepsRecentSMART(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Unix()

	old := now - int64((181 * 24 * time.Hour).Seconds())
	require.NoError(t, s.InsertSMARTSample(model.SMARTSample{Timestamp: old, Disk: "sda", Health: "PASSED"}))
	require.NoError(t, s.InsertSMARTSample(model.SMARTSample{Timestamp: now, Disk: "sda", Health: "PASSED"}))

	p := NewPruner(s, DefaultRetention())
	p.prune()

	history, err := s.QuerySMARTHistory("sda", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, now, history[0].Timestamp)
}

func TestPrune_ClosedDBLogsAndContinues(t *testing.T) {
	s := closedTestStore(t)
	p := NewPruner(s, DefaultRetention())
	// Must not panic; errors are logged per table.
	p.prune()
}
