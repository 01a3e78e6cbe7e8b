// Package insights is the analytics engine: it turns stored telemetry
// samples into anomalies, capacity forecasts, disk failure risk scores,
// performance trends and cost optimizations.
//
// Every analysis is a synchronous, stateless read of the sample store
// plus one audit write (disk predictions). Insufficient data is never an
// error: it yields empty or zero-confidence results. A store failure
// propagates as a single error, never a partial result set, so callers
// can tell "nothing to report" from "could not check".
package insights

import (
	"github.com/homepulse/homepulse/internal/store"
)

// Analyzer is the facade the transport layer calls into. Safe for
// concurrent use: it holds no mutable state beyond the store itself.
type Analyzer struct {
	store  *store.Store
	policy Policy
}

// New creates an Analyzer over the given store.
func New(s *store.Store, p Policy) *Analyzer {
	return &Analyzer{store: s, policy: p}
}

// Policy returns the thresholds the analyzer runs with.
func (a *Analyzer) Policy() Policy {
	return a.policy
}
