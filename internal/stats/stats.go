// Package stats provides the shared statistical primitives used by the
// insights engine. All functions are pure: no state, no hidden inputs.
package stats

import (
	"math"

	"github.com/homepulse/homepulse/internal/model"
)

// Point is one (index, value) observation for regression. X is a dense
// integer index (day offset), not a timestamp, so slopes come out in
// units of Y per index step.
type Point struct {
	X float64
	Y float64
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation of values, or 0 for
// an empty slice. Callers must treat 0 as "no baseline", not "zero
// variance": a constant series and an empty one both return 0.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	sumSquares := 0.0
	for _, v := range values {
		d := v - mean
		sumSquares += d * d
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}

// Variance returns the population variance of values, or 0 for an empty
// slice.
func Variance(values []float64) float64 {
	sd := StdDev(values)
	return sd * sd
}

// GrowthRate returns the ordinary least-squares slope of points via the
// closed-form normal equations. Fewer than 2 points yield 0.
func GrowthRate(points []Point) float64 {
	n := float64(len(points))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
		sumXY += p.X * p.Y
		sumXX += p.X * p.X
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// Intercept returns the OLS intercept of points, or 0 for fewer than
// 2 points.
func Intercept(points []Point) float64 {
	n := float64(len(points))
	if n < 2 {
		return 0
	}
	slope := GrowthRate(points)
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	return (sumY - slope*sumX) / n
}

// MaxSeverity returns the highest severity in the input per the total
// order critical > high > medium > low > info. An empty input yields
// info.
func MaxSeverity(severities []model.Severity) model.Severity {
	max := model.SeverityInfo
	for _, s := range severities {
		if s.Rank() > max.Rank() {
			max = s
		}
	}
	return max
}
