package geo

import (
	"math"
	"time"
)

// EarthRadiusM is the mean earth radius used for haversine distances.
const EarthRadiusM = 6371000.0

type Point struct {
	Lat float64
	Lng float64
}

// Sample is a point observed at a moment in time.
type Sample struct {
	Point
	At time.Time
}

type TripStats struct {
	DistanceM   float64
	AvgSpeedMps float64
	Elapsed     time.Duration
}

// DistanceM returns the great-circle distance between a and b in meters.
func DistanceM(a, b Point) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	phi1 := toRad(a.Lat)
	phi2 := toRad(b.Lat)
	dPhi := toRad(b.Lat - a.Lat)
	dLambda := toRad(b.Lng - a.Lng)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusM * c
}

// PathDistanceM sums the distances between consecutive samples.
func PathDistanceM(samples []Sample) float64 {
	total := 0.0
	for i := 1; i < len(samples); i++ {
		total += DistanceM(samples[i-1].Point, samples[i].Point)
	}
	return total
}

// TripStatistics computes distance and average speed for a trace that is
// already ordered by time. Elapsed time runs from start to the last sample;
// a non-positive elapsed time yields a zero speed.
func TripStatistics(samples []Sample, start time.Time) TripStats {
	stats := TripStats{DistanceM: PathDistanceM(samples)}
	if len(samples) == 0 {
		return stats
	}

	stats.Elapsed = samples[len(samples)-1].At.Sub(start)
	if secs := stats.Elapsed.Seconds(); secs > 0 {
		stats.AvgSpeedMps = stats.DistanceM / secs
	}
	return stats
}
