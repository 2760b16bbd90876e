package db

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// SpeedStats summarizes horizontal speed over a window of bottom-track
// records with a valid velocity solution.
type SpeedStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

// SpeedSummary computes summary statistics over the most recent limit
// records. Records whose velocity solution is flagged invalid are excluded.
func (db *DB) SpeedSummary(limit int) (SpeedStats, error) {
	records, err := db.Records(limit)
	if err != nil {
		return SpeedStats{}, err
	}

	speeds := make([]float64, 0, len(records))
	for _, r := range records {
		if r.Validity != int(velocityValidBits) {
			continue
		}
		speeds = append(speeds, math.Sqrt(r.VelX*r.VelX+r.VelY*r.VelY+r.VelZ*r.VelZ))
	}
	if len(speeds) == 0 {
		return SpeedStats{}, nil
	}

	sort.Float64s(speeds)
	return SpeedStats{
		Count:  len(speeds),
		Mean:   stat.Mean(speeds, nil),
		StdDev: stat.StdDev(speeds, nil),
		Median: stat.Quantile(0.5, stat.Empirical, speeds, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, speeds, nil),
		Max:    speeds[len(speeds)-1],
	}, nil
}

// velocityValidBits mirrors the per-axis validity bits of the device status
// word; all three set means the velocity solution is usable.
const velocityValidBits = 0x07
