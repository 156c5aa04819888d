// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package measure

import (
	"errors"
	"math"
)

// ErrBadCalibration is returned when a calibration factor is zero or
// negative.
var ErrBadCalibration = errors.New("Calibration factor must be a positive px/mm value")

// GrainStats is the persisted measurement of one grain. IDs are
// dense, 1..N, assigned in component discovery order after
// filtering. AreaMm2 and DiamMm stay zero until Calibrate has been
// run with a pixel-per-millimetre factor.
type GrainStats struct {
	ID        int
	AreaPx    int
	X, Y      int
	W, H      int
	EqDiamPx  float64
	Roundness float64
	AreaMm2   float64
	DiamMm    float64
}

// Stats derives the shape statistics for each component:
// the disk-equivalent diameter 2*sqrt(area/pi), and roundness
// 4*pi*area/perimeter^2 clamped to [0,1], with 1 meaning a perfect
// disk. A zero perimeter yields roundness 0.
func Stats(comps []Component) []GrainStats {
	stats := make([]GrainStats, 0, len(comps))
	for i, c := range comps {
		s := GrainStats{
			ID:     i + 1,
			AreaPx: c.Area,
			X:      c.MinX,
			Y:      c.MinY,
			W:      c.MaxX - c.MinX + 1,
			H:      c.MaxY - c.MinY + 1,
		}
		s.EqDiamPx = 2 * math.Sqrt(float64(c.Area)/math.Pi)
		if c.Perimeter > 0 {
			r := 4 * math.Pi * float64(c.Area) / (float64(c.Perimeter) * float64(c.Perimeter))
			if r > 1 {
				r = 1
			}
			if r < 0 {
				r = 0
			}
			s.Roundness = r
		}
		stats = append(stats, s)
	}
	return stats
}

// Calibrate fills in the millimetre fields of each grain using a
// pixel-per-millimetre scale. The factor is owned by the caller; the
// pipeline itself never reads or writes any stored calibration
// state.
func Calibrate(stats []GrainStats, pxPerMm float64) error {
	if pxPerMm <= 0 {
		return ErrBadCalibration
	}
	for i := range stats {
		stats[i].DiamMm = stats[i].EqDiamPx / pxPerMm
		stats[i].AreaMm2 = float64(stats[i].AreaPx) / (pxPerMm * pxPerMm)
	}
	return nil
}
