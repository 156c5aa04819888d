// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package measure

// Defaults for the minimum component area; see MinArea.
const (
	DefaultMinAreaFrac  = 0.0015
	DefaultMinAreaFloor = 1500
)

// MinArea returns the smallest component area kept by Filter for an
// image of the given total pixel count: a fixed fraction of the
// image, with an absolute floor so that tiny images don't let
// single-speckle detections through.
func MinArea(totalPixels int, frac float64, floor int) int {
	m := int(float64(totalPixels) * frac)
	if m < floor {
		m = floor
	}
	return m
}

// Filter returns the components with Area >= minArea. A component
// exactly at the threshold survives. The input slice is not
// modified.
func Filter(comps []Component, minArea int) []Component {
	var kept []Component
	for _, c := range comps {
		if c.Area >= minArea {
			kept = append(kept, c)
		}
	}
	return kept
}

// MergeTouching coalesces components whose bounding boxes, padded by
// pad pixels on every side, intersect. The merged component sums the
// areas, unions the bounding boxes and takes the larger of the two
// perimeters; the perimeter of the true merged outline is unknown at
// this point, so this is an approximation. Merging repeats until a
// full pass makes no change. The input slice is not modified.
//
// This pass is optional and disabled by default: it trades
// over-segmentation of touching grains for the risk of welding
// genuinely separate neighbours together.
func MergeTouching(comps []Component, pad int) []Component {
	merged := append([]Component(nil), comps...)
	for {
		changed := false
		var out []Component
		for _, c := range merged {
			at := -1
			for i := range out {
				if touching(out[i], c, pad) {
					at = i
					break
				}
			}
			if at < 0 {
				out = append(out, c)
				continue
			}
			out[at] = merge(out[at], c)
			changed = true
		}
		merged = out
		if !changed {
			return merged
		}
	}
}

func touching(a, b Component, pad int) bool {
	return a.MinX-pad <= b.MaxX+pad && b.MinX-pad <= a.MaxX+pad &&
		a.MinY-pad <= b.MaxY+pad && b.MinY-pad <= a.MaxY+pad
}

func merge(a, b Component) Component {
	m := a
	m.Area += b.Area
	if b.Perimeter > m.Perimeter {
		m.Perimeter = b.Perimeter
	}
	if b.MinX < m.MinX {
		m.MinX = b.MinX
	}
	if b.MinY < m.MinY {
		m.MinY = b.MinY
	}
	if b.MaxX > m.MaxX {
		m.MaxX = b.MaxX
	}
	if b.MaxY > m.MaxY {
		m.MaxY = b.MaxY
	}
	return m
}
