//
// Copyright 2016 Gregory Trubetskoy. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package measure

import (
	"math"
	"time"
)

// envelopeWidth is the deviation multiplier for the upper and lower
// bands.
const envelopeWidth = 2.0

// band computes the moving-average envelope over the trailing window
// of values ending at the last element. The window is clamped to
// len(values).
func band(values []float64, period int) (upper, mid, lower float64) {
	if period > len(values) {
		period = len(values)
	}
	w := values[len(values)-period:]

	var sum float64
	for _, v := range w {
		sum += v
	}
	mean := sum / float64(len(w))

	var varsum float64
	for _, v := range w {
		varsum += (v - mean) * (v - mean)
	}
	sd := math.Sqrt(varsum / float64(len(w)))

	return mean + envelopeWidth*sd, mean, mean - envelopeWidth*sd
}

// buildOverlay computes the envelope over the whole fetched window.
// Only line targets with an averaging period get an overlay. Indices
// without enough lookback are seeded with the series running max
// (upper), the raw value (mid) and the running min (lower), a
// visually stable placeholder instead of a gap.
func (sd *SeriesData) buildOverlay() {
	opts := &sd.Options
	if opts.TargetType != Line || opts.AvgPeriod <= 0 || len(sd.ValTimes) == 0 {
		return
	}

	vals := sd.values()
	period := opts.AvgPeriod
	if period > len(vals) {
		period = len(vals)
	}

	for i, p := range sd.ValTimes {
		if i < period-1 {
			sd.Upper = append(sd.Upper, ChartPoint{X: p.X, Y: numCoord(sd.Max)})
			sd.Aggregate = append(sd.Aggregate, ChartPoint{X: p.X, Y: p.Y})
			sd.Lower = append(sd.Lower, ChartPoint{X: p.X, Y: numCoord(sd.Min)})
			continue
		}
		u, m, l := band(vals[:i+1], period)
		sd.Upper = append(sd.Upper, ChartPoint{X: p.X, Y: numCoord(u)})
		sd.Aggregate = append(sd.Aggregate, ChartPoint{X: p.X, Y: numCoord(m)})
		sd.Lower = append(sd.Lower, ChartPoint{X: p.X, Y: numCoord(l)})
	}
}

// advanceOverlay appends one envelope point computed over the
// trailing window, the push-path counterpart of buildOverlay. It
// appends rather than recomputing history: the overlay triplet is
// aligned with its own past, not re-derived per push. Eligibility
// matches buildOverlay exactly, a series that was never seeded is
// never advanced.
func (sd *SeriesData) advanceOverlay(t time.Time) {
	opts := &sd.Options
	if opts.TargetType != Line || opts.AvgPeriod <= 0 || len(sd.ValTimes) == 0 {
		return
	}
	u, m, l := band(sd.values(), opts.AvgPeriod)
	sd.Upper = append(sd.Upper, ChartPoint{X: timeCoord(t), Y: numCoord(u)})
	sd.Aggregate = append(sd.Aggregate, ChartPoint{X: timeCoord(t), Y: numCoord(m)})
	sd.Lower = append(sd.Lower, ChartPoint{X: timeCoord(t), Y: numCoord(l)})
}
