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
	"sort"
	"time"
)

// DefaultTolerance is the cross-series time matching window for
// multivariate composition.
const DefaultTolerance = 500 * time.Millisecond

// Multivariate pairs points across independently sampled series into
// (x,y[,r]) tuples. For every point of the x series the first y (and
// r, when non-nil) point within tolerance of its timestamp is taken;
// x points with no match are dropped entirely. The result is sorted
// ascending by the x value, not by time: the x role now carries a
// domain value and downstream consumers assume a monotonic
// independent variable.
func Multivariate(x, y, r *SeriesData, tolerance time.Duration) []ChartPoint {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	result := make([]ChartPoint, 0, len(x.ValTimes))
	for _, xp := range x.ValTimes {
		yp, ok := matchNear(y.ValTimes, xp.X.Time, tolerance)
		if !ok {
			continue
		}
		if r != nil {
			rp, ok := matchNear(r.ValTimes, xp.X.Time, tolerance)
			if !ok {
				continue
			}
			result = append(result, ChartPoint{X: numCoord(xp.Y.Num), Y: numCoord(yp.Y.Num), R: rp.Y.Num})
		} else {
			result = append(result, ChartPoint{X: numCoord(xp.Y.Num), Y: numCoord(yp.Y.Num)})
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].X.Num < result[j].X.Num })
	return result
}

// matchNear returns the first point whose timestamp is within
// tolerance (inclusive) of t.
func matchNear(points []ChartPoint, t time.Time, tolerance time.Duration) (ChartPoint, bool) {
	for _, p := range points {
		d := p.X.Time.Sub(t)
		if d < 0 {
			d = -d
		}
		if d <= tolerance {
			return p, true
		}
	}
	return ChartPoint{}, false
}

// GroupAggregate sums member series index-for-index into one
// synthetic series, dividing by the member count unless the group is
// cumulative. Members are truncated to the shortest member's length
// first; trailing data of longer members is discarded. (Alignment is
// positional, not by timestamp - a group whose members sample at
// different rates will slur buckets together.)
func GroupAggregate(members []*SeriesData, opts Options, cumulative bool) *SeriesData {
	sd := NewSeriesData(opts)
	if len(members) == 0 {
		return sd
	}

	shortest := len(members[0].ValTimes)
	for _, m := range members[1:] {
		if len(m.ValTimes) < shortest {
			shortest = len(m.ValTimes)
		}
	}

	swap := opts.Swapped()
	for i := 0; i < shortest; i++ {
		var sum float64
		for _, m := range members {
			sum += m.ValTimes[i].Val(m.Options.Swapped())
		}
		v := sum
		if !cumulative {
			v = sum / float64(len(members))
		}
		v = roundTo(v, opts.NumDP)
		sd.observe(v)
		sd.ValTimes = append(sd.ValTimes, NewChartPoint(members[0].ValTimes[i].When(members[0].Options.Swapped()), v, swap))
	}

	sd.ValCount = 1
	if len(sd.ValTimes) > 0 {
		sd.Avg = sd.Sum / float64(len(sd.ValTimes))
	}
	return sd
}
