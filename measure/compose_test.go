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
	"testing"
	"time"
)

func seriesAt(opts Options, points ...Sample) *SeriesData {
	sd := NewSeriesData(opts)
	for _, p := range points {
		sd.ValTimes = append(sd.ValTimes, NewChartPoint(p.Time, p.Value, opts.Swapped()))
	}
	return sd
}

func TestMultivariate(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	opts := makeOpts(Scatter)

	x := seriesAt(opts,
		Sample{base, 30},
		Sample{base.Add(10 * time.Second), 10},
		Sample{base.Add(20 * time.Second), 20},
		Sample{base.Add(40 * time.Second), 99}, // no y partner
	)
	y := seriesAt(opts,
		Sample{base.Add(200 * time.Millisecond), 3},
		Sample{base.Add(10 * time.Second), 1},
		Sample{base.Add(20*time.Second + 500*time.Millisecond), 2}, // exactly on tolerance
		Sample{base.Add(40*time.Second + 600*time.Millisecond), 7}, // past tolerance
	)

	pts := Multivariate(x, y, nil, 500*time.Millisecond)
	if len(pts) != 3 {
		t.Fatalf("expected 3 matched pairs, got %d: %+v", len(pts), pts)
	}
	// sorted by x value, not by time
	if pts[0].X.Num != 10 || pts[1].X.Num != 20 || pts[2].X.Num != 30 {
		t.Errorf("result must sort by x value: %+v", pts)
	}
	if pts[0].Y.Num != 1 || pts[1].Y.Num != 2 || pts[2].Y.Num != 3 {
		t.Errorf("y pairing wrong: %+v", pts)
	}
}

func TestMultivariateBubble(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	opts := makeOpts(Bubble)

	x := seriesAt(opts, Sample{base, 1}, Sample{base.Add(time.Second), 2})
	y := seriesAt(opts, Sample{base, 10}, Sample{base.Add(time.Second), 20})
	r := seriesAt(opts, Sample{base, 5}) // only one radius sample

	pts := Multivariate(x, y, r, 0) // 0 falls back to the default tolerance
	if len(pts) != 1 {
		t.Fatalf("x without an r partner must drop: got %d", len(pts))
	}
	if pts[0].X.Num != 1 || pts[0].Y.Num != 10 || pts[0].R != 5 {
		t.Errorf("tuple wrong: %+v", pts[0])
	}
}

func TestGroupAggregate(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	opts := makeOpts(Line)

	a := seriesAt(opts, Sample{base, 10}, Sample{base.Add(time.Minute), 20}, Sample{base.Add(2 * time.Minute), 30})
	b := seriesAt(opts, Sample{base, 30}, Sample{base.Add(time.Minute), 40})

	gopts := makeOpts(Line)
	gopts.Name = "plant-1"
	sd := GroupAggregate([]*SeriesData{a, b}, gopts, false)

	// truncated to the shortest member
	if len(sd.ValTimes) != 2 {
		t.Fatalf("group length: got %d, want 2", len(sd.ValTimes))
	}
	if sd.ValTimes[0].Y.Num != 20 || sd.ValTimes[1].Y.Num != 30 {
		t.Errorf("group averages: %+v", sd.ValTimes)
	}
	if !sd.ValTimes[0].X.Time.Equal(base) {
		t.Errorf("group timestamps come from the first member: %v", sd.ValTimes[0].X.Time)
	}

	cum := GroupAggregate([]*SeriesData{a, b}, gopts, true)
	if cum.ValTimes[0].Y.Num != 40 || cum.ValTimes[1].Y.Num != 60 {
		t.Errorf("cumulative group sums: %+v", cum.ValTimes)
	}
}

func TestGroupAggregateEmpty(t *testing.T) {
	sd := GroupAggregate(nil, makeOpts(Line), false)
	if len(sd.ValTimes) != 0 {
		t.Errorf("empty group: %+v", sd.ValTimes)
	}
}
