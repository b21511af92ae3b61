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
	"testing"
	"time"
)

var farPast = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Pushing v1..vn into one bucket must yield their average, same as
// the fetch path would have produced.
func TestMergeRunningAverage(t *testing.T) {
	for _, n := range []int{1, 2, 5, 50} {
		opts := makeOpts(Line)
		opts.GroupBy = true
		opts.BucketPeriod = ByMinute
		opts.NumDP = 4
		sd := NewSeriesData(opts)

		base := time.Date(2026, 8, 30, 12, 30, 0, 0, time.UTC)
		var sum float64
		for i := 0; i < n; i++ {
			v := float64(i) + 0.5
			sum += v
			sd.Merge(base.Add(time.Duration(i)*time.Second), v, farPast)
		}

		if len(sd.ValTimes) != 1 {
			t.Fatalf("n=%d: all pushes share a minute, got %d buckets", n, len(sd.ValTimes))
		}
		want := roundTo(sum/float64(n), opts.NumDP)
		if got := sd.ValTimes[0].Y.Num; math.Abs(got-want) > 1e-3 {
			t.Errorf("n=%d: folded average %v, want %v", n, got, want)
		}
		if sd.ValCount != n {
			t.Errorf("n=%d: ValCount %d", n, sd.ValCount)
		}
	}
}

func TestMergeCumulative(t *testing.T) {
	opts := makeOpts(Bar)
	opts.GroupBy = true
	opts.Cumulative = true
	opts.BucketPeriod = ByHour
	opts.LabelLayout = "Jan 02 15:04"
	sd := NewSeriesData(opts)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	sd.Merge(base, 10, farPast)
	sd.Merge(base.Add(5*time.Minute), 15, farPast)
	sd.Merge(base.Add(time.Hour), 1, farPast)

	if len(sd.ValTimes) != 2 {
		t.Fatalf("expected 2 hourly buckets, got %d", len(sd.ValTimes))
	}
	if sd.ValTimes[0].Y.Num != 25 {
		t.Errorf("cumulative fold: got %v, want 25", sd.ValTimes[0].Y.Num)
	}
	if sd.ValTimes[1].Y.Num != 1 || sd.ValCount != 1 {
		t.Errorf("new bucket must reset the fold: %v, count %d", sd.ValTimes[1].Y.Num, sd.ValCount)
	}
}

func TestMergeNewBucketWithoutGrouping(t *testing.T) {
	opts := makeOpts(Line)
	sd := NewSeriesData(opts)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	sd.Merge(base, 1, farPast)
	sd.Merge(base.Add(time.Second), 2, farPast)

	if len(sd.ValTimes) != 2 {
		t.Errorf("ungrouped pushes never fold: got %d points", len(sd.ValTimes))
	}
}

func TestMergeCategorical(t *testing.T) {
	opts := makeOpts(Pie)
	opts.TimeBucket = true
	opts.GroupBy = true
	opts.BucketPeriod = ByMinute
	sd := NewSeriesData(opts)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	sd.Merge(base, 1, farPast)
	sd.Merge(base.Add(10*time.Second), 2, farPast)
	sd.Merge(base.Add(time.Minute), 3, farPast)

	if len(sd.Labels) != 2 {
		t.Fatalf("labels: got %v", sd.Labels)
	}
	if sd.Labels[0] != "12:00" || sd.Labels[1] != "12:01" {
		t.Errorf("labels: got %v", sd.Labels)
	}
	if sd.Bucket[0] != 2 || sd.Bucket[1] != 1 {
		t.Errorf("counts: got %v", sd.Bucket)
	}
}

func TestMergeHistogramRebuild(t *testing.T) {
	opts := makeOpts(Doughnut)
	opts.MinBucket = 0
	opts.MaxBucket = 20
	opts.BucketSize = 10
	opts.NumDP = 0
	sd := NewSeriesData(opts)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	sd.Merge(base, 5, farPast)
	sd.Merge(base.Add(time.Second), 15, farPast)
	sd.Merge(base.Add(2*time.Second), 15, farPast)

	if len(sd.Labels) != 5 { // 3 contiguous bins + 2 catch-alls
		t.Fatalf("histogram labels: got %v", sd.Labels)
	}
	if sd.Bucket[0] != 1 || sd.Bucket[1] != 2 {
		t.Errorf("histogram counts after rebuild: got %v", sd.Bucket)
	}
}

func TestEvictBefore(t *testing.T) {
	opts := makeOpts(Line)
	sd := NewSeriesData(opts)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		sd.ValTimes = append(sd.ValTimes, NewChartPoint(base.Add(time.Duration(i)*time.Minute), float64(i), false))
	}

	sd.EvictBefore(base.Add(2 * time.Minute))
	if len(sd.ValTimes) != 3 {
		t.Fatalf("eviction: got %d points, want 3", len(sd.ValTimes))
	}
	// the boundary point itself is retained
	if !sd.ValTimes[0].X.Time.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("boundary point must survive: head is %v", sd.ValTimes[0].X.Time)
	}
}

func TestEvictOverlayLockstep(t *testing.T) {
	opts := makeOpts(Line)
	opts.AvgPeriod = 2
	sd := Process(makeSamples(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), time.Minute, 1, 2, 3, 4), opts)

	sd.EvictBefore(time.Date(2026, 8, 30, 12, 2, 0, 0, time.UTC))
	if len(sd.ValTimes) != 2 {
		t.Fatalf("primary eviction: got %d", len(sd.ValTimes))
	}
	if len(sd.Upper) != 2 || len(sd.Aggregate) != 2 || len(sd.Lower) != 2 {
		t.Errorf("overlay must evict in lockstep: %d/%d/%d",
			len(sd.Upper), len(sd.Aggregate), len(sd.Lower))
	}
}

func TestEvictSwapped(t *testing.T) {
	opts := makeOpts(HorizontalBar)
	sd := NewSeriesData(opts)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	sd.Merge(base, 1, farPast)
	sd.Merge(base.Add(time.Minute), 2, farPast)

	// swap holds through merge
	if sd.ValTimes[0].X.Num != 1 || !sd.ValTimes[0].Y.Time.Equal(base) {
		t.Fatalf("merge must preserve the axis swap: %+v", sd.ValTimes[0])
	}

	sd.EvictBefore(base.Add(30 * time.Second))
	if len(sd.ValTimes) != 1 || sd.ValTimes[0].X.Num != 2 {
		t.Errorf("swapped eviction must read the time through y: %+v", sd.ValTimes)
	}
}

func TestEvictLabels(t *testing.T) {
	opts := makeOpts(Pie)
	opts.TimeBucket = true
	opts.GroupBy = true
	opts.BucketPeriod = ByMinute
	sd := NewSeriesData(opts)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		sd.Merge(base.Add(time.Duration(i)*time.Minute), float64(i), farPast)
	}
	if len(sd.Labels) != 4 {
		t.Fatalf("setup: %v", sd.Labels)
	}

	sd.EvictBefore(base.Add(2 * time.Minute))
	if len(sd.Labels) != 2 || sd.Labels[0] != "12:02" {
		t.Errorf("label eviction: got %v", sd.Labels)
	}
	if len(sd.Bucket) != 2 {
		t.Errorf("counts must evict with labels: %v", sd.Bucket)
	}
}

func TestMergeGroup(t *testing.T) {
	opts := makeOpts(Line)
	opts.GroupBy = true
	opts.BucketPeriod = ByMinute
	sd := NewSeriesData(opts)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	sd.MergeGroup(NewChartPoint(base, 10, false), false)
	sd.MergeGroup(NewChartPoint(base, 20, false), false)
	if len(sd.ValTimes) != 1 || sd.ValTimes[0].Y.Num != 15 {
		t.Errorf("group average fold: %+v", sd.ValTimes)
	}

	cum := NewSeriesData(opts)
	cum.MergeGroup(NewChartPoint(base, 10, false), true)
	cum.MergeGroup(NewChartPoint(base, 20, false), true)
	if cum.ValTimes[0].Y.Num != 30 {
		t.Errorf("cumulative group fold: %+v", cum.ValTimes)
	}
}
