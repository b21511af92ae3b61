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

func makeSamples(start time.Time, step time.Duration, values ...float64) []Sample {
	samples := make([]Sample, len(values))
	for i, v := range values {
		samples[i] = Sample{Time: start.Add(time.Duration(i) * step), Value: v}
	}
	return samples
}

func makeOpts(target string) Options {
	return Options{
		DeviceID:    "8839",
		Name:        "temperature",
		Fragment:    "c8y_Temperature",
		Series:      "T",
		TargetType:  target,
		NumDP:       2,
		LabelLayout: "15:04",
	}
}

func TestTruncate(t *testing.T) {
	loc := time.FixedZone("TST", 3*3600)
	in := time.Date(2026, 8, 30, 14, 35, 27, 123456789, loc)

	cases := []struct {
		g    Granularity
		want time.Time
	}{
		{BySecond, time.Date(2026, 8, 30, 14, 35, 27, 0, loc)},
		{ByMinute, time.Date(2026, 8, 30, 14, 35, 0, 0, loc)},
		{ByHour, time.Date(2026, 8, 30, 14, 0, 0, 0, loc)},
		{ByDay, time.Date(2026, 8, 30, 0, 0, 0, 0, loc)},
	}
	for _, c := range cases {
		if got := Truncate(in, c.g); !got.Equal(c.want) {
			t.Errorf("Truncate(%v, %v): got %v, want %v", in, c.g, got, c.want)
		}
		if got := Truncate(in, c.g); got.Location() != loc {
			t.Errorf("Truncate changed location: %v", got.Location())
		}
	}
}

func TestReduceNoGrouping(t *testing.T) {
	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	samples := makeSamples(start, time.Minute, 1.111, 2.222, 3.333)

	opts := makeOpts(Line)
	sd := Process(samples, opts)

	if len(sd.ValTimes) != 3 {
		t.Fatalf("ungrouped reduce: expected 3 points, got %d", len(sd.ValTimes))
	}
	if sd.ValTimes[0].Y.Num != 1.11 || sd.ValTimes[2].Y.Num != 3.33 {
		t.Errorf("values not rounded to NumDP: %v %v", sd.ValTimes[0].Y.Num, sd.ValTimes[2].Y.Num)
	}
	if sd.Max != 3.33 || sd.Min != 1.11 {
		t.Errorf("running stats wrong: max %v min %v", sd.Max, sd.Min)
	}
	wantAvg := (1.11 + 2.22 + 3.33) / 3
	if math.Abs(sd.Avg-wantAvg) > 1e-9 {
		t.Errorf("avg: got %v, want %v", sd.Avg, wantAvg)
	}
}

// Three-minute data bucketed hourly must fold into a single averaged
// point stamped with the truncated hour.
func TestReduceHourlyBuckets(t *testing.T) {
	start := time.Date(2026, 8, 30, 10, 5, 0, 0, time.UTC)
	samples := makeSamples(start, time.Minute, 10, 20, 30)

	opts := makeOpts(Line)
	opts.GroupBy = true
	opts.BucketPeriod = ByHour
	opts.LabelLayout = "Jan 02 15:04"
	sd := Process(samples, opts)

	if len(sd.ValTimes) != 1 {
		t.Fatalf("hourly bucket: expected 1 point, got %d", len(sd.ValTimes))
	}
	p := sd.ValTimes[0]
	want := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	if !p.X.Time.Equal(want) {
		t.Errorf("bucket timestamp: got %v, want %v", p.X.Time, want)
	}
	if p.Y.Num != 20 {
		t.Errorf("bucket average: got %v, want 20", p.Y.Num)
	}
	if sd.ValCount != 3 {
		t.Errorf("last bucket count: got %d, want 3", sd.ValCount)
	}
}

func TestReduceCumulative(t *testing.T) {
	start := time.Date(2026, 8, 30, 10, 0, 30, 0, time.UTC)
	samples := makeSamples(start, 10*time.Second, 1, 2, 3, 4)

	opts := makeOpts(Bar)
	opts.GroupBy = true
	opts.Cumulative = true
	opts.BucketPeriod = ByMinute
	sd := Process(samples, opts)

	// samples at :30 :40 :50 share a minute, :00:10 starts the next
	if len(sd.ValTimes) != 2 {
		t.Fatalf("cumulative reduce: expected 2 buckets, got %d", len(sd.ValTimes))
	}
	if sd.ValTimes[0].Y.Num != 6 {
		t.Errorf("cumulative first bucket: got %v, want 6", sd.ValTimes[0].Y.Num)
	}
	if sd.ValTimes[1].Y.Num != 4 {
		t.Errorf("cumulative second bucket: got %v, want 4", sd.ValTimes[1].Y.Num)
	}
}

// Re-processing already bucket-aligned data must not change it.
func TestReduceIdempotent(t *testing.T) {
	opts := makeOpts(Line)
	opts.GroupBy = true
	opts.BucketPeriod = ByMinute

	start := time.Date(2026, 8, 30, 10, 3, 17, 0, time.UTC)
	first := Process(makeSamples(start, time.Minute, 5, 7, 9), opts)

	again := make([]Sample, len(first.ValTimes))
	for i, p := range first.ValTimes {
		again[i] = Sample{Time: p.X.Time, Value: p.Y.Num}
	}
	second := Process(again, opts)

	if len(second.ValTimes) != len(first.ValTimes) {
		t.Fatalf("re-bucketing changed length: %d vs %d", len(second.ValTimes), len(first.ValTimes))
	}
	for i := range first.ValTimes {
		if first.ValTimes[i] != second.ValTimes[i] {
			t.Errorf("re-bucketing changed point %d: %+v vs %+v", i, first.ValTimes[i], second.ValTimes[i])
		}
	}
}

func TestReduceEmpty(t *testing.T) {
	sd := Process(nil, makeOpts(Line))
	if len(sd.ValTimes) != 0 || sd.Min != 0 || sd.Max != 0 || sd.Avg != 0 {
		t.Errorf("empty input should produce zeroed series, got %+v", sd)
	}
}

func TestHorizontalBarSwap(t *testing.T) {
	start := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	samples := makeSamples(start, time.Minute, 42)

	opts := makeOpts(HorizontalBar)
	sd := Process(samples, opts)

	p := sd.ValTimes[0]
	if p.X.Num != 42 {
		t.Errorf("horizontalBar: value should live on x, got x=%+v", p.X)
	}
	if !p.Y.Time.Equal(start) {
		t.Errorf("horizontalBar: time should live on y, got y=%+v", p.Y)
	}
	// accessors undo the swap
	if p.Val(true) != 42 || !p.When(true).Equal(start) {
		t.Errorf("swapped accessors wrong: val=%v when=%v", p.Val(true), p.When(true))
	}
}

func TestValueKey(t *testing.T) {
	cases := []struct {
		v, min, size float64
		want         int
	}{
		{0, 0, 10, 0},
		{9.99, 0, 10, 0},
		{10, 0, 10, 1},
		{-5, 0, 10, -1},
		{105, 0, 10, 10},
		{25, 20, 5, 1},
	}
	for _, c := range cases {
		if got := ValueKey(c.v, c.min, c.size); got != c.want {
			t.Errorf("ValueKey(%v, %v, %v): got %d, want %d", c.v, c.min, c.size, got, c.want)
		}
	}
}

func TestHistogram(t *testing.T) {
	values := []float64{-3, 0, 5, 10, 15, 19.9, 20, 25, 30, 35}
	labels, counts := Histogram(values, 0, 20, 10, 0)

	wantLabels := []string{"0 - 10", "10 - 20", "20 - 30", "< 0", "> 20"}
	if len(labels) != len(wantLabels) {
		t.Fatalf("histogram labels: got %v, want %v", labels, wantLabels)
	}
	for i := range wantLabels {
		if labels[i] != wantLabels[i] {
			t.Errorf("label %d: got %q, want %q", i, labels[i], wantLabels[i])
		}
	}

	// 0, 5 in the first bin; 10, 15, 19.9 in the second; 20, 25 and
	// the exact boundary 30 in the third; -3 below; 35 above
	wantCounts := []float64{2, 3, 3, 1, 1}
	for i := range wantCounts {
		if counts[i] != wantCounts[i] {
			t.Errorf("count %d: got %v, want %v", i, counts[i], wantCounts[i])
		}
	}

	var total float64
	for _, c := range counts {
		total += c
	}
	if total != float64(len(values)) {
		t.Errorf("histogram must cover every value: %v of %d counted", total, len(values))
	}
}

func TestHistogramDegenerate(t *testing.T) {
	// an unset bin size or an inverted range must not blow up, a push
	// rebuild can hit either with a half-configured chart
	for _, c := range []struct{ min, max, size float64 }{
		{0, 10, 0},
		{0, 10, -1},
		{10, 0, 2},
	} {
		labels, counts := Histogram([]float64{1, 2, 3}, c.min, c.max, c.size, 2)
		if len(labels) != 0 || len(counts) != 0 {
			t.Errorf("min=%v max=%v size=%v: got %v / %v", c.min, c.max, c.size, labels, counts)
		}
	}
}

func TestTimeBucketCounts(t *testing.T) {
	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	samples := makeSamples(start, 20*time.Second, 1, 2, 3, 4) // 3 in minute :00, 1 in :01

	opts := makeOpts(Pie)
	opts.TimeBucket = true
	opts.GroupBy = true
	opts.BucketPeriod = BySecond
	opts.LabelLayout = "15:04:05"
	sd := Process(samples, opts)

	if len(sd.Labels) != 4 {
		t.Fatalf("second-level buckets: expected 4 labels, got %v", sd.Labels)
	}

	opts.BucketPeriod = ByMinute
	opts.LabelLayout = "15:04"
	sd = Process(samples, opts)
	if len(sd.Labels) != 2 {
		t.Fatalf("minute-level buckets: expected 2 labels, got %v", sd.Labels)
	}
	if sd.Bucket[0] != 1 || sd.Bucket[1] != 1 {
		// grouping folded the three :00 samples into one point first
		t.Errorf("per-label counts: got %v", sd.Bucket)
	}
}
