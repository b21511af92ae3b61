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

import "time"

// Merge folds one pushed sample into the series state. It normalizes
// the timestamp to the bucket granularity, folds the value into the
// last bucket (or starts a new one), advances the categorical and
// overlay representations and finally evicts whatever has slid out
// of the [from, now] window. The bucket key comparison uses the same
// TimeKey/Truncate pair as the fetch path.
//
// Malformed or late data never errors out of here; the worst case is
// that the sample is ignored.
func (sd *SeriesData) Merge(ts time.Time, value float64, windowFrom time.Time) {
	opts := &sd.Options
	swap := opts.Swapped()

	if opts.GroupBy {
		ts = Truncate(ts, opts.BucketPeriod)
	}
	v := roundTo(value, opts.NumDP)
	sd.observe(v)

	datum := NewChartPoint(ts, v, swap)

	newKey := TimeKey(opts, datum)
	lastKey := ""
	if last, ok := sd.lastPoint(); ok {
		lastKey = TimeKey(opts, last)
	}

	if opts.GroupBy && newKey == lastKey {
		sd.foldLast(datum, opts.Cumulative)
	} else {
		sd.ValCount = 1
		sd.ValTimes = append(sd.ValTimes, datum)
	}

	if opts.Categorical() {
		sd.mergeCategorical(newKey)
	} else {
		sd.advanceOverlay(ts)
	}

	sd.EvictBefore(windowFrom)
}

// foldLast merges datum into the last displayed point: a running
// average ((new + old*count) / (count+1)) or a plain sum when the
// series is cumulative. The folded value is rounded after every fold
// so repeated folds cannot drift.
func (sd *SeriesData) foldLast(datum ChartPoint, cumulative bool) {
	swap := sd.Options.Swapped()
	last := &sd.ValTimes[len(sd.ValTimes)-1]
	old := last.Val(swap)
	if cumulative {
		last.setVal(roundTo(old+datum.Val(swap), sd.Options.NumDP), swap)
	} else {
		n := float64(sd.ValCount)
		last.setVal(roundTo((datum.Val(swap)+old*n)/(n+1), sd.Options.NumDP), swap)
	}
	sd.ValCount++
}

// mergeCategorical advances the label/count representation: in
// time-bucket mode an existing label's count is incremented (or a
// new label appended), in value-bucket mode the histogram is rebuilt
// from the accumulated points.
func (sd *SeriesData) mergeCategorical(key string) {
	opts := &sd.Options
	if !opts.TimeBucket {
		sd.Labels, sd.Bucket = Histogram(sd.values(), opts.MinBucket, opts.MaxBucket, opts.BucketSize, opts.NumDP)
		return
	}
	for i, l := range sd.Labels {
		if l == key {
			sd.Bucket[i]++
			return
		}
	}
	sd.Labels = append(sd.Labels, key)
	sd.Bucket = append(sd.Bucket, 1)
}

// MergeGroup folds datum into a group composite series. Buckets are
// keyed by the label layout; members fold as a running average or,
// when the group is cumulative, a plain sum.
func (sd *SeriesData) MergeGroup(datum ChartPoint, cumulative bool) {
	opts := &sd.Options

	key := TimeKey(opts, datum)
	lastKey := ""
	if last, ok := sd.lastPoint(); ok {
		lastKey = TimeKey(opts, last)
	}

	if key != lastKey {
		sd.ValCount = 1
		sd.ValTimes = append(sd.ValTimes, datum)
		return
	}
	sd.foldLast(datum, cumulative)
}

// EvictBefore drops points whose leading timestamp precedes from,
// always from the head. Points exactly on the boundary are retained.
// The overlay triplet evicts in lockstep on the aggregate series'
// timestamps; the primary series evicts through the axis swap, so a
// horizontal bar evicts on y.
func (sd *SeriesData) EvictBefore(from time.Time) {
	swap := sd.Options.Swapped()

	for len(sd.Aggregate) > 0 && sd.Aggregate[0].X.Time.Before(from) {
		sd.Upper = sd.Upper[1:]
		sd.Aggregate = sd.Aggregate[1:]
		sd.Lower = sd.Lower[1:]
	}

	for len(sd.ValTimes) > 0 && sd.ValTimes[0].When(swap).Before(from) {
		sd.ValTimes = sd.ValTimes[1:]
	}

	if sd.Options.Categorical() && sd.Options.TimeBucket {
		sd.evictLabels(from)
	}
}

// evictLabels drops leading time-bucket labels older than from. A
// label is parsed back with the label layout; layouts without a date
// part are anchored to from's date, which matches how the labels
// were produced within a rolling window. Unparseable labels stop the
// eviction rather than failing.
func (sd *SeriesData) evictLabels(from time.Time) {
	layout := sd.Options.LabelLayout
	for len(sd.Labels) > 0 {
		t, err := time.ParseInLocation(layout, sd.Labels[0], from.Location())
		if err != nil {
			return
		}
		if t.Year() == 0 {
			y, mo, d := from.Date()
			h, mi, s := t.Clock()
			t = time.Date(y, mo, d, h, mi, s, 0, from.Location())
		}
		if !t.Before(from) {
			return
		}
		sd.Labels = sd.Labels[1:]
		sd.Bucket = sd.Bucket[1:]
	}
}
