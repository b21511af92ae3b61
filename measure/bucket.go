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
	"fmt"
	"math"
	"time"
)

// Truncate zeroes the sub-granularity components of t, in t's
// location. This is the single truncation rule shared by the fetch
// path and the push path; the two must never diverge or a pushed
// sample lands in a different bucket than its fetched siblings.
func Truncate(t time.Time, g Granularity) time.Time {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	switch g {
	case BySecond:
		return time.Date(y, mo, d, h, mi, s, 0, t.Location())
	case ByMinute:
		return time.Date(y, mo, d, h, mi, 0, 0, t.Location())
	case ByHour:
		return time.Date(y, mo, d, h, 0, 0, 0, t.Location())
	default:
		return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
	}
}

// TimeKey renders the bucket label for a point. It reads the time
// coordinate through the axis swap, so horizontal bars categorize on
// y like everything else categorizes on x.
func TimeKey(opts *Options, p ChartPoint) string {
	return p.When(opts.Swapped()).Format(opts.LabelLayout)
}

// ValueKey returns the histogram bin index for a value given the
// bucket minimum and size. The index is not clamped, callers decide
// what to do with out-of-range bins. This is deliberately a separate
// function from TimeKey: the push path categorizes by time, the
// histogram rebuild by value, and overloading one function for both
// has historically been a source of drift.
func ValueKey(v, min, size float64) int {
	return int(math.Floor((v - min) / size))
}

// Process turns chronologically ordered samples into complete series
// state: the primary (possibly bucket-folded) point series, the
// envelope overlay and the categorical representation, as the target
// graph type requires.
func Process(samples []Sample, opts Options) *SeriesData {
	sd := reduce(samples, opts)
	sd.buildOverlay()
	sd.buildBuckets()
	return sd
}

// reduce is a single linear pass with a one-bucket lookback: a new
// bucket starts whenever the computed key changes from the previous
// sample's key. Input must be pre-sorted oldest first.
func reduce(samples []Sample, opts Options) *SeriesData {
	sd := NewSeriesData(opts)
	swap := opts.Swapped()

	var counts []int
	lastBucket := ""

	for _, s := range samples {
		t := s.Time
		if opts.GroupBy {
			t = Truncate(t, opts.BucketPeriod)
		}
		v := roundTo(s.Value, opts.NumDP)
		sd.observe(v)

		p := NewChartPoint(t, v, swap)

		if opts.GroupBy {
			key := TimeKey(&opts, p)
			if key != lastBucket {
				sd.ValTimes = append(sd.ValTimes, p)
				counts = append(counts, 1)
			} else {
				last := &sd.ValTimes[len(sd.ValTimes)-1]
				last.setVal(last.Val(swap)+v, swap)
				counts[len(counts)-1]++
			}
			lastBucket = key
		} else {
			sd.ValTimes = append(sd.ValTimes, p)
		}
	}

	// second pass: folded buckets hold sums, divide out the counts
	// unless a running total was asked for
	if opts.GroupBy && !opts.Cumulative {
		for i := range sd.ValTimes {
			p := &sd.ValTimes[i]
			p.setVal(roundTo(p.Val(swap)/float64(counts[i]), opts.NumDP), swap)
		}
	}

	if len(counts) > 0 {
		sd.ValCount = counts[len(counts)-1] // so the push path can continue the fold
	}
	if len(sd.ValTimes) > 0 {
		sd.Avg = sd.Sum / float64(len(sd.ValTimes))
	}
	if sd.Min == math.MaxFloat64 {
		sd.Min = 0
	}
	return sd
}

// buildBuckets fills Labels/Bucket for categorical graph types,
// either counting points per time bucket or binning values into a
// histogram. A no-op for everything else.
func (sd *SeriesData) buildBuckets() {
	opts := &sd.Options
	if !opts.Categorical() {
		return
	}

	if !opts.TimeBucket {
		sd.Labels, sd.Bucket = Histogram(sd.values(), opts.MinBucket, opts.MaxBucket, opts.BucketSize, opts.NumDP)
		return
	}

	// counts over time, in first-seen label order
	idx := map[string]int{}
	for _, p := range sd.ValTimes {
		key := TimeKey(opts, p)
		if i, ok := idx[key]; ok {
			sd.Bucket[i]++
		} else {
			idx[key] = len(sd.Labels)
			sd.Labels = append(sd.Labels, key)
			sd.Bucket = append(sd.Bucket, 1)
		}
	}
}

func (sd *SeriesData) values() []float64 {
	swap := sd.Options.Swapped()
	vals := make([]float64, len(sd.ValTimes))
	for i, p := range sd.ValTimes {
		vals[i] = p.Val(swap)
	}
	return vals
}

// Histogram bins values into floor((max-min)/size)+1 contiguous bins
// labeled "lower - upper", followed by two catch-alls for values
// below min and above max. The last contiguous bin extends past max;
// values landing exactly on its upper boundary fold into it rather
// than overflowing into the catch-all. A non-positive bin size or an
// inverted range cannot be binned and yields no bins at all.
func Histogram(values []float64, min, max, size float64, dp int) (labels []string, counts []float64) {
	if size <= 0 || max < min {
		return nil, nil
	}
	nbins := int(math.Floor((max-min)/size)) + 1
	counts = make([]float64, nbins+2)
	labels = make([]string, 0, nbins+2)

	lower := fixed(min, dp)
	for i := 0; i < nbins; i++ {
		upper := fixed(min+float64(i+1)*size, dp)
		labels = append(labels, fmt.Sprintf("%s - %s", lower, upper))
		lower = upper
	}
	labels = append(labels, fmt.Sprintf("< %v", min))
	labels = append(labels, fmt.Sprintf("> %v", max))

	edge := min + float64(nbins)*size
	for _, v := range values {
		bin := ValueKey(v, min, size)
		switch {
		case bin < 0:
			counts[nbins]++ // below-min catch-all
		case bin < nbins:
			counts[bin]++
		case v == edge:
			counts[nbins-1]++ // exact upper boundary belongs to the last bin
		default:
			counts[nbins+1]++ // above-max catch-all
		}
	}
	return labels, counts
}

func fixed(v float64, dp int) string {
	return fmt.Sprintf("%.*f", dp, v)
}
