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

// Package measure contains the logic for turning raw measurement
// samples into chart-ready series and for folding pushed samples into
// an already-built series. This is the in-memory core, there is no
// code here that talks to a backend or to storage.
//
// Throughout documentation and code the following terms are used:
//
// Sample: one raw time-stamped value for a (device, fragment, series)
// triple, in the form it arrives from the backend.
//
// Fragment/Series: the two-level key identifying a value within a
// device's measurement payload (e.g. "c8y_Temperature.T").
//
// Bucket: a time-window or value-range grouping that multiple raw
// samples fold into. Time buckets are keyed by the sample timestamp
// truncated to a granularity and rendered with the label layout;
// value buckets are histogram bins.
//
// Series data: the long-lived state for one charted series, holding
// the displayed points, the envelope overlay, the categorical buckets
// and the running summary statistics. It is built once from a fetch
// and then mutated in place by Merge as pushed samples arrive.
//
// Envelope: upper/mid/lower bands derived from a moving average and
// its local deviation, used to visualize trend and dispersion.
//
// Axis swap: horizontal bar charts put the value on x and the time on
// y. The swap is applied once, when a point is built, and every later
// stage (bucketing, merging, eviction) reads through When/Val so no
// stage ever un-swaps it.
package measure

import (
	"fmt"
	"math"
	"time"
)

// Graph types the engine distinguishes. These are the normalized
// types, i.e. after spline and histogram have been mapped to their
// raw chart type.
const (
	Line          = "line"
	Bar           = "bar"
	HorizontalBar = "horizontalBar"
	Pie           = "pie"
	Doughnut      = "doughnut"
	Radar         = "radar"
	PolarArea     = "polarArea"
	Scatter       = "scatter"
	Bubble        = "bubble"
)

// Time bucket granularity for group-by aggregation.
type Granularity int

const (
	BySecond Granularity = iota
	ByMinute
	ByHour
	ByDay
)

// Sample is one raw measurement as received from the backend, the
// value already extracted from its fragment/series path.
type Sample struct {
	Time  time.Time
	Value float64
}

// Measurement is the nested payload in which the backend delivers
// samples, both on the paged query path and on the push channel.
type Measurement struct {
	Time   time.Time                         `json:"time"`
	Source string                            `json:"source"`
	Values map[string]map[string]SeriesValue `json:"values"`
}

type SeriesValue struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Extract returns the value at the fragment/series path. The second
// return is false when the path is absent, which callers must treat
// as "skip this row", never as an error.
func (m *Measurement) Extract(fragment, series string) (float64, bool) {
	frag, ok := m.Values[fragment]
	if !ok {
		return 0, false
	}
	sv, ok := frag[series]
	if !ok {
		return 0, false
	}
	return sv.Value, true
}

// Coord is one chart coordinate, either a time or a number. Which of
// the two is meaningful depends on the axis the coordinate is on.
// A plain-data type so that series survive gob round-trips without
// any runtime type restoration.
type Coord struct {
	Time time.Time
	Num  float64
}

func timeCoord(t time.Time) Coord { return Coord{Time: t} }
func numCoord(v float64) Coord    { return Coord{Num: v} }

// ChartPoint is a single displayable point. For time series x is the
// time and y the value unless the target graph is a horizontal bar,
// in which case they are swapped. For multivariate results both x
// and y (and r for bubbles) are numbers.
type ChartPoint struct {
	X Coord
	Y Coord
	R float64
}

// NewChartPoint builds a point for a time-series graph, applying the
// axis swap for horizontal bars.
func NewChartPoint(t time.Time, v float64, swap bool) ChartPoint {
	if swap {
		return ChartPoint{X: numCoord(v), Y: timeCoord(t)}
	}
	return ChartPoint{X: timeCoord(t), Y: numCoord(v)}
}

// When returns the time coordinate honoring the axis swap.
func (p ChartPoint) When(swap bool) time.Time {
	if swap {
		return p.Y.Time
	}
	return p.X.Time
}

// Val returns the value coordinate honoring the axis swap.
func (p ChartPoint) Val(swap bool) float64 {
	if swap {
		return p.X.Num
	}
	return p.Y.Num
}

func (p *ChartPoint) setVal(v float64, swap bool) {
	if swap {
		p.X.Num = v
	} else {
		p.Y.Num = v
	}
}

// Options describe what to fetch and how to aggregate it for one
// series. They are built once per series per fetch cycle and never
// mutated afterwards; anything that varies per call is a parameter.
type Options struct {
	DeviceID string
	Name     string
	Fragment string
	Series   string

	TargetType string // normalized graph type
	NumDP      int    // decimal precision of folded values

	// Group-by-time aggregation of the primary series.
	GroupBy      bool
	Cumulative   bool // sum instead of average within a bucket
	BucketPeriod Granularity

	// Envelope overlay.
	AvgPeriod int

	// Categorical (pie/doughnut) representation: either time buckets
	// rendered with LabelLayout, or value buckets (histogram).
	TimeBucket  bool
	LabelLayout string
	MinBucket   float64
	MaxBucket   float64
	BucketSize  float64

	// Composite membership. Empty when the series is not in a group.
	Group           string
	GroupCumulative bool
}

// Swapped is true when the target graph type puts values on the x
// axis.
func (o *Options) Swapped() bool { return o.TargetType == HorizontalBar }

// Categorical is true for graph types rendered from label/count pairs
// rather than coordinate points.
func (o *Options) Categorical() bool {
	return o.TargetType == Pie || o.TargetType == Doughnut
}

// Key is the composite series identifier "device.fragment.series".
func (o *Options) Key() string {
	return fmt.Sprintf("%s.%s.%s", o.DeviceID, o.Fragment, o.Series)
}

// SeriesData is the long-lived state of one charted series. ValTimes
// is the primary displayed series; Upper/Aggregate/Lower the envelope
// overlay; Bucket/Labels the categorical form; Max/Min/Sum/Avg the
// running statistics over the fetched window. All point sequences
// stay chronologically ascending, eviction removes from the head.
type SeriesData struct {
	Options Options

	ValTimes []ChartPoint
	ValCount int // raw samples folded into the last bucket

	Upper     []ChartPoint
	Aggregate []ChartPoint
	Lower     []ChartPoint

	Bucket []float64
	Labels []string

	Max float64
	Min float64
	Sum float64
	Avg float64
}

// NewSeriesData returns empty series state for the given options.
func NewSeriesData(opts Options) *SeriesData {
	return &SeriesData{Options: opts, Min: math.MaxFloat64}
}

func (sd *SeriesData) lastPoint() (ChartPoint, bool) {
	if len(sd.ValTimes) == 0 {
		return ChartPoint{}, false
	}
	return sd.ValTimes[len(sd.ValTimes)-1], true
}

// note the value in the running statistics
func (sd *SeriesData) observe(v float64) {
	if v > sd.Max {
		sd.Max = v
	}
	if v < sd.Min {
		sd.Min = v
	}
	sd.Sum += v
}

// roundTo rounds v to dp decimal places. Folded bucket values are
// rounded after every fold so that repeated divide/re-multiply cycles
// on the push path cannot accumulate float drift.
func roundTo(v float64, dp int) float64 {
	if dp < 0 {
		return v
	}
	p := math.Pow(10, float64(dp))
	return math.Round(v*p) / p
}
