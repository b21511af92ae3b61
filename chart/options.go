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

package chart

import (
	"strings"
	"time"

	"github.com/chartfeed/chartfeed/measure"
)

// Range computes the query window ending at now. The zeroth range
// unit ("measurements") has no time span, so it falls back to days
// to keep a real window behind a point-count range; the window then
// bounds both the fetch and realtime eviction.
func (c *Config) Range(now time.Time) (from, to time.Time) {
	idx := c.RangeType
	if idx == 0 {
		idx = 4
	}
	unit := RangeUnit(idx)
	return now.Add(-time.Duration(c.RangeValue*float64(unit.Seconds)) * time.Second), now
}

// MeasurementLimit is the point cap for a fetch: when the range is
// expressed in measurements rather than time, RangeValue is the cap,
// otherwise there is none.
func (c *Config) MeasurementLimit() int {
	if c.RangeType > 0 {
		return 0
	}
	return int(c.RangeValue)
}

// unitGranularity maps a range unit onto the bucket truncation
// granularity.
func unitGranularity(u Unit) measure.Granularity {
	switch u.Name {
	case "measurements", "second":
		return measure.BySecond
	case "minute":
		return measure.ByMinute
	case "hour":
		return measure.ByHour
	}
	return measure.ByDay
}

// OptionsFor resolves a configured series key into immutable query
// options plus the query window. The key is the composite
// "device.fragment.series"; deviceOverride, when non-empty, is the
// dashboard-supplied target device and wins over the device embedded
// in the key.
//
// The label layout comes from the display unit table: pie and
// doughnut charts aggregating by time use the aggregation unit
// index, everything else the general one; a configured custom format
// overrides either. A degenerate window (from == to) widens to
// exactly one year ending at to.
func (c *Config) OptionsFor(key, deviceOverride string, now time.Time) (measure.Options, time.Time, time.Time) {
	parts := strings.SplitN(key, ".", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	device := parts[0]
	if deviceOverride != "" {
		device = deviceOverride
	}

	target := c.ChartType()

	unitIndex := c.TimeFormatType
	if (target == "pie" || target == "doughnut") && c.Aggregation == AggByTime {
		unitIndex = c.AggTimeFormatType
	}
	unit := RangeUnit(unitIndex)

	layout := unit.Layout
	if c.CustomFormat {
		layout = c.CustomFormatString
	}

	from, to := c.Range(now)
	if from.Equal(to) {
		from = to.AddDate(-1, 0, 0)
	}

	opts := measure.Options{
		DeviceID:     device,
		Fragment:     parts[1],
		Series:       parts[2],
		TargetType:   target,
		NumDP:        c.NumDP,
		GroupBy:      c.GroupBy,
		Cumulative:   c.Cumulative,
		BucketPeriod: unitGranularity(unit),
		TimeBucket:   c.Aggregation == AggByTime,
		LabelLayout:  layout,
		MinBucket:    c.MinBucket,
		MaxBucket:    c.MaxBucket,
		BucketSize:   c.SizeBuckets,

		GroupCumulative: c.GroupCumulative,
	}
	if s, ok := c.Series[key]; ok {
		opts.Name = s.Name
		opts.AvgPeriod = s.AvgPeriod
	}
	return opts, from, to
}
