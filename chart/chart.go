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

// Package chart holds the per-widget display and behavior
// configuration: the chart type, palettes, axis settings, the range
// and its display granularity, and the map of configured series. It
// turns a series selection into concrete query options for the
// measure package and builds the chart-ready dataset and axis
// descriptions.
//
// Configuration problems are not errors. A chart with a bad series
// assignment renders a message instead of data, so verification
// computes an enabled flag and a human-readable message rather than
// returning an error value.
package chart

import (
	"strings"
	"time"
)

// Aggregation modes for categorical charts.
const (
	AggByTime = iota
	AggValueBuckets
)

// Realtime update modes for a series.
const (
	UpdateRealtime = "realtime"
	UpdateTimer    = "timer"
)

// Moving-function choices per series. AvgType may name several,
// e.g. "Moving Average & Bollinger Bands".
const (
	AvgNone           = "None"
	AvgMovingAverage  = "Moving Average"
	AvgBollingerBands = "Bollinger Bands"
)

// Unit is one entry of the range granularity table. Seconds is the
// length of the unit, Layout its display time layout.
type Unit struct {
	Seconds int
	Name    string
	Layout  string
}

// rangeUnits is indexed by the config's unit-index fields. The zeroth
// entry means "last N measurements" rather than a time span.
var rangeUnits = []Unit{
	{0, "measurements", "3:04:05.000 PM"},
	{1, "second", "3:04:05 PM"},
	{60, "minute", "3:04 PM"},
	{3600, "hour", "3PM"},
	{86400, "day", "Jan 2"},
	{604800, "week", "Jan 2, 2006"},
	{2592000, "month", "Jan 2006"},
	{7776000, "quarter", "Jan 2006"},
	{31536000, "year", "2006"},
}

// RangeUnit returns the unit table entry for index i, clamped into
// the table.
func RangeUnit(i int) Unit {
	if i < 0 || i >= len(rangeUnits) {
		return rangeUnits[2] // minutes
	}
	return rangeUnits[i]
}

// Default palettes. Rotated cyclically when the chart has more
// series than colors.
var (
	defaultColors = []string{
		"#FF0000", "#00FF00", "#0000FF", "#FF00FF", "#00FFFF", "#808000",
		"#800000", "#008000", "#008080", "#800080", "#808080", "#FFFF00",
	}
	defaultAvgColors = []string{
		"#800000", "#008000", "#008080", "#800080", "#808080", "#FFFF00",
		"#FF0000", "#00FF00", "#0000FF", "#FF00FF", "#00FFFF", "#808000",
	}
)

// Series is the per-series display and behavior configuration. The
// key it is stored under is the composite "device.fragment.series"
// identifier, or a group name when the series is a parent aggregate
// of the sub-series in IDList.
type Series struct {
	Name     string
	Color    string
	AvgColor string

	// Variable tags the series' role in a multivariate plot: "x",
	// "y" or "r". Empty means unassigned.
	Variable string

	HideMeasurements bool
	AvgType          string
	AvgPeriod        int

	RealTime   string
	TimerDelay time.Duration

	// group parents aggregate the members listed in IDList
	IDList []string
}

func (s *Series) IsParent() bool { return len(s.IDList) > 0 }

func (s *Series) WantAverage() bool {
	return strings.Contains(s.AvgType, AvgMovingAverage)
}

func (s *Series) WantBands() bool {
	return strings.Contains(s.AvgType, AvgBollingerBands)
}

// Config is the complete widget configuration.
type Config struct {
	Type     string // raw chart type as configured, see ChartType
	Position string // legend position, "None" hides the legend

	ShowX          bool
	ShowY          bool
	ShowAxesLabels bool
	FitAxis        bool // begin axes at the data range instead of zero
	StackSeries    bool
	FillArea       bool
	ShowPoints     float64 // point radius, 0 hides points

	NumDP      int
	GroupBy    bool
	Cumulative bool

	Aggregation int // AggByTime or AggValueBuckets
	NumBuckets  int
	MinBucket   float64
	MaxBucket   float64
	SizeBuckets float64

	// indices into the range unit table
	RangeType         int
	TimeFormatType    int
	AggTimeFormatType int
	RangeValue        float64

	CustomFormat       bool
	CustomFormatString string // a Go time layout

	Multivariate bool
	Tolerance    time.Duration // cross-series time matching window

	GroupByGroup    bool
	GroupCumulative bool

	Colors    []string
	AvgColors []string

	Series map[string]*Series
}

// NewConfig returns a config with the same defaults the original
// widget form starts from.
func NewConfig() *Config {
	return &Config{
		Type:              "line",
		Position:          "None",
		ShowX:             true,
		ShowY:             true,
		ShowAxesLabels:    true,
		NumDP:             2,
		NumBuckets:        5,
		RangeType:         2, // minutes
		TimeFormatType:    2,
		AggTimeFormatType: 2,
		RangeValue:        10,
		Tolerance:         500 * time.Millisecond,
		Colors:            defaultColors,
		AvgColors:         defaultAvgColors,
		Series:            make(map[string]*Series),
	}
}

// ChartType normalizes the configured type: splines are lines with
// tension, histograms are bars over value buckets.
func (c *Config) ChartType() string {
	switch c.Type {
	case "spline", "spline chart":
		return "line"
	case "histogram":
		return "bar"
	}
	return c.Type
}

// Color returns the i-th series color, cycling through the palette.
func (c *Config) Color(i int) string {
	p := c.Colors
	if len(p) == 0 {
		p = defaultColors
	}
	return p[i%len(p)]
}

func (c *Config) AvgColor(i int) string {
	p := c.AvgColors
	if len(p) == 0 {
		p = defaultAvgColors
	}
	return p[i%len(p)]
}

// AddSeries registers a series under key unless already present.
func (c *Config) AddSeries(key, name, color, avgColor string) *Series {
	if s, ok := c.Series[key]; ok {
		return s
	}
	s := &Series{
		Name:       name,
		Color:      color,
		AvgColor:   avgColor,
		AvgType:    AvgNone,
		AvgPeriod:  10,
		RealTime:   UpdateRealtime,
		TimerDelay: 30 * time.Second,
	}
	if c.Series == nil {
		c.Series = make(map[string]*Series)
	}
	c.Series[key] = s
	return s
}

// SeriesKeys returns the configured series keys, sorted for stable
// palette assignment.
func (c *Config) SeriesKeys() []string {
	keys := make([]string, 0, len(c.Series))
	for k := range c.Series {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ { // insertion sort, lists are tiny
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

// Roles maps multivariate variable assignments ("x", "y", "r") to
// the series keys carrying them.
func (c *Config) Roles() map[string]string {
	roles := make(map[string]string)
	for key, s := range c.Series {
		if s.Variable != "" {
			roles[s.Variable] = key
		}
	}
	return roles
}

// Verify checks whether the configuration can produce a chart.
// Returns the enabled flag and, when disabled, a message for the
// widget body.
func (c *Config) Verify() (bool, string) {
	if len(c.Series) == 0 {
		return false, "You must choose at least one device and fragment to plot a chart."
	}
	ct := c.ChartType()
	if (ct == "pie" || ct == "doughnut") && c.Aggregation == AggValueBuckets && c.SizeBuckets <= 0 {
		return false, "You must set a bucket size greater than 0."
	}
	if c.Multivariate {
		roles := c.Roles()
		_, x := roles["x"]
		_, y := roles["y"]
		_, r := roles["r"]
		if c.ChartType() == "bubble" {
			if len(c.Series) != 3 || !x || !y || !r {
				return false, "You must choose exactly 3 fragments and assign x,y, and r."
			}
		} else if len(c.Series) != 2 {
			return false, "You must choose exactly 2 fragments and assign x,y."
		} else if !x || !y {
			return false, "You must assign x,y."
		}
	}
	return true, ""
}
