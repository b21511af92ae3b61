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
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// A widget is usually configured programmatically by the dashboard;
// the file form below serves dashboards that persist widget
// definitions.

type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) (err error) {
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Needs to be exported for TOML to work
type FileConfig struct {
	Type     string `toml:"type"`
	Position string `toml:"legend-position"`

	ShowX       bool    `toml:"show-x"`
	ShowY       bool    `toml:"show-y"`
	FitAxis     bool    `toml:"fit-axis"`
	StackSeries bool    `toml:"stack-series"`
	FillArea    bool    `toml:"fill-area"`
	ShowPoints  float64 `toml:"show-points"`

	NumDP      int  `toml:"num-dp"`
	GroupBy    bool `toml:"group-by"`
	Cumulative bool `toml:"cumulative"`

	Aggregation string  `toml:"aggregation"` // "time" or "buckets"
	NumBuckets  int     `toml:"num-buckets"`
	MinBucket   float64 `toml:"min-bucket"`
	MaxBucket   float64 `toml:"max-bucket"`
	SizeBuckets float64 `toml:"size-buckets"`

	RangeUnit    string  `toml:"range-unit"`
	RangeValue   float64 `toml:"range-value"`
	FormatUnit   string  `toml:"format-unit"`
	AggUnit      string  `toml:"agg-format-unit"`
	CustomFormat string  `toml:"custom-format"` // Go time layout

	Multivariate bool     `toml:"multivariate"`
	Tolerance    duration `toml:"tolerance"`

	GroupByGroup    bool `toml:"group-by-group"`
	GroupCumulative bool `toml:"group-cumulative"`

	Series []FileSeries `toml:"series"`
}

type FileSeries struct {
	Key              string   `toml:"key"` // "device.fragment.series" or a group name
	Name             string   `toml:"name"`
	Color            string   `toml:"color"`
	AvgColor         string   `toml:"avg-color"`
	Variable         string   `toml:"variable"`
	HideMeasurements bool     `toml:"hide-measurements"`
	AvgType          string   `toml:"avg-type"`
	AvgPeriod        int      `toml:"avg-period"`
	RealTime         string   `toml:"realtime"`
	TimerDelay       duration `toml:"timer-delay"`
	IDList           []string `toml:"members"`
}

func unitIndex(name string) (int, error) {
	if name == "" {
		return 2, nil // minutes
	}
	for i, u := range rangeUnits {
		if u.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown range unit: %q", name)
}

// ReadConfig loads a widget definition from a TOML file.
func ReadConfig(path string) (*Config, error) {
	fc := &FileConfig{ShowX: true, ShowY: true, NumDP: 2, RangeValue: 10}
	if _, err := toml.DecodeFile(path, fc); err != nil {
		return nil, err
	}
	return fc.config()
}

func (fc *FileConfig) config() (*Config, error) {
	cfg := NewConfig()
	if fc.Type != "" {
		cfg.Type = fc.Type
	}
	if fc.Position != "" {
		cfg.Position = fc.Position
	}
	cfg.ShowX = fc.ShowX
	cfg.ShowY = fc.ShowY
	cfg.FitAxis = fc.FitAxis
	cfg.StackSeries = fc.StackSeries
	cfg.FillArea = fc.FillArea
	cfg.ShowPoints = fc.ShowPoints
	cfg.NumDP = fc.NumDP
	cfg.GroupBy = fc.GroupBy
	cfg.Cumulative = fc.Cumulative
	cfg.MinBucket = fc.MinBucket
	cfg.MaxBucket = fc.MaxBucket
	cfg.SizeBuckets = fc.SizeBuckets
	if fc.NumBuckets > 0 {
		cfg.NumBuckets = fc.NumBuckets
	}

	switch fc.Aggregation {
	case "", "time":
		cfg.Aggregation = AggByTime
	case "buckets":
		cfg.Aggregation = AggValueBuckets
	default:
		return nil, fmt.Errorf("invalid aggregation: %q (valid: time, buckets)", fc.Aggregation)
	}

	var err error
	if cfg.RangeType, err = unitIndex(fc.RangeUnit); err != nil {
		return nil, err
	}
	if cfg.TimeFormatType, err = unitIndex(fc.FormatUnit); err != nil {
		return nil, err
	}
	if cfg.AggTimeFormatType, err = unitIndex(fc.AggUnit); err != nil {
		return nil, err
	}
	if fc.RangeValue > 0 {
		cfg.RangeValue = fc.RangeValue
	}
	if fc.CustomFormat != "" {
		cfg.CustomFormat = true
		cfg.CustomFormatString = fc.CustomFormat
	}

	cfg.Multivariate = fc.Multivariate
	if fc.Tolerance.Duration > 0 {
		cfg.Tolerance = fc.Tolerance.Duration
	}
	cfg.GroupByGroup = fc.GroupByGroup
	cfg.GroupCumulative = fc.GroupCumulative

	for i, fs := range fc.Series {
		if fs.Key == "" {
			return nil, fmt.Errorf("series %d: key is required", i)
		}
		color := fs.Color
		if color == "" {
			color = cfg.Color(i)
		}
		avgColor := fs.AvgColor
		if avgColor == "" {
			avgColor = cfg.AvgColor(i)
		}
		s := cfg.AddSeries(fs.Key, fs.Name, color, avgColor)
		s.Variable = fs.Variable
		s.HideMeasurements = fs.HideMeasurements
		if fs.AvgType != "" {
			s.AvgType = fs.AvgType
		}
		if fs.AvgPeriod > 0 {
			s.AvgPeriod = fs.AvgPeriod
		}
		if fs.RealTime != "" {
			s.RealTime = fs.RealTime
		}
		if fs.TimerDelay.Duration > 0 {
			s.TimerDelay = fs.TimerDelay.Duration
		}
		s.IDList = fs.IDList
	}
	return cfg, nil
}
