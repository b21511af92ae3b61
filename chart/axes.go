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

import "github.com/chartfeed/chartfeed/measure"

// Axis types.
const (
	AxisTime     = "time"
	AxisLinear   = "linear"
	AxisCategory = "category"
)

// Axis describes one chart axis.
type Axis struct {
	Display     bool
	Type        string
	Stacked     bool
	BeginAtZero bool
	TimeUnit    string // for time axes
	Layout      string // tick display layout for time axes
}

// Axes builds the x and y axis descriptions for the current
// configuration: a horizontal bar puts time on y and a linear value
// axis on x; categorical and radial types hide both axes; a
// multivariate point plot uses a linear x; everything else plots
// values over a time x axis.
func (c *Config) Axes() (x, y Axis) {
	unit := RangeUnit(c.RangeType)
	layout := unit.Layout
	if c.CustomFormat {
		layout = c.CustomFormatString
	}

	switch target := c.ChartType(); {
	case target == "horizontalBar":
		y = Axis{Display: c.ShowX, Type: AxisTime, Stacked: c.StackSeries, TimeUnit: unit.Name, Layout: layout}
		x = Axis{Display: c.ShowY, Type: AxisLinear, Stacked: c.StackSeries, BeginAtZero: !c.FitAxis}

	case target == "pie" || target == "doughnut" || target == "radar" || target == "polarArea":
		x = Axis{Display: false, Type: AxisLinear, BeginAtZero: !c.FitAxis}
		y = Axis{Display: false, Type: AxisLinear, BeginAtZero: !c.FitAxis}

	case c.Multivariate && (target == "line" || target == "scatter" || target == "bubble"):
		x = Axis{Display: c.ShowX, Type: AxisLinear, Stacked: c.StackSeries, BeginAtZero: !c.FitAxis}
		y = Axis{Display: c.ShowY, Type: AxisLinear, Stacked: c.StackSeries, BeginAtZero: !c.FitAxis}

	default:
		x = Axis{Display: c.ShowX, Type: AxisTime, Stacked: c.StackSeries, TimeUnit: unit.Name, Layout: layout}
		y = Axis{Display: c.ShowY, Type: AxisLinear, Stacked: c.StackSeries, BeginAtZero: !c.FitAxis}
	}
	return x, y
}

// Dataset is one chart-ready series: coordinate data for point
// charts, label/count pairs for categorical ones.
type Dataset struct {
	Label string

	Data   []measure.ChartPoint
	Counts []float64
	Labels []string

	BackgroundColor  string
	BackgroundColors []string // pie slices get one color per label
	BorderColor      string

	Fill               bool
	LineTension        float64
	PointRadius        float64
	BarPercentage      float64
	CategoryPercentage float64
}

// NewDataset returns a point dataset styled per the configuration.
// Splines get line tension, bars their width percentages.
func (c *Config) NewDataset(label, color string, data []measure.ChartPoint) *Dataset {
	d := &Dataset{
		Label:              label,
		Data:               data,
		BackgroundColor:    color,
		BorderColor:        color,
		Fill:               c.FillArea,
		PointRadius:        c.ShowPoints,
		BarPercentage:      0.9,
		CategoryPercentage: 0.9,
	}
	if c.Type == "spline" || c.Type == "spline chart" {
		d.LineTension = 0.4
	}
	return d
}

// NewCategoricalDataset returns a label/count dataset with palette
// colors rotated across the labels.
func (c *Config) NewCategoricalDataset(label string, labels []string, counts []float64) *Dataset {
	colors := make([]string, len(labels))
	for i := range labels {
		colors[i] = c.Color(i)
	}
	return &Dataset{
		Label:            label,
		Labels:           labels,
		Counts:           counts,
		BackgroundColors: colors,
	}
}
