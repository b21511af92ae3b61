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

package widget

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/chartfeed/chartfeed/cache"
	"github.com/chartfeed/chartfeed/chart"
	"github.com/chartfeed/chartfeed/measure"
)

// Load runs the full pipeline and takes the push subscriptions.
// Called once when the widget appears on a dashboard.
func (w *Widget) Load(ctx context.Context) error {
	return w.run(ctx, true)
}

// Refresh re-runs the pipeline without touching subscriptions. The
// timer path and external "reload" buttons use this.
func (w *Widget) Refresh(ctx context.Context) error {
	return w.run(ctx, false)
}

func (w *Widget) run(ctx context.Context, subscribe bool) error {
	w.mu.Lock()
	w.generation++
	gen := w.generation
	ok, msg := w.cfg.Verify()
	w.enabled = ok
	w.message = msg
	w.mu.Unlock()

	if !ok {
		log.Printf("widget %s: disabled: %s", w.instance, msg)
		return nil
	}

	var (
		datasets []*chart.Dataset
		err      error
	)
	if w.cfg.Multivariate {
		datasets, err = w.loadMultivariate(ctx, gen)
	} else {
		datasets, err = w.loadIndependent(ctx, gen, subscribe)
	}
	if err != nil {
		return err
	}

	// a superseded load (generation moved on) keeps its hands off
	w.mu.Lock()
	if w.generation == gen {
		w.datasets = datasets
	}
	w.mu.Unlock()

	if subscribe {
		w.maybeStartTimer(ctx)
	}
	w.signalRedraw()
	return nil
}

// loadIndependent handles the ordinary case: every configured series
// fetched, bucketed and rendered on its own, group parents
// aggregated from their members afterwards.
func (w *Widget) loadIndependent(ctx context.Context, gen int, subscribe bool) ([]*chart.Dataset, error) {
	now := w.now()
	keys := w.cfg.SeriesKeys()

	var parents []string
	for _, key := range keys {
		s := w.cfg.Series[key]
		if s.IsParent() {
			parents = append(parents, key)
			continue
		}

		opts, from, to := w.cfg.OptionsFor(key, w.deviceOverride, now)
		samples, err := w.fetchWindow(ctx, opts, from, to)
		if err != nil {
			return nil, err
		}
		sd := measure.Process(samples, opts)

		w.mu.Lock()
		if w.generation != gen {
			w.mu.Unlock()
			return nil, nil
		}
		w.seriesData[key] = sd
		w.raw[key] = rawWindow{from: from, to: to, samples: samples}
		if subscribe && s.RealTime != chart.UpdateTimer {
			w.subscribeSeries(key, opts.DeviceID)
		}
		w.mu.Unlock()
		log.Printf("widget %s: loaded %s: %d samples, %d points",
			w.instance, key, len(samples), len(sd.ValTimes))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.generation != gen {
		return nil, nil
	}

	// group parents aggregate their members
	for _, key := range parents {
		s := w.cfg.Series[key]
		var members []*measure.SeriesData
		for _, id := range s.IDList {
			if m, ok := w.seriesData[id]; ok {
				members = append(members, m)
			}
		}
		if len(members) == 0 {
			continue
		}
		gopts := members[0].Options
		gopts.Name = s.Name
		gopts.Group = key
		w.seriesData[key] = measure.GroupAggregate(members, gopts, w.cfg.GroupCumulative)
	}

	return w.buildDatasets(keys), nil
}

// buildDatasets renders the series map into chart-ready datasets.
// Callers hold the widget lock.
func (w *Widget) buildDatasets(keys []string) []*chart.Dataset {
	var datasets []*chart.Dataset
	for i, key := range keys {
		s := w.cfg.Series[key]
		sd, ok := w.seriesData[key]
		if !ok {
			continue
		}
		// a group parent only renders when group aggregation is on
		if s.IsParent() && !w.cfg.GroupByGroup {
			continue
		}

		if sd.Options.Categorical() {
			datasets = append(datasets, w.cfg.NewCategoricalDataset(s.Name, sd.Labels, sd.Bucket))
			continue
		}

		if !s.HideMeasurements {
			datasets = append(datasets, w.cfg.NewDataset(s.Name, seriesColor(s, w.cfg, i), sd.ValTimes))
		}
		if s.WantAverage() {
			label := fmt.Sprintf("%s - %d period", s.Name, s.AvgPeriod)
			datasets = append(datasets, w.cfg.NewDataset(label, avgColor(s, w.cfg, i), sd.Aggregate))
		}
		if s.WantBands() {
			datasets = append(datasets,
				w.cfg.NewDataset(fmt.Sprintf("%s - upper Bollinger Band", s.Name), avgColor(s, w.cfg, i), sd.Upper),
				w.cfg.NewDataset(fmt.Sprintf("%s - lower Bollinger Band", s.Name), avgColor(s, w.cfg, i), sd.Lower))
		}
	}
	return datasets
}

func seriesColor(s *chart.Series, cfg *chart.Config, i int) string {
	if s.Color != "" {
		return s.Color
	}
	return cfg.Color(i)
}

func avgColor(s *chart.Series, cfg *chart.Config, i int) string {
	if s.AvgColor != "" {
		return s.AvgColor
	}
	return cfg.AvgColor(i)
}

// loadMultivariate compresses the role-tagged series into one x/y(/r)
// dataset. Pushes cannot be merged point-by-point here (a push on one
// role has no partner yet), so the realtime story is the refresh
// timer instead of subscriptions.
func (w *Widget) loadMultivariate(ctx context.Context, gen int) ([]*chart.Dataset, error) {
	now := w.now()
	roles := w.cfg.Roles()

	sds := make(map[string]*measure.SeriesData, len(roles))
	for role, key := range roles {
		opts, from, to := w.cfg.OptionsFor(key, w.deviceOverride, now)
		samples, err := w.fetchWindow(ctx, opts, from, to)
		if err != nil {
			return nil, err
		}
		sd := measure.Process(samples, opts)

		w.mu.Lock()
		if w.generation != gen {
			w.mu.Unlock()
			return nil, nil
		}
		w.seriesData[key] = sd
		w.raw[key] = rawWindow{from: from, to: to, samples: samples}
		w.mu.Unlock()
		sds[role] = sd
	}

	var r *measure.SeriesData
	if w.cfg.ChartType() == "bubble" {
		r = sds["r"]
	}
	points := measure.Multivariate(sds["x"], sds["y"], r, w.cfg.Tolerance)
	label := w.cfg.Series[roles["y"]].Name

	// radar and polarArea take separate labels and values, the x
	// value becomes the spoke label and y its magnitude
	if ct := w.cfg.ChartType(); ct == "radar" || ct == "polarArea" {
		labels := make([]string, len(points))
		values := make([]float64, len(points))
		for i, p := range points {
			labels[i] = strconv.FormatFloat(p.X.Num, 'f', -1, 64)
			values[i] = p.Y.Num
		}
		return []*chart.Dataset{w.cfg.NewCategoricalDataset(label, labels, values)}, nil
	}

	d := w.cfg.NewDataset(label, w.cfg.Color(0), points)
	return []*chart.Dataset{d}, nil
}

// maybeStartTimer arms the refresh timer when the configuration
// calls for timer-driven updates.
func (w *Widget) maybeStartTimer(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delay := time.Duration(0)
	want := w.cfg.Multivariate
	for _, s := range w.cfg.Series {
		if s.RealTime == chart.UpdateTimer {
			want = true
		}
		if s.TimerDelay > delay {
			delay = s.TimerDelay
		}
	}
	if want {
		w.startTimer(ctx, delay)
	}
}

// fetchWindow satisfies [from, to] for one series, reusing the cache
// when it can. The covering entry is refreshed afterwards so the
// next widget incarnation starts warm.
func (w *Widget) fetchWindow(ctx context.Context, opts measure.Options, from, to time.Time) ([]measure.Sample, error) {
	ckey := cache.Key(w.instance, opts)

	var entry *cache.Entry
	if w.store != nil {
		var err error
		if entry, err = w.store.Get(ckey); err != nil {
			log.Printf("widget %s: cache get %s: %v", w.instance, ckey, err)
			entry = nil
		}
	}

	plan := cache.NewPlan(entry, from, to)
	var fetched []measure.Sample
	if plan.FetchFrom.Before(plan.FetchTo) {
		var err error
		if fetched, err = w.fetcher.Fetch(ctx, opts, plan.FetchFrom, plan.FetchTo); err != nil {
			return nil, err
		}
	}
	samples := plan.Merge(fetched)

	if limit := w.cfg.MeasurementLimit(); limit > 0 && len(samples) > limit {
		samples = samples[len(samples)-limit:] // most recent N
	}

	if w.store != nil {
		e := &cache.Entry{From: from, To: to, Points: samples}
		if err := w.store.Put(ckey, e); err != nil {
			log.Printf("widget %s: cache put %s: %v", w.instance, ckey, err)
		}
	}
	return samples, nil
}
