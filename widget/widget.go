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

// Package widget ties the pipeline together: it resolves the
// configured series into query options, consults the result cache,
// fetches what is missing, runs the bucketing and composition steps
// and exposes chart-ready datasets. It also owns the push channel:
// realtime measurements are merged into the same series state the
// initial load produced.
//
// All series state lives in one map owned by the widget and is only
// ever mutated under the widget lock by the load and merge paths.
// A load supersedes any load still in flight: each load bumps a
// generation counter and a superseded load abandons its results
// instead of clobbering newer state.
package widget

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chartfeed/chartfeed/cache"
	"github.com/chartfeed/chartfeed/chart"
	"github.com/chartfeed/chartfeed/client"
	"github.com/chartfeed/chartfeed/measure"
	"github.com/chartfeed/chartfeed/realtime"
)

// timerKey is the pseudo subscription key for timer-driven refresh.
const timerKey = "timer"

const defaultTimerDelay = 30 * time.Second

// Widget is one chart widget instance.
type Widget struct {
	cfg      *chart.Config
	fetcher  *client.Fetcher
	store    cache.Store
	sub      realtime.Subscriber
	instance string

	// dashboard-supplied target device, overrides series keys
	deviceOverride string

	now func() time.Time // injectable for tests

	mu         sync.Mutex
	generation int
	enabled    bool
	message    string
	seriesData map[string]*measure.SeriesData
	raw        map[string]rawWindow // cache backing per series
	subs       map[string]realtime.Handle
	timer      *time.Timer
	datasets   []*chart.Dataset
	redraw     func()
}

type rawWindow struct {
	from, to time.Time
	samples  []measure.Sample
}

// New creates a widget. store and sub may be nil (no caching, no
// push updates).
func New(cfg *chart.Config, fetcher *client.Fetcher, store cache.Store, sub realtime.Subscriber) *Widget {
	return &Widget{
		cfg:        cfg,
		fetcher:    fetcher,
		store:      store,
		sub:        sub,
		instance:   uuid.NewString(),
		now:        time.Now,
		message:    "Loading Data...",
		seriesData: make(map[string]*measure.SeriesData),
		raw:        make(map[string]rawWindow),
		subs:       make(map[string]realtime.Handle),
	}
}

// SetDeviceTarget sets the dashboard-level device override.
func (w *Widget) SetDeviceTarget(deviceID string) { w.deviceOverride = deviceID }

// SetInstanceID replaces the generated instance id. Dashboards that
// persist widget state supply the stored id here so cache entries
// written by a previous incarnation stay addressable; an empty id is
// ignored.
func (w *Widget) SetInstanceID(id string) {
	if id != "" {
		w.instance = id
	}
}

// OnRedraw attaches the redraw callback. Without one the widget
// updates silently.
func (w *Widget) OnRedraw(f func()) {
	w.mu.Lock()
	w.redraw = f
	w.mu.Unlock()
}

// InstanceID is the unique id namespacing this widget's cache keys.
func (w *Widget) InstanceID() string { return w.instance }

// Enabled reports whether the widget can render, and if not, why.
func (w *Widget) Enabled() (bool, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enabled, w.message
}

// Datasets returns the chart-ready datasets built by the last load
// or refresh.
func (w *Widget) Datasets() []*chart.Dataset {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*chart.Dataset, len(w.datasets))
	copy(out, w.datasets)
	return out
}

// Axes returns the axis descriptions for the current configuration.
func (w *Widget) Axes() (x, y chart.Axis) { return w.cfg.Axes() }

// SeriesData returns the state for one series key, for tests and
// diagnostics.
func (w *Widget) SeriesData(key string) *measure.SeriesData {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seriesData[key]
}

func (w *Widget) signalRedraw() {
	w.mu.Lock()
	f := w.redraw
	w.mu.Unlock()
	if f != nil {
		f()
	}
}

// Close unsubscribes every key, stops the refresh timer and flushes
// the cache.
func (w *Widget) Close() error {
	w.mu.Lock()
	subs := w.subs
	w.subs = make(map[string]realtime.Handle)
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.generation++ // abandon any in-flight load
	w.mu.Unlock()

	if w.sub != nil {
		for key, h := range subs {
			if key == timerKey {
				continue
			}
			if err := w.sub.Unsubscribe(h); err != nil {
				log.Printf("widget %s: unsubscribe %s: %v", w.instance, key, err)
			}
		}
	}
	w.flushCache()
	return nil
}

// flushCache persists every series' raw window.
func (w *Widget) flushCache() {
	if w.store == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, rw := range w.raw {
		sd, ok := w.seriesData[key]
		if !ok {
			continue
		}
		e := &cache.Entry{From: rw.from, To: rw.to, Points: rw.samples}
		if err := w.store.Put(cache.Key(w.instance, sd.Options), e); err != nil {
			log.Printf("widget %s: cache put %s: %v", w.instance, key, err)
		}
	}
}

// HandleRealtime merges one push measurement into the series keyed
// by key. Measurements missing the series' fragment path are
// ignored. Group parents containing the series fold the same datum.
func (w *Widget) HandleRealtime(key string, m *measure.Measurement) {
	w.mu.Lock()

	sd, ok := w.seriesData[key]
	if !ok {
		w.mu.Unlock()
		return
	}
	opts := sd.Options
	v, ok := m.Extract(opts.Fragment, opts.Series)
	if !ok {
		w.mu.Unlock()
		return
	}

	from, _ := w.cfg.Range(w.now())
	sd.Merge(m.Time, v, from)

	// fold into group parents that include this series
	ts := m.Time
	if opts.GroupBy {
		ts = measure.Truncate(ts, opts.BucketPeriod)
	}
	for parentKey, s := range w.cfg.Series {
		if !s.IsParent() {
			continue
		}
		for _, member := range s.IDList {
			if member != key {
				continue
			}
			if parent, ok := w.seriesData[parentKey]; ok {
				datum := measure.NewChartPoint(ts, v, parent.Options.Swapped())
				parent.MergeGroup(datum, w.cfg.GroupCumulative)
				parent.EvictBefore(from)
			}
			break
		}
	}
	w.mu.Unlock()

	w.signalRedraw()
}

// subscribeSeries takes the push subscription for a series key once.
func (w *Widget) subscribeSeries(key, deviceID string) {
	if w.sub == nil {
		return
	}
	if _, ok := w.subs[key]; ok {
		return
	}
	k := key
	h, err := w.sub.Subscribe(realtime.Topic(deviceID), func(m *measure.Measurement) {
		w.HandleRealtime(k, m)
	})
	if err != nil {
		log.Printf("widget %s: subscribe %s: %v", w.instance, key, err)
		return
	}
	w.subs[key] = h
}

// startTimer arms the periodic refresh used by multivariate plots,
// which cannot merge single pushes and re-run the pipeline instead.
func (w *Widget) startTimer(ctx context.Context, delay time.Duration) {
	if _, ok := w.subs[timerKey]; ok {
		return
	}
	if delay <= 0 {
		delay = defaultTimerDelay
	}
	w.subs[timerKey] = realtime.Handle{Topic: timerKey}

	var tick func()
	tick = func() {
		if err := w.Refresh(ctx); err != nil {
			log.Printf("widget %s: timer refresh: %v", w.instance, err)
		}
		w.mu.Lock()
		if _, ok := w.subs[timerKey]; ok {
			w.timer = time.AfterFunc(delay, tick)
		}
		w.mu.Unlock()
	}
	w.timer = time.AfterFunc(delay, tick)
}
