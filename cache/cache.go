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

// Package cache persists fetched measurement samples across widget
// re-initializations so that re-opening a dashboard does not re-fetch
// a window the previous instance already paid for.
//
// An entry records the query range it covers along with the raw
// samples; the planner compares a new query window against the
// covered range and produces at most one gap fetch. Entries are plain
// data, gob-encoded; nothing derived (buckets, overlays) is stored,
// the pipeline recomputes those from the raw samples.
package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/chartfeed/chartfeed/measure"
)

// Entry is one cached series window. From/To is the query range the
// samples cover, which may be wider than the samples' own time span
// (a sparse series still covers the whole queried range).
type Entry struct {
	From   time.Time
	To     time.Time
	Points []measure.Sample
}

// Key builds the cache key for a series owned by a widget instance.
func Key(instance string, opts measure.Options) string {
	return fmt.Sprintf("%s-%s", instance, opts.Key())
}

func (e *Entry) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeEntry(data []byte) (*Entry, error) {
	e := &Entry{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Store is the persistence interface. Get returns (nil, nil) on a
// miss. Purge destroys everything the store holds.
type Store interface {
	Get(key string) (*Entry, error)
	Put(key string, e *Entry) error
	Purge() error
	Close() error
}

// Plan describes how to satisfy a query window given a cached entry:
// which sub-range still has to be fetched and which cached samples
// remain usable. At most one gap is ever fetched.
type Plan struct {
	FetchFrom time.Time
	FetchTo   time.Time
	Cached    []measure.Sample
	// Append is true when fetched samples follow the cached ones
	// chronologically, false when they precede them.
	Append bool
}

// Full reports whether the plan is a full refetch with nothing
// reusable.
func (p *Plan) Full() bool { return len(p.Cached) == 0 }

// NewPlan reconciles the query window [from, to] with a cached
// entry. With no entry (or an entry disjoint from the window) the
// whole window is fetched. When the covered end is at or after the
// window start the plan extends forward: one fetch from the covered
// end to the new end, even if the window also starts before the
// covered range (never a second gap fetch for that older part). A
// window ending inside the covered range but starting earlier
// extends backward.
func NewPlan(e *Entry, from, to time.Time) *Plan {
	if e == nil {
		return &Plan{FetchFrom: from, FetchTo: to}
	}

	switch {
	case !to.After(e.To) && !to.Before(e.From):
		// window ends inside the covered range
		if !from.Before(e.From) {
			// fully covered, degenerate fetch at the window end
			return &Plan{FetchFrom: to, FetchTo: to, Cached: within(e.Points, from, to), Append: true}
		}
		// backward extension: the cache cannot explain the older
		// part, fetch it and keep the covered tail
		return &Plan{FetchFrom: from, FetchTo: e.From, Cached: within(e.Points, e.From, to)}

	case !from.After(e.To) && !to.Before(e.From):
		// forward extension: keep cached samples within the new
		// window, fetch what lies beyond the covered end
		return &Plan{FetchFrom: e.To, FetchTo: to, Cached: within(e.Points, from, e.To), Append: true}
	}

	// disjoint, refetch everything
	return &Plan{FetchFrom: from, FetchTo: to}
}

// Merge combines the plan's cached samples with the fetched gap into
// one chronological slice.
func (p *Plan) Merge(fetched []measure.Sample) []measure.Sample {
	if p.Append {
		return append(p.Cached, fetched...)
	}
	return append(fetched, p.Cached...)
}

// within returns the samples with from <= t <= to. Samples are
// chronological, so the result is a sub-slice.
func within(points []measure.Sample, from, to time.Time) []measure.Sample {
	lo := 0
	for lo < len(points) && points[lo].Time.Before(from) {
		lo++
	}
	hi := len(points)
	for hi > lo && points[hi-1].Time.After(to) {
		hi--
	}
	return points[lo:hi]
}
