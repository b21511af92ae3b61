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

package client

import (
	"context"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/chartfeed/chartfeed/measure"
)

const (
	defaultPageSize  = 1440
	defaultMaxPoints = 5000
	defaultPerSec    = 5
)

// Fetcher walks the paginated measurement collection for one series
// and returns samples oldest first. Page requests go through a rate
// limiter so that a burst of widget re-initializations cannot hammer
// the backend.
type Fetcher struct {
	c         Client
	limiter   *rate.Limiter
	pageSize  int
	maxPoints int
}

func NewFetcher(c Client) *Fetcher {
	return &Fetcher{
		c:         c,
		limiter:   rate.NewLimiter(rate.Limit(defaultPerSec), defaultPerSec),
		pageSize:  defaultPageSize,
		maxPoints: defaultMaxPoints,
	}
}

// SetMaxPoints caps how many samples one Fetch may accumulate. A page
// that would push past the cap is truncated mid-page.
func (f *Fetcher) SetMaxPoints(n int) {
	if n > 0 {
		f.maxPoints = n
	}
}

func (f *Fetcher) SetPageSize(n int) {
	if n > 0 {
		f.pageSize = n
	}
}

// SetRate adjusts the page request rate per second.
func (f *Fetcher) SetRate(perSec int) {
	if perSec > 0 {
		f.limiter.SetLimit(rate.Limit(perSec))
		f.limiter.SetBurst(perSec)
	}
}

// Fetch retrieves every measurement for the series described by opts
// within [from, to]. Pages arrive newest first (revert); the result
// is reversed into chronological order before returning. A non-2xx
// page logs and ends the walk without discarding the pages already
// in hand. Rows without the requested fragment/series path are
// skipped.
func (f *Fetcher) Fetch(ctx context.Context, opts measure.Options, from, to time.Time) ([]measure.Sample, error) {
	filter := Filter{
		Source:              opts.DeviceID,
		ValueFragmentType:   opts.Fragment,
		ValueFragmentSeries: opts.Series,
		DateFrom:            from,
		DateTo:              to,
		PageSize:            f.pageSize,
		Revert:              true,
	}

	var newestFirst []measure.Sample
	for page := 1; ; page++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		filter.CurrentPage = page
		p, err := f.c.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		if p.StatusCode < 200 || p.StatusCode >= 300 {
			log.Printf("Fetch(%s): page %d returned status %d, keeping %d samples",
				opts.Key(), page, p.StatusCode, len(newestFirst))
			break
		}

		full := true
		for _, m := range p.Measurements {
			v, ok := m.Extract(opts.Fragment, opts.Series)
			if !ok {
				continue
			}
			newestFirst = append(newestFirst, measure.Sample{Time: m.Time, Value: v})
			if len(newestFirst) >= f.maxPoints {
				full = false
				break
			}
		}
		if !full || p.Next == "" {
			break
		}
	}

	// reverse into chronological order
	for i, j := 0, len(newestFirst)-1; i < j; i, j = i+1, j-1 {
		newestFirst[i], newestFirst[j] = newestFirst[j], newestFirst[i]
	}
	return newestFirst, nil
}
