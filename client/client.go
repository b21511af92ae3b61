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

// Package client retrieves measurement pages from the device
// management backend and normalizes them into chronological samples.
//
// The backend endpoint is paginated and may return partial failures;
// the retrieval policy here is intentionally forgiving. A page that
// comes back with a non-2xx status ends the walk but keeps whatever
// earlier pages produced, since a chart with a shorter window is more
// useful than no chart. Rows missing the requested fragment/series
// path are skipped entirely, they contribute neither a point nor a
// zero to the running statistics.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/chartfeed/chartfeed/measure"
)

// Filter describes one page request against the measurement endpoint.
type Filter struct {
	Source              string // device id
	ValueFragmentType   string
	ValueFragmentSeries string
	DateFrom            time.Time
	DateTo              time.Time
	PageSize            int
	CurrentPage         int
	Revert              bool // newest first
	WithTotalPages      bool
}

// Page is one page of the measurement collection. Next is the
// backend-supplied cursor for the following page, empty when the
// collection is exhausted.
type Page struct {
	StatusCode   int
	Measurements []measure.Measurement
	Next         string
}

// Client lists measurement pages. Implementations must treat the
// filter as read-only.
type Client interface {
	List(ctx context.Context, f Filter) (*Page, error)
}

// HTTPClient is a Client against the backend REST measurement
// collection.
type HTTPClient struct {
	base   string
	tenant string
	user   string
	pass   string
	hc     *http.Client
}

// NewHTTPClient returns a client for the measurement collection at
// base (e.g. "https://tenant.example.com"). user/pass go out as basic
// auth on every request; tenant may be empty.
func NewHTTPClient(base, tenant, user, pass string) *HTTPClient {
	return &HTTPClient{
		base:   base,
		tenant: tenant,
		user:   user,
		pass:   pass,
		hc:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) List(ctx context.Context, f Filter) (*Page, error) {
	q := url.Values{}
	q.Set("source", f.Source)
	q.Set("valueFragmentType", f.ValueFragmentType)
	q.Set("valueFragmentSeries", f.ValueFragmentSeries)
	q.Set("dateFrom", f.DateFrom.Format(time.RFC3339))
	q.Set("dateTo", f.DateTo.Format(time.RFC3339))
	q.Set("pageSize", strconv.Itoa(f.PageSize))
	if f.CurrentPage > 0 {
		q.Set("currentPage", strconv.Itoa(f.CurrentPage))
	}
	if f.Revert {
		q.Set("revert", "true")
	}
	if f.WithTotalPages {
		q.Set("withTotalPages", "true")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.base+"/measurement/measurements?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	user := c.user
	if c.tenant != "" {
		user = c.tenant + "/" + c.user
	}
	req.SetBasicAuth(user, c.pass)
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	page := &Page{StatusCode: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return page, nil // soft failure, the caller decides
	}

	var body struct {
		Measurements []measure.Measurement `json:"measurements"`
		Next         string                `json:"next"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("client: decoding measurement page: %v", err)
	}
	page.Measurements = body.Measurements
	page.Next = body.Next
	return page, nil
}
