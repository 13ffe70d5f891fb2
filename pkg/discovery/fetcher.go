/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/carverauto/faros/pkg/logger"
	"github.com/carverauto/faros/pkg/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const maxStatusBytes = 8 << 20

// FetchResult records the outcome of one metadata request.
type FetchResult struct {
	Serial string
	Err    error
}

// Fetcher retrieves per-device status documents.
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	concurrency int
	logger      logger.Logger
	tracer      trace.Tracer
}

// NewFetcher returns a fetcher. A nil client uses a default http.Client.
func NewFetcher(client *http.Client, timeout time.Duration, concurrency int, log logger.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Fetcher{
		client:      client,
		timeout:     timeout,
		concurrency: concurrency,
		logger:      log,
		tracer:      logger.GetTracer("faros/discovery"),
	}
}

// FetchAll fetches every device concurrently. Failures are isolated: each is
// logged and reported in the result slice, and never cancels other requests.
// The only error returned is the parent context's.
func (f *Fetcher) FetchAll(ctx context.Context, devices []models.Device) ([]FetchResult, error) {
	var (
		mu      sync.Mutex
		results = make([]FetchResult, 0, len(devices))
	)

	g := new(errgroup.Group)
	if f.concurrency > 0 {
		g.SetLimit(f.concurrency)
	}

	for _, d := range devices {
		if d.MetadataURL() == "" {
			continue
		}

		g.Go(func() error {
			err := f.Fetch(ctx, d)
			if err != nil {
				f.logger.Warn().
					Err(err).
					Str("serial", d.Serial()).
					Str("address", d.Address()).
					Msg("Metadata fetch failed, keeping device as partially known")
			}

			mu.Lock()
			results = append(results, FetchResult{Serial: d.Serial(), Err: err})
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	return results, ctx.Err()
}

// Fetch issues one GET for the device's status document and applies it.
func (f *Fetcher) Fetch(ctx context.Context, d models.Device) error {
	ctx, span := f.tracer.Start(ctx, "discovery.fetch", trace.WithAttributes(
		attribute.String("serial", d.Serial()),
		attribute.String("variant", d.Variant().String()),
	))
	defer span.End()

	if f.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	status, err := f.get(ctx, d.MetadataURL())
	if err == nil {
		err = d.ApplyStatus(status)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return fmt.Errorf("fetch %s: %w", d.Serial(), err)
	}

	f.logger.Debug().Str("serial", d.Serial()).Str("url", d.MetadataURL()).Msg("Status fetched")

	return nil
}

func (f *Fetcher) get(ctx context.Context, url string) (models.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrMetadataStatus, resp.Status)
	}

	var status models.Status
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxStatusBytes)).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}

	return status, nil
}
