// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/widensync/core"
	"github.com/poiesic/widensync/searchai"
)

// DefaultConcurrency bounds parallel asset processing when no override
// is given.
const DefaultConcurrency = 3

// PageFetcher retrieves one page of asset descriptors from the DAM.
type PageFetcher interface {
	FetchPage(ctx context.Context, limit, offset int) (*core.Page, error)
}

// Ingester triggers ingestion of uploaded files into the content source.
type Ingester interface {
	Ingest(ctx context.Context, fileIDs []string) (json.RawMessage, error)
}

// Orchestrator drives a batch of assets through the processor under the
// concurrency limiter, aggregates per-asset outcomes, and triggers one
// ingestion call for everything that uploaded.
type Orchestrator struct {
	fetcher     PageFetcher
	processor   *Processor
	ingester    Ingester
	logger      *slog.Logger
	concurrency int
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithConcurrency bounds how many assets are processed in parallel.
func WithConcurrency(concurrency int) OrchestratorOption {
	return func(o *Orchestrator) {
		if concurrency > 0 {
			o.concurrency = concurrency
		}
	}
}

// WithOrchestratorLogger sets a custom logger.
// Default is slog.Default().
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates a batch orchestrator. The ingester may be nil
// when the caller never wants ingestion triggered.
func NewOrchestrator(fetcher PageFetcher, processor *Processor, ingester Ingester, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		fetcher:     fetcher,
		processor:   processor,
		ingester:    ingester,
		logger:      slog.Default().With("component", "orchestrator"),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run fetches one page of assets at the given limit and offset and
// synchronizes it.
func (o *Orchestrator) Run(ctx context.Context, limit, offset int, skipIngest bool) (*core.SyncResult, error) {
	page, err := o.fetcher.FetchPage(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return o.Sync(ctx, page.Assets, skipIngest)
}

// Sync processes the given assets in parallel and aggregates one result.
// Per-asset failures never fail the run; they are counted and recorded
// in ItemStatus and Errors. When skipIngest is set, files are uploaded
// but the ingestion trigger is withheld.
func (o *Orchestrator) Sync(ctx context.Context, assets []core.Asset, skipIngest bool) (*core.SyncResult, error) {
	started := time.Now()

	o.logger.Info("starting sync",
		"assets", len(assets), "concurrency", o.concurrency, "skipIngest", skipIngest)

	outcomes, err := RunLimited(ctx, o.concurrency, assets, o.processor.Process)
	if err != nil {
		return nil, err
	}

	result := &core.SyncResult{
		Success:       true,
		Timestamp:     started,
		AssetsFetched: len(assets),
		FileIDs:       []string{},
		ItemStatus:    make([]core.ItemStatus, 0, len(outcomes)),
		Errors:        []core.SyncError{},
	}

	for _, outcome := range outcomes {
		result.ItemStatus = append(result.ItemStatus, outcome.ItemStatus())

		switch outcome.Status {
		case core.StatusUploaded:
			result.SuccessfullyUploaded++
			result.FileIDs = append(result.FileIDs, outcome.FileIDs...)
		case core.StatusSkipped:
			result.Skipped++
		case core.StatusFailed:
			result.FailedUploads++
			if outcome.Err != nil {
				result.Errors = append(result.Errors, *outcome.Err)
			}
		}
	}

	if len(result.FileIDs) > 0 && !skipIngest && o.ingester != nil {
		o.ingest(ctx, result)
	}

	result.DurationMs = time.Since(started).Milliseconds()

	o.logger.Info("sync finished",
		"uploaded", result.SuccessfullyUploaded,
		"failed", result.FailedUploads,
		"skipped", result.Skipped,
		"fileIds", len(result.FileIDs),
		"durationMs", result.DurationMs)

	return result, nil
}

// ingest issues the single batch ingestion call. A duplicate-content
// rejection is downgraded to a partial success; any other failure is
// recorded as a top-level error without discarding the upload results.
func (o *Orchestrator) ingest(ctx context.Context, result *core.SyncResult) {
	resp, err := o.ingester.Ingest(ctx, result.FileIDs)
	result.IngestResponse = resp

	switch {
	case err == nil:
	case errors.Is(err, searchai.ErrAlreadyIngested):
		o.logger.Warn("content already ingested", "fileIds", len(result.FileIDs))
		result.Message = "partial success: documents were already ingested"
	default:
		o.logger.Error("ingestion failed", "err", err)
		result.Errors = append(result.Errors, core.SyncError{
			Stage: "ingest",
			Error: err.Error(),
		})
	}
}
