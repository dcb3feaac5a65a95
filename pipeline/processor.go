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
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/widensync/core"
	"github.com/poiesic/widensync/split"
	"github.com/poiesic/widensync/storage"
)

const (
	// DefaultMaxFileSize is the upload size budget. Files above it are
	// split (when splittable) before upload.
	DefaultMaxFileSize int64 = 45 << 20

	// DefaultChunkDelay spaces out sequential chunk uploads so a split
	// asset does not hammer the backend.
	DefaultChunkDelay = 500 * time.Millisecond

	// DefaultDownloadAttempts and DefaultDownloadDelay define the
	// retry policy around asset downloads.
	DefaultDownloadAttempts = 3
	DefaultDownloadDelay    = time.Second
)

// skippedExtensions are never downloaded. Archive containers cannot be
// indexed as single documents.
var skippedExtensions = map[string]bool{
	".zip": true,
}

// Downloader fetches asset content from its signed URL.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Uploader sends one file to the indexing backend and returns its
// assigned file id.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// Splitter partitions an oversized document into chunks at most maxBytes
// each.
type Splitter interface {
	Split(data []byte, maxBytes int64) ([]split.Chunk, error)
}

// Outcome is the result of processing one asset. Failures are carried
// inside the outcome, never as a bare error, so batch aggregation keeps
// per-asset context.
type Outcome struct {
	Asset   core.Asset
	Status  core.Status
	FileIDs []string
	Reason  string
	Err     *core.SyncError
}

// ItemStatus renders the outcome in the connector's reporting shape.
func (o *Outcome) ItemStatus() core.ItemStatus {
	status := core.ItemStatus{
		ID:       o.Asset.ID,
		Filename: o.Asset.Filename,
		Status:   o.Status,
		FileIDs:  o.FileIDs,
		Reason:   o.Reason,
	}
	if o.Err != nil {
		status.Error = o.Err.Error
	}
	return status
}

// Processor runs the per-asset pipeline: classify, download, size-check,
// split when oversized, upload. Safe for concurrent use; the orchestrator
// runs many of these in parallel under the concurrency limiter.
type Processor struct {
	downloader  Downloader
	uploader    Uploader
	splitter    Splitter
	audit       storage.AuditSink
	logger      *slog.Logger
	maxFileSize int64
	chunkDelay  time.Duration
	attempts    int
	retryDelay  time.Duration
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithMaxFileSize overrides the upload size budget.
func WithMaxFileSize(maxBytes int64) ProcessorOption {
	return func(p *Processor) {
		if maxBytes > 0 {
			p.maxFileSize = maxBytes
		}
	}
}

// WithChunkDelay overrides the delay between sequential chunk uploads.
func WithChunkDelay(delay time.Duration) ProcessorOption {
	return func(p *Processor) {
		if delay >= 0 {
			p.chunkDelay = delay
		}
	}
}

// WithDownloadRetry overrides the download retry policy.
func WithDownloadRetry(attempts int, delay time.Duration) ProcessorOption {
	return func(p *Processor) {
		if attempts > 0 {
			p.attempts = attempts
		}
		if delay >= 0 {
			p.retryDelay = delay
		}
	}
}

// WithProcessorLogger sets a custom logger.
// Default is slog.Default().
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor creates an asset processor. The audit sink may be nil;
// outcomes are then only logged.
func NewProcessor(downloader Downloader, uploader Uploader, splitter Splitter, audit storage.AuditSink, opts ...ProcessorOption) *Processor {
	p := &Processor{
		downloader:  downloader,
		uploader:    uploader,
		splitter:    splitter,
		audit:       audit,
		logger:      slog.Default().With("component", "processor"),
		maxFileSize: DefaultMaxFileSize,
		chunkDelay:  DefaultChunkDelay,
		attempts:    DefaultDownloadAttempts,
		retryDelay:  DefaultDownloadDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one asset through the pipeline and returns its outcome.
// Every stage short-circuits on failure; the failure is attached to the
// outcome together with the stage it happened in.
func (p *Processor) Process(ctx context.Context, asset core.Asset) *Outcome {
	if err := core.ValidateAsset(&asset); err != nil {
		return p.failed(ctx, asset, "validate", err)
	}

	if skippedExtensions[asset.Extension()] {
		reason := fmt.Sprintf("unsupported file type %s", asset.Extension())
		return p.skipped(ctx, asset, reason)
	}

	var data []byte
	err := RetryLinear(ctx, func() error {
		var downloadErr error
		data, downloadErr = p.downloader.Download(ctx, asset.DownloadURL)
		return downloadErr
	}, p.attempts, p.retryDelay)
	if err != nil {
		return p.failed(ctx, asset, "download", err)
	}

	if int64(len(data)) <= p.maxFileSize {
		fileID, err := p.uploader.Upload(ctx, asset.Filename, contentTypeFor(asset.Extension()), data)
		if err != nil {
			return p.failed(ctx, asset, "upload", err)
		}
		return p.uploaded(ctx, asset, []string{fileID})
	}

	if asset.Extension() != ".pdf" {
		reason := fmt.Sprintf("file size %d exceeds maximum %d and cannot be split", len(data), p.maxFileSize)
		return p.skipped(ctx, asset, reason)
	}

	fileIDs, err := p.splitAndUpload(ctx, asset, data)
	if err != nil {
		return p.failed(ctx, asset, "split-upload", err)
	}
	return p.uploaded(ctx, asset, fileIDs)
}

// splitAndUpload partitions an oversized document and uploads the chunks
// one at a time, in order, with a fixed delay between them. The first
// chunk failure aborts the rest.
func (p *Processor) splitAndUpload(ctx context.Context, asset core.Asset, data []byte) ([]string, error) {
	chunks, err := p.splitter.Split(data, p.maxFileSize)
	if err != nil {
		return nil, fmt.Errorf("splitting document: %w", err)
	}

	p.logger.Info("splitting oversized asset",
		"id", asset.ID, "bytes", len(data), "chunks", len(chunks))

	base := strings.TrimSuffix(asset.Filename, ".pdf")
	fileIDs := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.Index > 1 && p.chunkDelay > 0 {
			timer := time.NewTimer(p.chunkDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		chunkName := fmt.Sprintf("%s_part%d.pdf", base, chunk.Index)
		fileID, err := p.uploader.Upload(ctx, chunkName, "application/pdf", chunk.Data)
		if err != nil {
			return nil, fmt.Errorf("uploading chunk %d of %d: %w", chunk.Index, len(chunks), err)
		}
		fileIDs = append(fileIDs, fileID)
	}

	return fileIDs, nil
}

func (p *Processor) uploaded(ctx context.Context, asset core.Asset, fileIDs []string) *Outcome {
	p.logger.Info("asset uploaded", "id", asset.ID, "fileIds", len(fileIDs))
	p.record(ctx, &core.AuditRecord{
		AssetID:  asset.ID,
		FileID:   strings.Join(fileIDs, ","),
		Status:   core.StatusUploaded,
		FileSize: asset.FileSize,
	})
	return &Outcome{Asset: asset, Status: core.StatusUploaded, FileIDs: fileIDs}
}

func (p *Processor) skipped(ctx context.Context, asset core.Asset, reason string) *Outcome {
	p.logger.Info("asset skipped", "id", asset.ID, "reason", reason)
	p.record(ctx, &core.AuditRecord{
		AssetID:  asset.ID,
		Reason:   reason,
		Status:   core.StatusSkipped,
		FileSize: asset.FileSize,
	})
	return &Outcome{Asset: asset, Status: core.StatusSkipped, Reason: reason}
}

func (p *Processor) failed(ctx context.Context, asset core.Asset, stage string, err error) *Outcome {
	p.logger.Error("asset failed", "id", asset.ID, "stage", stage, "err", err)
	p.record(ctx, &core.AuditRecord{
		AssetID:  asset.ID,
		Message:  err.Error(),
		Status:   core.StatusFailed,
		FileSize: asset.FileSize,
	})
	return &Outcome{
		Asset:  asset,
		Status: core.StatusFailed,
		Err: &core.SyncError{
			Stage: stage,
			Asset: asset.ID,
			Error: err.Error(),
		},
	}
}

// record writes an audit row. Fire-and-forget: an audit failure never
// affects the asset's outcome.
func (p *Processor) record(ctx context.Context, row *core.AuditRecord) {
	if p.audit == nil {
		return
	}
	if err := p.audit.Record(ctx, row); err != nil {
		p.logger.Warn("failed to record audit row", "id", row.AssetID, "err", err)
	}
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
