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
	"fmt"
	"log/slog"

	"github.com/poiesic/widensync/core"
	"github.com/poiesic/widensync/storage"
)

// Document is the formatted descriptor a pull-mode consumer receives for
// one asset. The field names match the crawler contract.
type Document struct {
	ID          string          `json:"id"`
	SysID       string          `json:"sys_id"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	URL         string          `json:"url"`
	Type        string          `json:"type"`
	CreatedOn   string          `json:"doc_created_on,omitempty"`
	UpdatedOn   string          `json:"doc_updated_on,omitempty"`
	RawData     json.RawMessage `json:"rawData,omitempty"`
	SysFileType string          `json:"sys_file_type"`
	ExternalID  string          `json:"_widen_external_id"`
	Filename    string          `json:"_widen_filename"`
	FileSize    int64           `json:"_widen_file_size"`
}

// PullResponse is the per-call answer of the pull-mode entry point.
type PullResponse struct {
	Data               *Document `json:"data,omitempty"`
	IsContentAvailable bool      `json:"isContentAvailable"`
}

// Puller is the pull-mode entry point: each call delivers exactly one
// asset and advances the persisted pagination cursor. The cursor record
// is a single shared resource with no lock; concurrent pulls racing on
// the read-modify-write cycle are an operating assumption violation, not
// a supported mode.
type Puller struct {
	fetcher PageFetcher
	cursors storage.CursorStore
	orch    *Orchestrator
	logger  *slog.Logger
}

// NewPuller creates a pull-mode entry point. The orchestrator may be nil
// when delivered assets should not be uploaded as a side effect.
func NewPuller(fetcher PageFetcher, cursors storage.CursorStore, orch *Orchestrator) *Puller {
	return &Puller{
		fetcher: fetcher,
		cursors: cursors,
		orch:    orch,
		logger:  slog.Default().With("component", "puller"),
	}
}

// Pull delivers the next asset. When the buffered page is exhausted it
// refills from the upstream at the current offset first. The returned
// IsContentAvailable tells the caller whether another Pull would deliver
// more; after a full pass over the upstream set the offset wraps to 0 so
// the next pull restarts from the beginning.
func (p *Puller) Pull(ctx context.Context) (*PullResponse, error) {
	state, err := p.cursors.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading cursor: %w", err)
	}

	if state.BatchComplete || state.CurrentIndex >= len(state.Items) {
		if err := p.refill(ctx, state); err != nil {
			return nil, err
		}
	}

	if len(state.Items) == 0 || state.CurrentIndex >= len(state.Items) {
		// Nothing at this offset. Report no content without persisting
		// so the next pull retries the same position.
		p.logger.Info("no content at cursor", "offset", state.Offset)
		return &PullResponse{IsContentAvailable: false}, nil
	}

	asset := state.Items[state.CurrentIndex]
	state.CurrentIndex++

	// Availability is judged against the window just consumed, so the
	// final short page of the upstream set is still reachable before
	// the cursor wraps.
	offsetBefore := state.Offset

	if state.CurrentIndex >= len(state.Items) {
		// Batch exhausted: the only point offset advances.
		state.Items = nil
		state.CurrentIndex = 0
		state.BatchComplete = true
		state.Offset += state.BatchSize
	}

	available := offsetBefore+state.BatchSize <= state.TotalCount || !state.BatchComplete
	if !available {
		// Full pass complete: wrap around for the next cycle.
		p.logger.Info("completed full pass, wrapping cursor",
			"offset", state.Offset, "totalCount", state.TotalCount)
		state.Offset = 0
		state.Items = nil
		state.CurrentIndex = 0
		state.BatchComplete = true
	}

	if err := p.cursors.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("saving cursor: %w", err)
	}

	if p.orch != nil {
		if _, err := p.orch.Sync(ctx, []core.Asset{asset}, false); err != nil {
			p.logger.Error("failed to process pulled asset", "id", asset.ID, "err", err)
		}
	}

	return &PullResponse{
		Data:               formatDocument(&asset),
		IsContentAvailable: available,
	}, nil
}

// refill replaces the buffered page with a fresh fetch at the current
// offset.
func (p *Puller) refill(ctx context.Context, state *core.CursorState) error {
	p.logger.Debug("refilling cursor page",
		"offset", state.Offset, "batchSize", state.BatchSize)

	page, err := p.fetcher.FetchPage(ctx, state.BatchSize, state.Offset)
	if err != nil {
		return fmt.Errorf("fetching page: %w", err)
	}

	state.Items = page.Assets
	state.CurrentIndex = 0
	state.TotalCount = page.TotalCount
	state.BatchComplete = len(page.Assets) == 0
	return nil
}

func formatDocument(asset *core.Asset) *Document {
	return &Document{
		ID:          asset.ID,
		SysID:       asset.ID,
		Title:       asset.Title,
		Content:     "",
		URL:         asset.DownloadURL,
		Type:        asset.FileType,
		CreatedOn:   asset.CreatedDate,
		UpdatedOn:   asset.UpdatedDate,
		RawData:     asset.Raw,
		SysFileType: asset.FileType,
		ExternalID:  asset.ExternalID,
		Filename:    asset.Filename,
		FileSize:    asset.FileSize,
	}
}
