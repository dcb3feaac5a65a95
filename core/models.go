package core

import (
	"encoding/json"
	"path"
	"strings"
	"time"
)

// Asset is a document descriptor returned by the Widen DAM search API.
// It is immutable once fetched; the raw upstream payload is preserved so
// pull-mode consumers can forward it untouched.
type Asset struct {
	ID          string          `json:"id"`
	ExternalID  string          `json:"externalId"`
	Filename    string          `json:"filename"`
	DownloadURL string          `json:"downloadUrl"`
	FileType    string          `json:"fileType"`
	FileSize    int64           `json:"fileSize"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	CreatedDate string          `json:"createdDate,omitempty"`
	UpdatedDate string          `json:"updatedDate,omitempty"`
	Raw         json.RawMessage `json:"rawItem,omitempty"`
}

// Extension returns the asset's filename extension, lowercased,
// including the leading dot. Empty if the filename has none.
func (a *Asset) Extension() string {
	return strings.ToLower(path.Ext(a.Filename))
}

// Page is one page of results from the Widen search API.
type Page struct {
	Assets     []Asset
	TotalCount int
}

// CursorState is the resumable pagination record for pull-mode fetching.
// It is persisted as a single named record; the last writer wins.
type CursorState struct {
	Offset        int     `json:"offset"`
	BatchSize     int     `json:"batchSize"`
	CurrentIndex  int     `json:"currentIndex"`
	Items         []Asset `json:"items"`
	BatchComplete bool    `json:"batchComplete"`
	TotalCount    int     `json:"totalCount"`
}

// DefaultBatchSize is the page size used when no prior cursor state exists.
const DefaultBatchSize = 30

// DefaultCursorState returns the state used on first read, before any
// pull has been made.
func DefaultCursorState() *CursorState {
	return &CursorState{
		BatchSize:     DefaultBatchSize,
		BatchComplete: true,
	}
}

// Status is the per-asset processing outcome.
type Status string

const (
	StatusPending  Status = "pending"
	StatusUploaded Status = "uploaded"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// ItemStatus records the outcome of processing a single asset.
type ItemStatus struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	Status   Status   `json:"status"`
	FileIDs  []string `json:"fileIds"`
	Error    string   `json:"error,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

// SyncError is a stage-tagged error recorded in a SyncResult.
type SyncError struct {
	Stage string `json:"stage,omitempty"`
	Asset string `json:"asset,omitempty"`
	Error string `json:"error"`
}

// SyncResult aggregates the outcome of one orchestration run.
// The wire field names match the SearchAssist connector contract.
type SyncResult struct {
	Success              bool            `json:"success"`
	Timestamp            time.Time       `json:"timestamp"`
	Message              string          `json:"message,omitempty"`
	AssetsFetched        int             `json:"widenAssetsFetched"`
	SuccessfullyUploaded int             `json:"successfullyUploaded"`
	FailedUploads        int             `json:"failedUploads"`
	Skipped              int             `json:"skipped"`
	FileIDs              []string        `json:"fileIds"`
	IngestResponse       json.RawMessage `json:"ingestResponse,omitempty"`
	ItemStatus           []ItemStatus    `json:"itemStatus"`
	Errors               []SyncError     `json:"errors"`
	DurationMs           int64           `json:"durationMs"`
}

// AuditRecord is one row in the audit sink. Recording is fire-and-forget;
// a failed write must never interrupt the pipeline.
type AuditRecord struct {
	AssetID   string    `json:"id"`
	FileID    string    `json:"fileId"`
	Reason    string    `json:"reason"`
	Message   string    `json:"message"`
	Status    Status    `json:"status"`
	FileSize  int64     `json:"fileSize"`
	CreatedAt time.Time `json:"createdAt"`
}
