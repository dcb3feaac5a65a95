package widen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/poiesic/widensync/core"
	"github.com/poiesic/widensync/storage"
)

// Client talks to the Widen DAM: asset search and signed-URL downloads.
// It is safe for concurrent use.
type Client struct {
	config     *Config
	httpClient *http.Client
	audit      storage.AuditSink
	logger     *slog.Logger
}

// NewClient creates a Widen client with the provided configuration.
// The audit sink may be nil; assets filtered out during a page fetch are
// then only logged.
func NewClient(cfg *Config, audit storage.AuditSink) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: cfg,
		// No overall client timeout: downloads set a per-request deadline
		// from DownloadTimeout, search requests from searchTimeout.
		httpClient: &http.Client{},
		audit:      audit,
		logger:     slog.Default().With("component", "widen-client"),
	}, nil
}

const searchTimeout = 60 * time.Second

// searchResponse is the wire shape of the assets search endpoint.
type searchResponse struct {
	Items      []json.RawMessage `json:"items"`
	TotalCount int               `json:"total_count"`
}

// assetItem carries the fields the pipeline needs from one search item.
// The full payload is preserved separately as raw JSON.
type assetItem struct {
	ID             string `json:"id"`
	ExternalID     string `json:"external_id"`
	Filename       string `json:"filename"`
	CreatedDate    string `json:"created_date"`
	LastUpdateDate string `json:"last_update_date"`
	Links          struct {
		Download string `json:"download"`
	} `json:"_links"`
	FileProperties struct {
		Format string `json:"format"`
		Size   int64  `json:"size"`
	} `json:"file_properties"`
	Metadata struct {
		Fields struct {
			Title       []string `json:"title"`
			Description []string `json:"description"`
		} `json:"fields"`
	} `json:"metadata"`
	Expanded struct {
		Status *bool `json:"status"`
	} `json:"expanded"`
}

// FetchPage fetches one page of assets at the given limit and offset.
// Items without a download link, or whose expanded status marks them as
// not downloadable, are filtered out and recorded in the audit sink; they
// never reach the pipeline. TotalCount reports the upstream result-set
// size, including filtered items.
func (c *Client) FetchPage(ctx context.Context, limit, offset int) (*core.Page, error) {
	reqCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	reqURL, err := url.Parse(c.config.SearchURL)
	if err != nil {
		return nil, fmt.Errorf("parsing search url: %w", err)
	}
	q := reqURL.Query()
	q.Set("query", c.config.Query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.BearerToken)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("fetching assets", "limit", limit, "offset", offset)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrSearchFailed, resp.StatusCode, body)
	}

	var search searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrSearchFailed, err)
	}

	page := &core.Page{TotalCount: search.TotalCount}
	for _, raw := range search.Items {
		var item assetItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("%w: decoding item: %w", ErrSearchFailed, err)
		}

		id := item.ID
		if id == "" {
			id = item.ExternalID
		}

		denied := item.Expanded.Status != nil && !*item.Expanded.Status
		if item.Links.Download == "" || denied {
			c.logger.Info("skipping asset without download access", "id", id)
			c.recordSkip(ctx, id, item.FileProperties.Size)
			continue
		}

		page.Assets = append(page.Assets, mapAsset(&item, raw))
	}

	c.logger.Debug("fetched assets",
		"returned", len(search.Items),
		"downloadable", len(page.Assets),
		"totalCount", search.TotalCount)

	return page, nil
}

func mapAsset(item *assetItem, raw json.RawMessage) core.Asset {
	id := item.ID
	if id == "" {
		id = item.ExternalID
	}
	externalID := item.ExternalID
	if externalID == "" {
		externalID = item.ID
	}
	filename := item.Filename
	if filename == "" {
		filename = id + ".pdf"
	}
	fileType := item.FileProperties.Format
	if fileType == "" {
		fileType = "pdf"
	}
	title := filename
	if len(item.Metadata.Fields.Title) > 0 && item.Metadata.Fields.Title[0] != "" {
		title = item.Metadata.Fields.Title[0]
	}
	var description string
	if len(item.Metadata.Fields.Description) > 0 {
		description = item.Metadata.Fields.Description[0]
	}

	return core.Asset{
		ID:          id,
		ExternalID:  externalID,
		Filename:    filename,
		DownloadURL: item.Links.Download,
		FileType:    fileType,
		FileSize:    item.FileProperties.Size,
		Title:       title,
		Description: description,
		CreatedDate: item.CreatedDate,
		UpdatedDate: item.LastUpdateDate,
		Raw:         raw,
	}
}

func (c *Client) recordSkip(ctx context.Context, id string, size int64) {
	if c.audit == nil {
		return
	}
	err := c.audit.Record(ctx, &core.AuditRecord{
		AssetID:  id,
		Reason:   "No download link or no permission (403)",
		Status:   core.StatusSkipped,
		FileSize: size,
	})
	if err != nil {
		c.logger.Warn("failed to record audit row", "id", id, "err", err)
	}
}

// Download fetches the asset content from its time-limited signed URL.
// One call, no retry; the pipeline wraps Download in its retry policy.
func (c *Client) Download(ctx context.Context, downloadURL string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrDownloadFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrDownloadFailed, err)
	}

	c.logger.Debug("downloaded asset", "bytes", len(data))
	return data, nil
}
