package searchai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
)

// uploadEndpoints are tried in order until one accepts the file.
// Deployments differ in which upload route they expose.
var uploadEndpoints = []string{
	"/api/public/uploadfile",
}

// Client uploads files to SearchAI and triggers their ingestion into a
// content source. Safe for concurrent use.
type Client struct {
	config     *Config
	tokens     *TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a SearchAI client with the provided configuration.
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config:     cfg,
		tokens:     NewTokenSource(cfg.ClientID, cfg.ClientSecret),
		httpClient: &http.Client{},
		logger:     slog.Default().With("component", "searchai-client"),
	}, nil
}

// Tokens exposes the client's token source, so the HTTP surface can
// validate incoming tokens against the same credentials.
func (c *Client) Tokens() *TokenSource {
	return c.tokens
}

// Upload sends one file to SearchAI and returns the file id assigned by
// the platform. Endpoints are tried in order; the error of the last
// attempt is returned when none succeeds.
func (c *Client) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	var lastErr error
	for _, endpoint := range uploadEndpoints {
		fileID, err := c.uploadTo(ctx, endpoint, filename, contentType, data)
		if err == nil {
			return fileID, nil
		}
		lastErr = err
		c.logger.Warn("upload attempt failed",
			"endpoint", endpoint, "fileName", filename, "err", err)
	}
	return "", fmt.Errorf("%w: %w", ErrUploadFailed, lastErr)
}

func (c *Client) uploadTo(ctx context.Context, endpoint, filename, contentType string, data []byte) (string, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("writing form file: %w", err)
	}

	fields := map[string]string{
		"fileContext":   "findly",
		"fileExtension": strings.TrimPrefix(extension(filename), "."),
		"fileName":      filename,
		"contentType":   contentType,
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return "", fmt.Errorf("writing form field %s: %w", name, err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("closing form: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.UploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		c.config.Host+endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("auth", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 512))
	}

	fileID, ok := extractFileID(respBody)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoFileID, truncate(respBody, 512))
	}
	return fileID, nil
}

// extractFileID digs a file id out of an upload response. Deployments
// answer with different shapes, so every known location is probed.
func extractFileID(body []byte) (string, bool) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}

	for _, key := range []string{"fileId", "id", "_id"} {
		if id := stringValue(payload[key]); id != "" {
			return id, true
		}
	}
	for _, container := range []string{"data", "result", "response", "file"} {
		nested, ok := payload[container].(map[string]any)
		if !ok {
			continue
		}
		for _, key := range []string{"fileId", "id", "_id"} {
			if id := stringValue(nested[key]); id != "" {
				return id, true
			}
		}
	}
	return "", false
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// ingestRequest is the wire shape of the ingestion trigger.
type ingestRequest struct {
	SourceName string           `json:"sourceName"`
	SourceType string           `json:"sourceType"`
	Documents  []ingestDocument `json:"documents"`
}

type ingestDocument struct {
	FileID string `json:"fileId"`
}

// Ingest asks SearchAI to pull the uploaded files into the configured
// content source. Returns ErrAlreadyIngested when the platform reports
// the documents as already present, together with the raw response so
// callers can surface it.
func (c *Client) Ingest(ctx context.Context, fileIDs []string) (json.RawMessage, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}

	payload := ingestRequest{
		SourceName: c.config.SourceName,
		SourceType: "file",
	}
	for _, id := range fileIDs {
		payload.Documents = append(payload.Documents, ingestDocument{FileID: id})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding ingest request: %w", err)
	}

	ingestURL := fmt.Sprintf("%s/api/public/bot/%s/ingest-data", c.config.Host, c.config.BotID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ingestURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("auth", token)

	c.logger.Info("triggering ingestion",
		"sourceName", c.config.SourceName, "documents", len(fileIDs))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIngestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrIngestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if isAlreadyIngested(resp.StatusCode, respBody) {
			return json.RawMessage(respBody), ErrAlreadyIngested
		}
		return nil, fmt.Errorf("%w: status %d: %s",
			ErrIngestFailed, resp.StatusCode, truncate(respBody, 512))
	}

	return json.RawMessage(respBody), nil
}

// isAlreadyIngested detects the duplicate-content rejection. The
// platform signals it either with a 419 status or an error message
// mentioning the documents were already uploaded.
func isAlreadyIngested(status int, body []byte) bool {
	if status == 419 {
		return true
	}
	lower := strings.ToLower(string(body))
	return strings.Contains(lower, "already uploaded") ||
		strings.Contains(lower, "already ingested") ||
		strings.Contains(lower, "419")
}

// Query runs an advanced search against the configured application and
// returns the raw result payload.
func (c *Client) Query(ctx context.Context, query string) (json.RawMessage, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	searchURL := fmt.Sprintf("%s/api/public/bot/%s/advancedSearch", c.config.Host, c.config.BotID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("auth", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrQueryFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s",
			ErrQueryFailed, resp.StatusCode, truncate(respBody, 512))
	}

	return json.RawMessage(respBody), nil
}

func extension(filename string) string {
	if idx := strings.LastIndex(filename, "."); idx >= 0 {
		return filename[idx:]
	}
	return ""
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
