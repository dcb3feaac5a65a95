// Copyright 2025 Poiesic Systems
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


package widen

import (
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/widensync/core"
)

// Config holds configuration for the Widen DAM client.
type Config struct {
	// SearchURL is the assets search endpoint.
	// Example: "https://api.widencollective.com/v2/assets/search"
	SearchURL string

	// Query is the Widen search expression selecting the assets to sync.
	Query string

	// BearerToken authenticates search requests. Required.
	BearerToken string

	// Limit is the default page size for full-batch fetches.
	Limit int

	// DownloadTimeout bounds a single signed-URL download. A download that
	// exceeds it fails on its own; there is no external abort path.
	DownloadTimeout time.Duration

	// UserAgent is sent on download requests.
	UserAgent string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithSearchURL sets the assets search endpoint.
func WithSearchURL(url string) ConfigOption {
	return func(c *Config) {
		c.SearchURL = url
	}
}

// WithQuery sets the search expression.
func WithQuery(query string) ConfigOption {
	return func(c *Config) {
		c.Query = query
	}
}

// WithBearerToken sets the API bearer token.
func WithBearerToken(token string) ConfigOption {
	return func(c *Config) {
		c.BearerToken = token
	}
}

// WithLimit sets the default page size.
func WithLimit(limit int) ConfigOption {
	return func(c *Config) {
		c.Limit = limit
	}
}

// WithDownloadTimeout sets the per-download timeout.
func WithDownloadTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.DownloadTimeout = timeout
	}
}

// WithUserAgent sets the download User-Agent header.
func WithUserAgent(agent string) ConfigOption {
	return func(c *Config) {
		c.UserAgent = agent
	}
}

// DefaultConfig returns a Config with the production search endpoint and
// sensible timeouts. The bearer token has no default and must be provided.
func DefaultConfig() *Config {
	return &Config{
		SearchURL:       "https://api.widencollective.com/v2/assets/search",
		Query:           "mt:({_Manuals & QSG (LS)})",
		Limit:           15,
		DownloadTimeout: 2 * time.Minute,
		UserAgent:       "widensync/1.0",
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is valid and complete.
// Missing required fields produce core.ErrMissingConfig naming each one,
// so a run can be refused before any work starts.
func (c *Config) Validate() error {
	var missing []string
	if c.BearerToken == "" {
		missing = append(missing, "WIDEN_BEARER")
	}
	if c.SearchURL == "" {
		missing = append(missing, "WIDEN_SEARCH_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", core.ErrMissingConfig, strings.Join(missing, ", "))
	}
	if c.Limit <= 0 {
		return fmt.Errorf("widen config: Limit must be positive, got %d", c.Limit)
	}
	return nil
}
