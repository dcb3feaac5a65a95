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

package searchai

import (
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/widensync/core"
)

// Config holds the connection settings for a SearchAI workspace.
type Config struct {
	// Host is the base URL of the SearchAI instance, without a trailing
	// slash.
	Host string

	// BotID identifies the target application (streamId).
	BotID string

	// ClientID and ClientSecret sign the short-lived access tokens.
	ClientID     string
	ClientSecret string

	// SourceName is the content source documents are ingested into.
	SourceName string

	// UploadTimeout bounds a single file upload request.
	UploadTimeout time.Duration
}

// ConfigOption modifies a Config.
type ConfigOption func(*Config)

// WithHost sets the SearchAI base URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = strings.TrimRight(host, "/")
	}
}

// WithBotID sets the target application identifier.
func WithBotID(botID string) ConfigOption {
	return func(c *Config) {
		c.BotID = botID
	}
}

// WithClientCredentials sets the signing credentials.
func WithClientCredentials(clientID, clientSecret string) ConfigOption {
	return func(c *Config) {
		c.ClientID = clientID
		c.ClientSecret = clientSecret
	}
}

// WithSourceName sets the ingestion content source.
func WithSourceName(name string) ConfigOption {
	return func(c *Config) {
		c.SourceName = name
	}
}

// WithUploadTimeout sets the per-upload timeout.
func WithUploadTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.UploadTimeout = timeout
	}
}

// DefaultConfig returns a Config with defaults for everything that has
// one. Host, bot id and credentials must always be provided.
func DefaultConfig() *Config {
	return &Config{
		SourceName:    "WidenConnect",
		UploadTimeout: 5 * time.Minute,
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

// Validate checks that the configuration is complete. Every missing
// required field is named in the error so a run fails before any asset
// is touched.
func (c *Config) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "KORE_HOST")
	}
	if c.BotID == "" {
		missing = append(missing, "KORE_BOT_ID")
	}
	if c.ClientID == "" {
		missing = append(missing, "KORE_CLIENT_ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "KORE_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", core.ErrMissingConfig, strings.Join(missing, ", "))
	}
	if c.SourceName == "" {
		return fmt.Errorf("%w: SEARCHAI_SOURCE_NAME must not be empty", core.ErrMissingConfig)
	}
	if c.UploadTimeout <= 0 {
		return fmt.Errorf("%w: upload timeout must be positive", core.ErrMissingConfig)
	}
	return nil
}
