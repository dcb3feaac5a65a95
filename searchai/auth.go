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
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTTL = 30 * time.Minute

	// tokenRefreshMargin renews a cached token this long before it
	// expires, so an upload never starts with a token about to lapse.
	tokenRefreshMargin = 2 * time.Minute
)

// tokenClaims is the JWT payload SearchAI expects: a subject plus the
// application (client) id under appId.
type tokenClaims struct {
	AppID string `json:"appId"`
	jwt.RegisteredClaims
}

// TokenSource mints and caches the short-lived HS256 tokens used to
// authenticate against SearchAI. Safe for concurrent use; all workers of
// a run share one source so a run signs at most a handful of tokens.
type TokenSource struct {
	clientID     string
	clientSecret string

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenSource creates a token source for the given credentials.
func NewTokenSource(clientID, clientSecret string) *TokenSource {
	return &TokenSource{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// Token returns a valid signed token, minting a fresh one when the
// cached token is absent or close to expiry.
func (s *TokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expiresAt.Add(-tokenRefreshMargin)) {
		return s.token, nil
	}

	now := time.Now()
	expiresAt := now.Add(tokenTTL)

	claims := tokenClaims{
		AppID: s.clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(s.clientSecret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	s.token = signed
	s.expiresAt = expiresAt
	return signed, nil
}

// Valid reports whether raw is a token this source signed and it has not
// expired.
func (s *TokenSource) Valid(raw string) bool {
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(s.clientSecret), nil
		})
	return err == nil && parsed.Valid
}
