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


package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/widensync/core"
	"github.com/poiesic/widensync/storage"
)

// DefaultCursorName is the record name used when none is configured.
const DefaultCursorName = "widen_state"

// CursorStore implements storage.CursorStore on BadgerDB. The state is one
// JSON record under a fixed key; every Save replaces it (last writer wins,
// single-writer use is an operating assumption).
type CursorStore struct {
	backend *Backend
	name    string
	logger  *slog.Logger
}

var _ storage.CursorStore = (*CursorStore)(nil)

// NewCursorStore creates a CursorStore persisting under the given record
// name. An empty name falls back to DefaultCursorName.
func NewCursorStore(backend *Backend, name string) *CursorStore {
	if name == "" {
		name = DefaultCursorName
	}
	return &CursorStore{
		backend: backend,
		name:    name,
		logger:  slog.Default().With("component", "cursor-store"),
	}
}

// Load retrieves the persisted cursor state. A missing or undecodable
// record yields the default state so a fresh deployment (or a corrupted
// record) restarts pagination from the beginning instead of failing.
func (s *CursorStore) Load(ctx context.Context) (*core.CursorState, error) {
	state := core.DefaultCursorState()

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCursorKey(s.name))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			decoded := core.DefaultCursorState()
			if err := json.Unmarshal(val, decoded); err != nil {
				s.logger.Warn("cursor state undecodable, using defaults", "err", err)
				return nil
			}
			state = decoded
			return nil
		})
	}, false)

	if err != nil {
		return nil, err
	}

	// Stored records from older versions may miss fields; re-apply defaults.
	if state.BatchSize <= 0 {
		state.BatchSize = core.DefaultBatchSize
	}

	return state, nil
}

// Save persists the cursor state, replacing any previous record. States
// violating the pagination invariants are rejected rather than written.
func (s *CursorStore) Save(ctx context.Context, state *core.CursorState) error {
	if err := core.ValidateCursorState(state); err != nil {
		return err
	}

	value, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeCursorKey(s.name), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Close is a no-op; the shared backend owns the database handle.
func (s *CursorStore) Close() error {
	return nil
}
