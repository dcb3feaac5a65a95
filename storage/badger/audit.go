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
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/widensync/core"
	"github.com/poiesic/widensync/storage"
)

// AuditSink implements storage.AuditSink on BadgerDB. Rows are keyed by
// insertion time plus a sequence number so they iterate in order and never
// collide within the same microsecond.
type AuditSink struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.AuditSink = (*AuditSink)(nil)

// NewAuditSink creates an AuditSink on the given backend.
func NewAuditSink(backend *Backend) (*AuditSink, error) {
	seq, err := backend.GetSequence(auditRowIDSeq)
	if err != nil {
		return nil, fmt.Errorf("creating audit sequence: %w", err)
	}

	return &AuditSink{
		backend: backend,
		seq:     seq,
	}, nil
}

// Record appends one audit row. Sets CreatedAt if the caller left it zero.
func (s *AuditSink) Record(ctx context.Context, record *core.AuditRecord) error {
	if record == nil {
		return nil
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	id, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("allocating audit row id: %w", err)
	}

	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeAuditRowKey(record.CreatedAt, id), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Recent returns up to limit audit rows, most recent first.
func (s *AuditSink) Recent(ctx context.Context, limit int) ([]*core.AuditRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	var records []*core.AuditRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(auditRowPrefix + ":")
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration must seek to the end of the prefix range.
		seek := append([]byte(auditRowPrefix+":"), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		for iter.Seek(seek); iter.Valid() && len(records) < limit; iter.Next() {
			var record core.AuditRecord
			err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			records = append(records, &record)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	return records, nil
}

// Close releases the audit row sequence. The shared backend owns the database
// handle and is closed separately.
func (s *AuditSink) Close() error {
	return s.seq.Release()
}
