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


package split

import "fmt"

// Document is an open paginated document that can serialize any contiguous
// page range as a standalone document of the same kind.
type Document interface {
	// PageCount returns the number of pages in the document.
	PageCount() int

	// Extract serializes pages from through to (1-based, inclusive) as a
	// self-contained document.
	Extract(from, to int) ([]byte, error)
}

// Chunk is one size-bounded fragment of a split document.
type Chunk struct {
	// Data is the serialized standalone document for this fragment.
	Data []byte

	// Index is the 1-based sequential position in emission order.
	Index int

	// Pages is the number of source pages contained in this fragment.
	Pages int
}

// BySize partitions doc into ordered chunks of at most maxBytes serialized
// bytes each. Pages are packed greedily in source order: a page is appended
// to the current chunk, the chunk is re-serialized and measured, and on
// overflow the chunk is closed without that page and a new one started.
// Concatenating the chunks' page ranges in order reproduces the source page
// sequence exactly once.
//
// A single page whose standalone serialization already exceeds maxBytes
// becomes its own oversized chunk; the budget cannot be honored for it.
//
// Greedy insertion-order packing is deliberate: the consumer reassembles
// content positionally, so chunks must preserve document order even though
// tighter packings may exist.
func BySize(doc Document, maxBytes int64) ([]Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidThreshold, maxBytes)
	}

	pages := doc.PageCount()
	if pages == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrInvalidDocument)
	}

	var chunks []Chunk
	start := 1
	var current []byte

	for page := 1; page <= pages; page++ {
		data, err := doc.Extract(start, page)
		if err != nil {
			return nil, fmt.Errorf("extracting pages %d-%d: %w", start, page, err)
		}

		if int64(len(data)) > maxBytes && page > start {
			// Close the chunk without the page that overflowed it.
			chunks = append(chunks, Chunk{
				Data:  current,
				Index: len(chunks) + 1,
				Pages: page - start,
			})

			start = page
			data, err = doc.Extract(start, page)
			if err != nil {
				return nil, fmt.Errorf("extracting page %d: %w", page, err)
			}
		}

		current = data
	}

	chunks = append(chunks, Chunk{
		Data:  current,
		Index: len(chunks) + 1,
		Pages: pages - start + 1,
	})

	return chunks, nil
}
