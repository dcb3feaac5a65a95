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


package pdf

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/poiesic/widensync/split"
)

// Doc implements split.Document for PDF files. The source bytes are kept
// as-is; page ranges are rendered on demand with pdfcpu.
type Doc struct {
	data  []byte
	pages int
	conf  *model.Configuration
}

var _ split.Document = (*Doc)(nil)

// Open parses a PDF from memory and returns it as a split.Document.
func Open(data []byte) (*Doc, error) {
	conf := model.NewDefaultConfiguration()

	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("reading pdf: %w", err)
	}

	return &Doc{
		data:  data,
		pages: pages,
		conf:  conf,
	}, nil
}

// PageCount returns the number of pages in the source PDF.
func (d *Doc) PageCount() int {
	return d.pages
}

// Extract serializes pages from through to (1-based, inclusive) as a
// standalone PDF.
func (d *Doc) Extract(from, to int) ([]byte, error) {
	if from < 1 || to > d.pages || from > to {
		return nil, fmt.Errorf("page range %d-%d out of bounds (1-%d)", from, to, d.pages)
	}

	var buf bytes.Buffer
	selection := []string{fmt.Sprintf("%d-%d", from, to)}
	if err := api.Trim(bytes.NewReader(d.data), &buf, selection, d.conf); err != nil {
		return nil, fmt.Errorf("extracting pdf pages %d-%d: %w", from, to, err)
	}

	return buf.Bytes(), nil
}

// Splitter adapts the generic splitter to PDF input for pipeline use.
type Splitter struct{}

// Split partitions a PDF into chunks of at most maxBytes each.
func (Splitter) Split(data []byte, maxBytes int64) ([]split.Chunk, error) {
	doc, err := Open(data)
	if err != nil {
		return nil, err
	}
	return split.BySize(doc, maxBytes)
}
