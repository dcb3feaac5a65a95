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

import "errors"

var (
	// ErrUploadFailed indicates a file upload failed on every known
	// endpoint.
	ErrUploadFailed = errors.New("searchai upload failed")

	// ErrNoFileID indicates an upload response contained no
	// recognizable file id.
	ErrNoFileID = errors.New("no file id in upload response")

	// ErrIngestFailed indicates the ingestion request failed.
	ErrIngestFailed = errors.New("searchai ingest failed")

	// ErrAlreadyIngested indicates the documents were already present
	// in the content source. Callers treat this as a partial success.
	ErrAlreadyIngested = errors.New("documents already ingested")

	// ErrQueryFailed indicates an advanced search request failed.
	ErrQueryFailed = errors.New("searchai query failed")
)
