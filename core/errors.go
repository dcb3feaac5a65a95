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


package core

import "errors"

// Domain validation errors
var (
	// ErrMissingConfig indicates required external configuration is absent.
	// A configuration error is global and aborts a run before any work starts.
	ErrMissingConfig = errors.New("missing required configuration")

	// ErrInvalidAsset indicates an Asset failed validation.
	ErrInvalidAsset = errors.New("invalid asset")

	// ErrEmptyAssetID indicates the asset ID field is empty.
	ErrEmptyAssetID = errors.New("asset id cannot be empty")

	// ErrEmptyDownloadURL indicates the asset has no download link.
	ErrEmptyDownloadURL = errors.New("asset download url cannot be empty")

	// ErrInvalidCursorState indicates a CursorState failed validation.
	ErrInvalidCursorState = errors.New("invalid cursor state")
)
