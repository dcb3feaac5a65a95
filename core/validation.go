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

import "fmt"

// ValidateAsset validates an Asset according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - DownloadURL must not be empty (assets without a download link are
//     filtered out at fetch time, before they reach the pipeline)
//
// NOT validated:
//   - FileSize (upstream may omit it; the real size is measured after download)
//   - Raw (optional passthrough payload)
func ValidateAsset(asset *Asset) error {
	if asset == nil {
		return fmt.Errorf("%w: asset is nil", ErrInvalidAsset)
	}

	if asset.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidAsset, ErrEmptyAssetID)
	}

	if asset.DownloadURL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidAsset, ErrEmptyDownloadURL)
	}

	return nil
}

// ValidateCursorState validates a CursorState according to domain rules.
//
// Validation rules:
//   - Offset must be non-negative
//   - BatchSize must be positive
//   - CurrentIndex must satisfy 0 <= CurrentIndex <= len(Items)
//   - BatchComplete must hold exactly when the buffered page is spent
func ValidateCursorState(state *CursorState) error {
	if state == nil {
		return fmt.Errorf("%w: state is nil", ErrInvalidCursorState)
	}

	if state.Offset < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrInvalidCursorState, state.Offset)
	}

	if state.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size %d", ErrInvalidCursorState, state.BatchSize)
	}

	if state.CurrentIndex < 0 || state.CurrentIndex > len(state.Items) {
		return fmt.Errorf("%w: current index %d out of range [0,%d]",
			ErrInvalidCursorState, state.CurrentIndex, len(state.Items))
	}

	exhausted := len(state.Items) == 0 || state.CurrentIndex == len(state.Items)
	if state.BatchComplete != exhausted {
		return fmt.Errorf("%w: batchComplete=%t with %d/%d items consumed",
			ErrInvalidCursorState, state.BatchComplete, state.CurrentIndex, len(state.Items))
	}

	return nil
}
