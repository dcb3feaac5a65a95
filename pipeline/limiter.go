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

package pipeline

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// RunLimited executes worker over every input with at most concurrency
// calls in flight, queueing the remainder in submission order. Results
// are returned in input order regardless of completion order, one per
// input, so callers can zip them back to their sources. A failing worker
// never blocks or cancels the others; failures travel inside Out.
//
// Fails fast with ErrInvalidConcurrency before starting any work when
// concurrency < 1.
func RunLimited[In, Out any](ctx context.Context, concurrency int, inputs []In, worker func(context.Context, In) Out) ([]Out, error) {
	if concurrency < 1 {
		return nil, ErrInvalidConcurrency
	}

	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	results := make([]Out, len(inputs))

	var wg sync.WaitGroup
	for i, input := range inputs {
		// Shadow for per-iteration scoping on pre-1.22 toolchains, where
		// range variables are shared across iterations.
		i, input := i, input
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			results[i] = worker(ctx, input)
		})
		if submitErr != nil {
			// Pool rejected the task; account for it here and drain
			// what was already submitted before reporting.
			wg.Done()
			wg.Wait()
			return nil, submitErr
		}
	}
	wg.Wait()

	return results, nil
}
