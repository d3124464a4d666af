// Copyright 2026 Audioloom, Inc.
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

package streaming

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Executor bounds how many streams may run graph executions at once.
// The graph executions themselves are blocking calls inside the runtime;
// the executor only gates entry, it never interrupts a running call.
// Context cancellation is honored while waiting for a slot.
type Executor struct {
	sem *semaphore.Weighted
}

// NewExecutor creates an executor with the given number of slots.
// Zero or negative means one slot per CPU.
func NewExecutor(slots int) *Executor {
	if slots <= 0 {
		slots = runtime.NumCPU()
	}
	return &Executor{sem: semaphore.NewWeighted(int64(slots))}
}

// Acquire blocks until a slot is free or ctx is done.
func (e *Executor) Acquire(ctx context.Context) error {
	return e.sem.Acquire(ctx, 1)
}

// Release returns a slot.
func (e *Executor) Release() {
	e.sem.Release(1)
}
