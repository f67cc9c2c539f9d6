/*
Copyright 2024 The KEDA Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package region

import "sync"

// errOutput is the capacity-one first-error slot shared by an entire
// region tree: the root scope's innerState and the innerState of every
// service nested under it, however deeply, hold a reference to the same
// errOutput and register errors through it. This mirrors
// concurrency::scope::Output in the original source, which is cloned
// (same channel, same captured top-level ctx) into every subscope by
// new_service, so that an error reported by a task anywhere in the tree
// cancels the tree's outermost Ctx directly and becomes the single error
// run!() returns, regardless of nesting depth.
type errOutput struct {
	rootCtx *Ctx

	mu       sync.Mutex
	firstErr error
}

func newErrOutput(rootCtx *Ctx) *errOutput {
	return &errOutput{rootCtx: rootCtx}
}

// register atomically inserts err into the slot. The first non-nil
// insertion wins and cancels rootCtx directly (not just the reporting
// task's own region's ctx); later attempts are discarded. Returns whether
// this call's error won the slot.
func (o *errOutput) register(err error) (won bool) {
	if err == nil {
		return false
	}
	o.mu.Lock()
	if o.firstErr != nil {
		o.mu.Unlock()
		return false
	}
	o.firstErr = err
	o.mu.Unlock()
	o.rootCtx.Cancel()
	return true
}

func (o *errOutput) get() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.firstErr
}

// innerState is the shared heart of a region: its own child Ctx (a node
// in the region tree's cancellation tree, descended from its parent's
// ctx), its own termination Signal, and a reference to the errOutput
// shared by its whole tree. It plays the role of nearcore's
// concurrency::scope::Inner, but tracks task references with two plain
// counters (mainCount, totalCount) instead of simulating Rust's Arc/Weak
// guard chain: a "cancel guard" reference is modelled as holding both
// counts, a "termination guard" reference as holding only totalCount.
//
// mainCount reaching zero cancels ctx (the region's main-task ownership
// lattice has drained). totalCount reaching zero fires terminated (every
// task, main or background, has released its reference).
type innerState struct {
	ctx        *Ctx
	terminated *Signal
	output     *errOutput

	mu         sync.Mutex
	mainCount  int
	mainClosed bool
	totalCount int
}

// newRootInnerState creates the innerState for a top-level region (the
// one Run constructs): its errOutput is fresh and targets its own ctx, so
// an error registered anywhere in this region's tree (including every
// service nested under it, however deeply) cancels this ctx directly.
func newRootInnerState(parent *Ctx) *innerState {
	ctx := parent.Sub(Infinite)
	return &innerState{
		ctx:        ctx,
		terminated: NewSignal(),
		output:     newErrOutput(ctx),
	}
}

// newChildInnerState creates the innerState for a service nested directly
// under parent: its ctx is a child of parent's ctx (so cancelling the
// tree's root cancels it too, and cancelling it cancels anything nested
// further under it), but it shares parent's errOutput outright rather
// than owning a separate error slot, so an error anywhere under it is
// still registered against, and cancels, the tree's single root ctx.
func newChildInnerState(parent *innerState) *innerState {
	return &innerState{
		ctx:        parent.ctx.Sub(Infinite),
		terminated: NewSignal(),
		output:     parent.output,
	}
}

// addMain tries to take a cancel-guard reference. It fails (ok=false) once
// mainCount has already drained to zero and cancelled ctx, the point at
// which the main/background distinction stops mattering and a would-be
// main task must instead run as a plain background task.
func (s *innerState) addMain() (ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mainClosed {
		return false
	}
	s.mainCount++
	s.totalCount++
	return true
}

// addBackground takes a termination-guard-only reference; it never fails,
// since background tasks don't participate in the cancel decision.
func (s *innerState) addBackground() {
	s.mu.Lock()
	s.totalCount++
	s.mu.Unlock()
}

// releaseMain releases a cancel-guard reference, cancelling ctx if it was
// the last one.
func (s *innerState) releaseMain() {
	s.mu.Lock()
	s.mainCount--
	cancelNow := false
	if s.mainCount == 0 && !s.mainClosed {
		s.mainClosed = true
		cancelNow = true
	}
	s.totalCount--
	terminateNow := s.totalCount == 0
	s.mu.Unlock()

	if cancelNow {
		s.ctx.Cancel()
	}
	if terminateNow {
		s.terminated.Set()
	}
}

// releaseBackground releases a termination-guard-only reference.
func (s *innerState) releaseBackground() {
	s.mu.Lock()
	s.totalCount--
	terminateNow := s.totalCount == 0
	s.mu.Unlock()

	if terminateNow {
		s.terminated.Set()
	}
}

// register inserts err into the tree's shared first-error slot (see
// errOutput). The first non-nil insertion wins and cancels the tree's
// root ctx; later attempts, anywhere in the tree, are discarded. Returns
// whether this call's error won the slot.
func (s *innerState) register(err error) (won bool) {
	return s.output.register(err)
}

// firstError returns the tree's first registered error, if any.
func (s *innerState) firstError() error {
	return s.output.get()
}

// awaitTerminated blocks until the terminated signal fires and returns the
// tree's first-error slot value.
func (s *innerState) awaitTerminated() error {
	s.terminated.Recv()
	return s.firstError()
}

// isTerminated probes the terminated signal without blocking.
func (s *innerState) isTerminated() bool {
	return s.terminated.TryRecv()
}
