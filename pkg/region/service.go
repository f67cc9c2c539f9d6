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

import (
	"runtime"
	"sync/atomic"
)

// Service is a detached sub-region whose lifetime is tied to this handle
// rather than to any parent's main tasks. Call Close when done with it; a
// finalizer backstop cancels the sub-region if the handle is ever dropped
// unclosed, the same abandonment-safety net must-complete uses, but the
// explicit Close is the documented contract: don't rely on the finalizer's
// timing.
type Service struct {
	state  *innerState
	closed atomic.Bool
}

// newService allocates a new inner state as a child of parent, sharing
// parent's errOutput (so a task error reported anywhere under the new
// sub-region, however deeply nested, registers against the whole tree's
// single error slot and cancels the tree's root ctx directly, exactly as
// an error reported directly in parent would). It spawns a perpetual guard
// task on the sub-region that keeps it alive until its own context cancels
// (so the sub-region doesn't terminate merely for lack of main tasks), and
// a watcher task on the parent that waits for the sub-region to terminate,
// making the parent's own termination wait for the service without the
// parent owning it. The watcher only relays termination: error propagation
// doesn't need it, since it already happened at the point the erroring
// task's region called register.
func newService(parent *innerState) *Service {
	sub := newChildInnerState(parent)
	svc := &Service{state: sub}

	// Guard task on the sub-region: holds it open until its ctx cancels.
	sub.addMain()
	go func() {
		defer sub.releaseMain()
		<-sub.ctx.Cancelled()
	}()

	// Watcher task on the parent: waits for the sub-region's termination
	// without delaying the parent's cancellation (background only).
	parent.addBackground()
	go func() {
		defer parent.releaseBackground()
		sub.terminated.Recv()
	}()

	runtime.SetFinalizer(svc, func(s *Service) {
		if s.closed.CompareAndSwap(false, true) {
			s.state.ctx.Cancel()
		}
	})
	return svc
}

// Spawn starts a main task in the sub-region. It returns ErrTerminated if
// the sub-region has already terminated.
func (svc *Service) Spawn(f Task) (*JoinHandle, error) {
	if svc.state.isTerminated() {
		return nil, ErrTerminated
	}
	scope := &Scope{state: svc.state}
	if !svc.state.addMain() {
		// The sub-region is cancelling (its last main task just finished,
		// or it's draining toward termination): degrade like Scope.Spawn.
		return scope.spawnBackground(f), nil
	}
	return scope.run(f, svc.state.releaseMain), nil
}

// NewService creates a nested sub-region, a child of this service's own.
func (svc *Service) NewService() (*Service, error) {
	if svc.state.isTerminated() {
		return nil, ErrTerminated
	}
	return newService(svc.state), nil
}

// IsTerminated probes, without suspending, whether the sub-region has
// terminated.
func (svc *Service) IsTerminated() bool {
	return svc.state.isTerminated()
}

// Terminated suspends until the sub-region terminates, or callerCtx is
// cancelled first (in which case it returns ErrCancelled, not when the
// sub-region's own context cancels, which is a distinct event from its
// termination).
func (svc *Service) Terminated(callerCtx *Ctx) error {
	return waitTerminated(svc.state, callerCtx)
}

// Terminate cancels the sub-region's context and then behaves like
// Terminated.
func (svc *Service) Terminate(callerCtx *Ctx) error {
	svc.state.ctx.Cancel()
	return waitTerminated(svc.state, callerCtx)
}

// Close cancels the sub-region's context, same as letting the handle be
// collected unclosed would eventually do via the finalizer backstop, but
// deterministically. Idempotent.
func (svc *Service) Close() {
	if svc.closed.CompareAndSwap(false, true) {
		svc.state.ctx.Cancel()
		runtime.SetFinalizer(svc, nil)
	}
}

func waitTerminated(state *innerState, callerCtx *Ctx) error {
	select {
	case <-state.terminated.Done():
		return nil
	case <-callerCtx.Cancelled():
		return ErrCancelled
	}
}
