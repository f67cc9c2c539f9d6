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

// Task is the computation spawned in a Scope: it's handed the region's own
// Ctx and returns an error, same as nearcore's `AsyncFn<Ctx, Result<(), E>>`.
type Task func(ctx *Ctx) error

// Scope is a region-bounded spawn surface. It must be created only via Run,
// which pins the Scope's lifetime to the enclosing call. Only Spawn,
// SpawnBackground, and NewService are meant to be called on a live Scope;
// calling them after the builder callback passed to Run has returned is a
// programming error (the Go type system can't reject it at compile time the
// way a lifetime parameter would; see DESIGN.md, "lifetime-bounded scope").
type Scope struct {
	state *innerState
}

// Ctx returns the scope's own context, the one every task spawned in it is
// handed.
func (s *Scope) Ctx() *Ctx {
	return s.state.ctx
}

// Spawn starts a "main" task: it holds the cancel guard, so the region
// cancels once the last main task (including this one) finishes. If every
// main task has already finished by the time Spawn is called, it
// transparently degrades to SpawnBackground: at that point the region is
// already cancelling, so the main/background distinction is moot.
func (s *Scope) Spawn(f Task) *JoinHandle {
	if !s.state.addMain() {
		return s.spawnBackground(f)
	}
	return s.run(f, s.state.releaseMain)
}

// SpawnBackground starts a background task: it holds only the termination
// guard, so it delays the region's termination but never its cancellation.
func (s *Scope) SpawnBackground(f Task) *JoinHandle {
	return s.spawnBackground(f)
}

func (s *Scope) spawnBackground(f Task) *JoinHandle {
	s.state.addBackground()
	return s.run(f, s.state.releaseBackground)
}

func (s *Scope) run(f Task, release func()) *JoinHandle {
	h := &JoinHandle{done: NewSignal(), state: s.state}
	go func() {
		defer release()
		err := f(s.state.ctx)
		if err != nil {
			s.state.register(err)
		}
		h.taskCancelled = s.state.ctx.IsCancelled()
		h.done.Set()
	}()
	return h
}

// NewService allocates a detached sub-region whose lifetime is tied to the
// returned handle rather than to this scope's main tasks.
func (s *Scope) NewService() *Service {
	return newService(s.state)
}

// JoinHandle is a region-bounded in-flight task reference. It must never
// outlive the region that produced it.
type JoinHandle struct {
	done          *Signal
	state         *innerState
	taskCancelled bool
}

// Join suspends until the task finishes and returns nil on a graceful
// completion. It returns ErrTaskCancelled if the task finished while its
// region's context was already cancelled (whether that task's own error
// caused the cancellation, or a sibling's did; the actual cause is
// recovered with JoinErr). If callerCtx cancels first, Join returns
// ErrCancelled and releases its hold on the task without waiting for it:
// the task itself continues running under the region's own cancellation
// and will be awaited by the region's termination regardless.
func (h *JoinHandle) Join(callerCtx *Ctx) error {
	select {
	case <-h.done.Done():
		if h.taskCancelled {
			return ErrTaskCancelled
		}
		return nil
	case <-callerCtx.Cancelled():
		return ErrCancelled
	}
}

// JoinErr behaves like Join, but on a cancelled outcome surfaces the
// region's first registered error instead of the opaque ErrTaskCancelled,
// since a cancelled task's cause is always the region's first error (or, if
// the region cancelled for a benign reason such as all main tasks
// finishing, no error at all).
func (h *JoinHandle) JoinErr(callerCtx *Ctx) error {
	select {
	case <-h.done.Done():
		if h.taskCancelled {
			return h.state.firstError()
		}
		return nil
	case <-callerCtx.Cancelled():
		return ErrCancelled
	}
}
