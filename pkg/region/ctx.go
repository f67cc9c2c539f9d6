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

// Package region implements a structured-concurrency runtime: a scope whose
// enclosing region cannot complete until every task spawned inside it
// (transitively) has finished, a cancellation-tree context carried by each
// task, a service abstraction for sub-regions tied to an external handle,
// and a must-complete wrapper that turns accidental task abandonment into a
// process fault.
package region

import (
	"context"
	"errors"
	"time"
)

// Infinite is the distinguished "no deadline" sentinel passed to Sub.
var Infinite time.Time

// ErrCancelled is returned by Wait (and by Join) when the caller's own Ctx
// was cancelled before the awaited operation completed.
var ErrCancelled = errors.New("region: cancelled")

// ErrTaskCancelled is returned by JoinHandle.Join when the joined task
// finished while its region's context was already cancelled, so its
// outcome is attributed to cancellation rather than to its own return
// value. Use JoinHandle.JoinErr to recover the region's actual cause.
var ErrTaskCancelled = errors.New("region: task cancelled")

// ErrTerminated is returned by Service operations once the service's
// sub-region has already terminated.
var ErrTerminated = errors.New("region: terminated")

// Ctx is a node in a cancellation tree: cancellation of a parent implies
// cancellation of every descendant, with no action required from the
// descendant beyond observing the flag. It optionally carries a deadline.
//
// Ctx wraps a stdlib context.Context the way pulumi's util/cancel.Context
// wraps one, adding the vocabulary (Sub, Wait, IsCancelled) this runtime's
// tasks are written against, instead of exposing context.Context directly.
type Ctx struct {
	std    context.Context
	cancel context.CancelFunc
}

// RootCtx returns a fresh, never-cancelled-except-explicitly root Ctx, for
// use as the ambient context of the outermost region.
func RootCtx() *Ctx {
	return FromContext(context.Background())
}

// FromContext adapts an existing context.Context (e.g. one tied to process
// signals, or a request) into a root Ctx for a region.
func FromContext(parent context.Context) *Ctx {
	std, cancel := context.WithCancel(parent)
	return &Ctx{std: std, cancel: cancel}
}

// Cancel marks this context cancelled. Idempotent.
func (c *Ctx) Cancel() {
	c.cancel()
}

// IsCancelled reports, without suspending, whether this context has been
// cancelled (directly, by a parent, or by deadline).
func (c *Ctx) IsCancelled() bool {
	return c.std.Err() != nil
}

// Cancelled returns a channel that closes when cancellation fires. Reading
// from it is cancel-safe: abandoning the read leaves the context untouched.
func (c *Ctx) Cancelled() <-chan struct{} {
	return c.std.Done()
}

// Sub derives a child context. The child is cancelled when the parent is
// cancelled, when the child is cancelled explicitly, or when deadline
// elapses (deadline == Infinite means no additional deadline).
func (c *Ctx) Sub(deadline time.Time) *Ctx {
	if deadline.IsZero() {
		std, cancel := context.WithCancel(c.std)
		return &Ctx{std: std, cancel: cancel}
	}
	std, cancel := context.WithDeadline(c.std, deadline)
	return &Ctx{std: std, cancel: cancel}
}

// Std exposes the underlying context.Context, for collaborators (HTTP
// clients, k8s clients, database drivers) that take one directly. It is an
// interface boundary, not a replacement for Ctx's own vocabulary.
func (c *Ctx) Std() context.Context {
	return c.std
}

// Wait runs f to completion in its own goroutine and returns its result, or
// returns ErrCancelled as soon as ctx is cancelled, whichever happens
// first. If ctx cancels first, f keeps running to completion in the
// background rather than being dropped abruptly: Wait releases its hold on
// f without waiting for it, exactly as JoinHandle.Join does for a task
// whose caller cancels (see mustcomplete.go for the complementary contract
// that a future is never silently abandoned).
func Wait[T any](ctx *Ctx, f func() (T, error)) (T, error) {
	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := f()
		ch <- outcome{v, err}
	}()
	select {
	case o := <-ch:
		return o.v, o.err
	case <-ctx.Cancelled():
		var zero T
		return zero, ErrCancelled
	}
}
