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

// Signal is a one-shot latch: once Set, it stays set, and every current or
// future waiter observes it. The zero value is not usable; use NewSignal.
type Signal struct {
	once sync.Once
	ch   chan struct{}
}

// NewSignal returns an unfired Signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Set fires the signal. Idempotent: the second and later calls are no-ops.
func (s *Signal) Set() {
	s.once.Do(func() { close(s.ch) })
}

// Done returns a channel that is closed once Set has been called. Reading
// from it (directly, or via Recv/TryRecv) never mutates the signal, so a
// waiter that abandons its wait leaves the signal untouched.
func (s *Signal) Done() <-chan struct{} {
	return s.ch
}

// Recv blocks until the signal fires. It never returns otherwise.
func (s *Signal) Recv() {
	<-s.ch
}

// TryRecv reports whether the signal has fired, without blocking.
func (s *Signal) TryRecv() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}
