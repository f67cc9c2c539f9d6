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

package peersup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// fakeConn is a Conn whose Recv blocks until either the test tells it to
// drop (dropped channel closed) or ctx cancels, and counts heartbeats.
type fakeConn struct {
	dropped    chan struct{}
	heartbeats atomic.Int32
	closed     atomic.Bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{dropped: make(chan struct{})}
}

func (c *fakeConn) Heartbeat(_ context.Context) error {
	c.heartbeats.Add(1)
	return nil
}

func (c *fakeConn) Recv(ctx context.Context) error {
	select {
	case <-c.dropped:
		return errors.New("fakeConn: dropped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *fakeConn) drop() {
	close(c.dropped)
}

// fakeDialer hands out fakeConns and records every address dialed, so
// tests can assert on reconnect behavior.
type fakeDialer struct {
	mu      sync.Mutex
	dials   []string
	conns   []*fakeConn
	dialErr error
}

func (d *fakeDialer) Dial(_ context.Context, addr string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, addr)
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dials)
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}
