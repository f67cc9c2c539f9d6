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

import "context"

// Conn is an established session with a single peer. It is deliberately
// minimal: peersup only needs enough of a transport to demonstrate the
// region kernel driving a real reconnect/heartbeat/drain lifecycle, not an
// actual wire protocol, which belongs to a higher layer entirely.
type Conn interface {
	// Heartbeat sends a single liveness probe and returns an error if the
	// peer is no longer reachable.
	Heartbeat(ctx context.Context) error
	// Recv blocks until a message arrives, the connection drops, or ctx is
	// cancelled, whichever happens first.
	Recv(ctx context.Context) error
	// Close releases the underlying transport. Idempotent.
	Close() error
}

// Dialer opens a Conn to addr. Production wiring points this at whatever
// transport the surrounding system uses; tests point it at a fake.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Conn, error)
}

// DialerFunc adapts a plain function to a Dialer.
type DialerFunc func(ctx context.Context, addr string) (Conn, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, addr string) (Conn, error) {
	return f(ctx, addr)
}
