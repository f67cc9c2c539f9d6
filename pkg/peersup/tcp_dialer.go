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
	"bufio"
	"context"
	"net"
	"time"
)

// TCPDialer is the production Dialer: a peer is anything speaking a
// trivial newline-terminated liveness protocol over TCP. The wire format
// itself is intentionally trivial, since real protocol message
// definitions belong to a higher layer entirely; this exists only so
// cmd/peersupd has a real I/O path to drive instead of a fake.
type TCPDialer struct {
	// DialTimeout bounds the initial connect. Zero means net.Dialer's own
	// default.
	DialTimeout time.Duration
}

func (d TCPDialer) Dial(ctx context.Context, addr string) (Conn, error) {
	dialer := net.Dialer{Timeout: d.DialTimeout}
	c, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &tcpConn{conn: c, reader: bufio.NewReader(c)}, nil
}

type tcpConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func (c *tcpConn) Heartbeat(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	} else {
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	}
	_, err := c.conn.Write([]byte("PING\n"))
	return err
}

// Recv blocks on the next line from the peer. It unblocks promptly on ctx
// cancellation by setting the connection's deadline to now, which fails
// the pending Read, the standard Go idiom for making a blocking net.Conn
// read cancel-safe.
func (c *tcpConn) Recv(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.SetDeadline(time.Now())
		case <-done:
		}
	}()

	_, err := c.reader.ReadString('\n')
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *tcpConn) Close() error {
	return c.conn.Close()
}
