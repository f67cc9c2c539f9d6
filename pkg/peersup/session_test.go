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
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearcore/concurrency-scope/pkg/region"
)

func newTestSession(t *testing.T, dialer Dialer) *session {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	return &session{
		peer:              "peer-a:7777",
		dialer:            dialer,
		heartbeatInterval: 5 * time.Millisecond,
		metrics:           metrics,
		store:             newStore("", metrics, logr.Discard()),
		log:               logr.Discard(),
	}
}

func TestSessionRun_GracefulCancelOnScopeShutdown(t *testing.T) {
	dialer := &fakeDialer{}
	sess := newTestSession(t, dialer)

	_, err := region.Run(region.RootCtx(), func(s *region.Scope) (struct{}, error) {
		// Simulate the parent region winding down: cancel the scope's own
		// Ctx once the session has dialed, exactly as a sibling task's
		// error or an external shutdown would.
		s.SpawnBackground(func(_ *region.Ctx) error {
			waitForConn(dialer)
			s.Ctx().Cancel()
			return nil
		})
		needsReconnect, runErr := sess.run(s.Ctx(), s)
		assert.NoError(t, runErr)
		assert.False(t, needsReconnect, "a cancelled session should not ask to reconnect")
		return struct{}{}, nil
	})
	require.NoError(t, err)

	conn := dialer.lastConn()
	require.NotNil(t, conn)
	assert.True(t, conn.closed.Load())
}

func TestSessionRun_ReconnectsOnDrop(t *testing.T) {
	dialer := &fakeDialer{}
	sess := newTestSession(t, dialer)

	result, err := region.Run(region.RootCtx(), func(s *region.Scope) (bool, error) {
		// Drop the connection shortly after it's established, from a
		// background task so it doesn't hold the region's cancel guard.
		s.SpawnBackground(func(_ *region.Ctx) error {
			for dialer.lastConn() == nil {
				time.Sleep(time.Millisecond)
			}
			dialer.lastConn().drop()
			return nil
		})
		needsReconnect, runErr := sess.run(s.Ctx(), s)
		return needsReconnect, runErr
	})
	require.NoError(t, err)
	assert.True(t, result, "a dropped connection should ask to reconnect")
	assert.Equal(t, 1, dialer.dialCount())
}

func TestSessionRun_DialFailureAsksToReconnect(t *testing.T) {
	dialer := &fakeDialer{dialErr: assert.AnError}
	sess := newTestSession(t, dialer)

	result, err := region.Run(region.RootCtx(), func(s *region.Scope) (bool, error) {
		return sess.run(s.Ctx(), s)
	})
	require.NoError(t, err)
	assert.True(t, result)
}

func TestSessionRun_HeartbeatsWhileConnected(t *testing.T) {
	dialer := &fakeDialer{}
	sess := newTestSession(t, dialer)
	sess.heartbeatInterval = time.Millisecond

	_, err := region.Run(region.RootCtx(), func(s *region.Scope) (struct{}, error) {
		s.SpawnBackground(func(_ *region.Ctx) error {
			conn := waitForConn(dialer)
			for conn.heartbeats.Load() < 3 {
				time.Sleep(time.Millisecond)
			}
			conn.drop()
			return nil
		})
		_, runErr := sess.run(s.Ctx(), s)
		return struct{}{}, runErr
	})
	require.NoError(t, err)

	conn := dialer.lastConn()
	require.NotNil(t, conn)
	assert.GreaterOrEqual(t, conn.heartbeats.Load(), int32(3))
}

func waitForConn(dialer *fakeDialer) *fakeConn {
	for {
		if c := dialer.lastConn(); c != nil {
			return c
		}
		time.Sleep(time.Millisecond)
	}
}
