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
	"time"

	"github.com/go-logr/logr"

	"github.com/nearcore/concurrency-scope/pkg/region"
)

// session owns one peer's connection lifetime. It is constructed fresh by
// the supervisor on every (re)connect attempt; there is no session state
// that survives a dropped connection beyond what the store records.
type session struct {
	peer              string
	dialer            Dialer
	heartbeatInterval time.Duration
	metrics           *Metrics
	store             *store
	log               logr.Logger
}

// run dials the peer and, on success, holds the connection open until
// either the session's own region.Ctx cancels (graceful shutdown) or the
// connection drops (peer went away, network blip). It never returns a
// non-nil error for a dropped connection: reconnection is the
// supervisor's concern (via its workqueue), not a region-level failure. A
// dropped peer connection isn't the kind of error that should become the
// scope's first-error outcome.
//
// needsReconnect reports whether the caller should requeue the peer for
// another dial attempt.
func (s *session) run(ctx *region.Ctx, scope *region.Scope) (needsReconnect bool, err error) {
	conn, dialErr := s.dialer.Dial(ctx.Std(), s.peer)
	if dialErr != nil {
		s.log.V(1).Info("dial failed", "peer", s.peer, "error", dialErr)
		return true, nil
	}
	defer conn.Close()

	s.metrics.setConnected(s.peer, true)
	s.store.record(s.peer, true)
	defer func() {
		s.metrics.setConnected(s.peer, false)
		s.store.record(s.peer, false)
	}()

	svc := scope.NewService()
	defer svc.Close()
	if _, spawnErr := svc.Spawn(s.heartbeatTask(conn)); spawnErr != nil {
		// The sub-region never outlives svc itself, so Spawn can only
		// fail here if ctx was already cancelled when NewService ran;
		// the outer loop below observes the same cancellation and exits
		// gracefully.
		s.log.V(1).Info("heartbeat service already terminated", "peer", s.peer)
	}

	for {
		if err := conn.Recv(ctx.Std()); err != nil {
			if ctx.IsCancelled() {
				return false, nil
			}
			s.log.Info("session dropped, will reconnect", "peer", s.peer, "error", err)
			s.metrics.recordReconnect(s.peer)
			return true, nil
		}
		if ctx.IsCancelled() {
			return false, nil
		}
	}
}

// heartbeatTask is run on the session's own region.Service: a sub-region
// whose guard task keeps it alive until the service is closed (on a
// connection drop or graceful shutdown) or the parent scope cancels.
func (s *session) heartbeatTask(conn Conn) region.Task {
	return func(ctx *region.Ctx) error {
		ticker := time.NewTicker(s.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.Heartbeat(ctx.Std()); err != nil {
					s.log.V(1).Info("heartbeat failed", "peer", s.peer, "error", err)
					return nil
				}
				s.metrics.recordHeartbeat(s.peer)
			case <-ctx.Cancelled():
				return nil
			}
		}
	}
}
