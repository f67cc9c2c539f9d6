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
	"encoding/json"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"

	"github.com/nearcore/concurrency-scope/pkg/region"
	"github.com/nearcore/concurrency-scope/pkg/util"
)

// sessionState is the last-known state of a peer session, mirrored to
// redis so an external reader (a status page, another process) can see
// session health without reaching into the supervisor itself.
type sessionState struct {
	Peer        string    `json:"peer"`
	Connected   bool      `json:"connected"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// store keeps the latest sessionState per peer in memory and periodically
// flushes the snapshot to redis as a background task of the supervisor's
// scope: it delays the region's termination (the supervisor won't return
// until the last flush has a chance to run) but never its cancellation, so
// it never blocks shutdown.
type store struct {
	client  *redis.Client
	keyBase string
	metrics *Metrics
	log     logr.Logger

	mu    sync.Mutex
	state map[string]sessionState
}

func newStore(redisAddr string, metrics *Metrics, log logr.Logger) *store {
	s := &store{
		keyBase: "peersup:session:",
		metrics: metrics,
		log:     log,
		state:   map[string]sessionState{},
	}
	if redisAddr != "" {
		s.client = redis.NewClient(&redis.Options{Addr: redisAddr})
	}
	return s
}

func (s *store) record(peer string, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[peer] = sessionState{Peer: peer, Connected: connected, LastUpdated: time.Now()}
}

func (s *store) snapshot() []sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sessionState, 0, len(s.state))
	for _, st := range s.state {
		out = append(out, st)
	}
	return out
}

// runFlusher loops flushing the current snapshot to redis every interval
// until ctx is cancelled, then does one last best-effort flush before
// returning. It never returns an error: a redis outage degrades the store
// to memory-only rather than failing the supervisor's region, matching
// the store's role as an observability side-channel, not a correctness
// dependency.
func (s *store) runFlusher(ctx *region.Ctx, interval time.Duration) error {
	if s.client == nil {
		<-ctx.Cancelled()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.flush(ctx.Std())
		case <-ctx.Cancelled():
			s.flush(context.Background())
			return nil
		}
	}
}

func (s *store) flush(ctx context.Context) {
	for _, st := range s.snapshot() {
		data, err := json.Marshal(st)
		if err != nil {
			s.log.Error(err, "failed to marshal session state", "peer", st.Peer)
			s.metrics.recordStoreFlush("marshal_error")
			continue
		}
		// Peer addresses are host:port; NormalizeString keeps the colon
		// they carry from turning s.keyBase's own colon-delimited
		// hierarchy ambiguous ("peersup:session:host:1234" reads as one
		// extra level of nesting otherwise).
		if err := s.client.Set(ctx, s.keyBase+util.NormalizeString(st.Peer), data, 0).Err(); err != nil {
			s.log.Error(err, "failed to flush session state to redis", "peer", st.Peer)
			s.metrics.recordStoreFlush("redis_error")
			continue
		}
		s.metrics.recordStoreFlush("ok")
	}
}

func (s *store) close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
