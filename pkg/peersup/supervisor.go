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
	"github.com/go-logr/logr"
	"k8s.io/client-go/util/workqueue"

	"github.com/nearcore/concurrency-scope/pkg/region"
)

// Supervisor holds one session per configured peer inside a single
// region.Scope, rate-limiting reconnect attempts through a client-go
// workqueue the way KEDA's own controller/workqueue wiring backs off
// requeues. It is meant to be passed as the root computation to
// region.Run.
type Supervisor struct {
	cfg     Config
	dialer  Dialer
	metrics *Metrics
	log     logr.Logger
	store   *store
}

// NewSupervisor builds a Supervisor. metrics must already be registered
// against a live prometheus.Registry (see NewMetrics); log is held as a
// field and passed down, never read from a package global.
func NewSupervisor(cfg Config, dialer Dialer, metrics *Metrics, log logr.Logger) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		dialer:  dialer,
		metrics: metrics,
		log:     log,
		store:   newStore(cfg.RedisAddr, metrics, log),
	}
}

// Run implements region.Root[struct{}]: it's the callback handed to
// region.Run, receiving the freshly constructed Scope.
func (sv *Supervisor) Run(s *region.Scope) (struct{}, error) {
	queue := workqueue.NewTypedRateLimitingQueue[string](workqueue.DefaultTypedControllerRateLimiter[string]())
	for _, peer := range sv.cfg.Peers {
		queue.Add(peer)
	}

	// Background task: flushes session state to redis on an interval.
	// It delays the region's termination but never its cancellation, so
	// a store outage or a slow flush never blocks the supervisor from
	// shutting down once cancellation fires.
	s.SpawnBackground(func(ctx *region.Ctx) error {
		return sv.store.runFlusher(ctx, sv.cfg.StoreFlushInterval)
	})

	// Background task: the only thing that unblocks queue.Get() once the
	// region starts cancelling is an explicit ShutDown, since the
	// workqueue has no notion of the region's Ctx on its own.
	s.SpawnBackground(func(ctx *region.Ctx) error {
		<-ctx.Cancelled()
		queue.ShutDown()
		return nil
	})

	numWorkers := len(sv.cfg.Peers)
	if numWorkers == 0 {
		return struct{}{}, nil
	}

	handles := make([]*region.JoinHandle, 0, numWorkers)
	for i := 0; i < numWorkers; i++ {
		handles = append(handles, s.Spawn(sv.worker(s, queue)))
	}

	for _, h := range handles {
		// Workers only return once the queue has shut down, which
		// happens after the scope's own Ctx cancels, so Join against that
		// same Ctx usually returns ErrCancelled before the worker has
		// finished. The result is discarded: the region's termination
		// still waits for every worker regardless.
		_ = h.Join(s.Ctx())
	}
	return struct{}{}, nil
}

// worker pulls peer addresses off queue and drives one session attempt
// per item, requeueing with backoff when the session reports it needs to
// reconnect. One worker is spawned per configured peer, mirroring one
// coordinator goroutine per watched object.
func (sv *Supervisor) worker(scope *region.Scope, queue workqueue.TypedRateLimitingInterface[string]) region.Task {
	return func(ctx *region.Ctx) error {
		for {
			peer, shutdown := queue.Get()
			if shutdown {
				return nil
			}

			sess := &session{
				peer:              peer,
				dialer:            sv.dialer,
				heartbeatInterval: sv.cfg.HeartbeatInterval,
				metrics:           sv.metrics,
				store:             sv.store,
				log:               sv.log.WithValues("peer", peer),
			}
			needsReconnect, err := sess.run(ctx, scope)
			queue.Done(peer)

			if err != nil {
				// A session only returns an error for a programming
				// fault, not a dropped connection; let it register as
				// this region's first error.
				return err
			}
			if needsReconnect && !ctx.IsCancelled() {
				queue.AddRateLimited(peer)
			} else {
				queue.Forget(peer)
			}
		}
	}
}

// Close releases resources the Supervisor opened outside the region (the
// redis client), independent of whatever region.Run returned.
func (sv *Supervisor) Close() error {
	return sv.store.close()
}
