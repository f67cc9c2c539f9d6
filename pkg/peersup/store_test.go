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

func TestStore_RecordAndSnapshot(t *testing.T) {
	s := newStore("", NewMetrics(prometheus.NewRegistry()), logr.Discard())
	s.record("peer-a", true)
	s.record("peer-b", false)

	snap := s.snapshot()
	assert.Len(t, snap, 2)
}

// TestStore_RunFlusherWithoutRedisIsCancelSafe exercises the "no RedisAddr
// configured" branch: runFlusher must still honor Ctx cancellation rather
// than blocking forever on a flush loop it can never start, since it's
// spawned as a background task of the supervisor's scope and so delays the
// region's termination until it returns.
func TestStore_RunFlusherWithoutRedisIsCancelSafe(t *testing.T) {
	s := newStore("", NewMetrics(prometheus.NewRegistry()), logr.Discard())

	_, err := region.Run(region.RootCtx(), func(scope *region.Scope) (struct{}, error) {
		scope.SpawnBackground(func(ctx *region.Ctx) error {
			return s.runFlusher(ctx, time.Hour)
		})
		scope.SpawnBackground(func(ctx *region.Ctx) error {
			time.Sleep(5 * time.Millisecond)
			scope.Ctx().Cancel()
			return nil
		})
		return struct{}{}, nil
	})
	require.NoError(t, err)
}
