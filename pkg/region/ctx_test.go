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

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtx_CancelIsMonotonic(t *testing.T) {
	ctx := RootCtx()
	assert.False(t, ctx.IsCancelled())
	ctx.Cancel()
	assert.True(t, ctx.IsCancelled())
	ctx.Cancel() // idempotent
	assert.True(t, ctx.IsCancelled())
}

func TestCtx_ParentCancelPropagatesToChild(t *testing.T) {
	parent := RootCtx()
	child := parent.Sub(Infinite)
	require.False(t, child.IsCancelled())

	parent.Cancel()

	select {
	case <-child.Cancelled():
	case <-time.After(time.Second):
		t.Fatal("child did not observe parent cancellation")
	}
	assert.True(t, child.IsCancelled())
}

func TestCtx_ChildCancelDoesNotAffectParent(t *testing.T) {
	parent := RootCtx()
	child := parent.Sub(Infinite)
	child.Cancel()
	assert.True(t, child.IsCancelled())
	assert.False(t, parent.IsCancelled())
}

func TestCtx_DeadlineCancelsChild(t *testing.T) {
	parent := RootCtx()
	child := parent.Sub(time.Now().Add(10 * time.Millisecond))

	select {
	case <-child.Cancelled():
	case <-time.After(time.Second):
		t.Fatal("child did not cancel on deadline")
	}
	assert.True(t, child.IsCancelled())
}

func TestWait_ReturnsFnResultWhenFasterThanCancellation(t *testing.T) {
	ctx := RootCtx()
	v, err := Wait(ctx, func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestWait_ReturnsCancelledWhenCtxCancelsFirst(t *testing.T) {
	ctx := RootCtx()
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		<-started
		ctx.Cancel()
	}()

	v, err := Wait(ctx, func() (int, error) {
		close(started)
		<-release // would block forever without the cancellation path
		return 1, nil
	})
	close(release)

	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 0, v)
}

func TestWait_PropagatesFnError(t *testing.T) {
	ctx := RootCtx()
	boom := errors.New("boom")
	_, err := Wait(ctx, func() (struct{}, error) {
		return struct{}{}, boom
	})
	assert.ErrorIs(t, err, boom)
}
