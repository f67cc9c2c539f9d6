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

// Root is the callback passed to Run: it receives the freshly constructed
// Scope and returns the region's overall result. It must not let the Scope,
// or any JoinHandle obtained from it, escape past its own return. Go has
// no lifetime generics to enforce this at compile time, so it's an API
// convention instead (see DESIGN.md, "lifetime-bounded scope").
type Root[T any] func(s *Scope) (T, error)

// Run constructs a region, runs root as its first main task, and waits for
// the whole task tree to terminate:
//
//  1. allocates an inner state as a child of parentCtx;
//  2-3. wraps it in the equivalent of a termination guard then a cancel
//     guard, held locally;
//  4. spawns root as a main task;
//  5. releases the local cancel guard (root's own now keeps the region
//     alive);
//  6. awaits the termination signal;
//  7. returns the first registered error if any, else root's own result.
//
// The whole call is wrapped in MustComplete for parity with the source's
// run! macro, though this call site never exercises the abort path itself
// (see MustComplete's doc comment and DESIGN.md, "must-complete").
func Run[T any](parentCtx *Ctx, root Root[T]) (T, error) {
	return MustComplete(func() (T, error) {
		state := newRootInnerState(parentCtx)
		scope := &Scope{state: state}

		// Local cancel guard: keeps mainCount above zero while we spawn
		// root, so root's own reference and this local one never let
		// mainCount touch zero before root has actually started.
		state.addMain()

		type rootResult struct {
			value T
			err   error
		}
		rootDone := make(chan rootResult, 1)
		state.addMain()
		go func() {
			defer state.releaseMain()
			v, err := root(scope)
			if err != nil {
				state.register(err)
			}
			rootDone <- rootResult{v, err}
		}()

		state.releaseMain() // drop the local hold (step 5)

		firstErr := state.awaitTerminated() // step 6
		res := <-rootDone

		if firstErr != nil { // step 7
			var zero T
			return zero, firstErr
		}
		return res.value, res.err
	})
}
