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

// Package signals turns OS shutdown signals into root-region cancellation.
package signals

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"

	"github.com/nearcore/concurrency-scope/pkg/region"
)

// SetupRegionCtx returns a region.Ctx that cancels on the first SIGINT or
// SIGTERM, giving every task in the region a chance to wind down. A second
// signal during that wind-down logs and exits the process immediately,
// the same "ctrl-C twice to force quit" pattern operators expect.
func SetupRegionCtx(log logr.Logger) *region.Ctx {
	ctx := region.RootCtx()
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, beginning shutdown", "signal", sig.String())
		ctx.Cancel()
		sig = <-sigCh
		log.Info("received signal during shutdown, exiting immediately", "signal", sig.String())
		os.Exit(1)
	}()
	return ctx
}
