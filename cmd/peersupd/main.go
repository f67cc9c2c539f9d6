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

// Command peersupd is the demo consumer of the region runtime: it holds a
// supervised session per configured peer, with reconnect backoff,
// per-session heartbeat sub-regions, and a redis-backed state mirror, all
// bounded to a single top-level region.
package main

import (
	"flag"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/nearcore/concurrency-scope/pkg/peersup"
	"github.com/nearcore/concurrency-scope/pkg/region"
	"github.com/nearcore/concurrency-scope/pkg/signals"
	"github.com/nearcore/concurrency-scope/pkg/util"
)

func main() {
	var peerAddrs string
	var metricsAddr string
	var dialTimeout time.Duration
	pflag.StringVar(&peerAddrs, "peers", "", "comma-separated list of peer addresses to hold sessions with")
	pflag.StringVar(&metricsAddr, "metrics-bind-address", ":8080", "the address the metrics endpoint binds to")
	pflag.DurationVar(&dialTimeout, "dial-timeout", 5*time.Second, "timeout for a single peer dial attempt")
	opts := zap.Options{}
	opts.BindFlags(flag.CommandLine)
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()

	log := zap.New(zap.UseFlagOptions(&opts))
	setupLog := log.WithName("setup")

	if err := util.ConfigureMaxProcs(setupLog); err != nil {
		setupLog.Error(err, "failed to set GOMAXPROCS")
	}

	cfg, err := peersup.LoadConfigFromEnv()
	if err != nil {
		setupLog.Error(err, "invalid peersup configuration")
		os.Exit(1)
	}
	if peerAddrs != "" {
		cfg.Peers = strings.Split(peerAddrs, ",")
	}
	if len(cfg.Peers) == 0 {
		setupLog.Error(nil, "no peers configured, pass --peers")
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	metrics := peersup.NewMetrics(registry)
	dialer := peersup.TCPDialer{DialTimeout: dialTimeout}
	supervisor := peersup.NewSupervisor(cfg, dialer, metrics, log.WithName("peersup"))
	defer func() {
		if err := supervisor.Close(); err != nil {
			setupLog.Error(err, "failed to close supervisor store")
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			setupLog.Error(err, "metrics server failed")
		}
	}()

	rootCtx := signals.SetupRegionCtx(log)
	if _, err := region.Run(rootCtx, supervisor.Run); err != nil {
		setupLog.Error(err, "peersupd exited with error")
		os.Exit(1)
	}
	setupLog.Info("peersupd shut down cleanly")
}
