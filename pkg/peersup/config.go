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

// Package peersup runs a supervised set of peer sessions on top of the
// region runtime: one main task per configured peer address, each owning a
// region.Service sub-region for its heartbeat loop, with reconnects backed
// off through a client-go workqueue and last-known state mirrored to redis.
package peersup

import (
	"os"
	"time"

	"github.com/nearcore/concurrency-scope/pkg/util"
)

// Config tunes a Supervisor. Values default the way pkg/util's env
// resolvers do elsewhere in this repo: an explicit value wins, otherwise
// the field keeps its zero-cost default.
type Config struct {
	// Peers is the set of peer addresses to hold sessions with.
	Peers []string
	// HeartbeatInterval is how often a connected session's service sends a
	// heartbeat on its sub-region.
	HeartbeatInterval time.Duration
	// StoreFlushInterval is how often the background store flusher mirrors
	// session state to redis.
	StoreFlushInterval time.Duration
	// RedisAddr is the redis instance backing the session store. Empty
	// disables the redis mirror; session state is then kept in memory only.
	RedisAddr string
}

// LoadConfigFromEnv fills in HeartbeatInterval, StoreFlushInterval, and
// RedisAddr from the environment, following the same
// ResolveOsEnv*-with-fallback pattern as the rest of this repo's util
// package. Peers is left to the caller (it has no sane default).
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		HeartbeatInterval:  5 * time.Second,
		StoreFlushInterval: 30 * time.Second,
	}

	if d, err := util.ResolveOsEnvDuration("PEERSUP_HEARTBEAT_INTERVAL"); err != nil {
		return Config{}, err
	} else if d != nil {
		cfg.HeartbeatInterval = *d
	}

	if d, err := util.ResolveOsEnvDuration("PEERSUP_STORE_FLUSH_INTERVAL"); err != nil {
		return Config{}, err
	} else if d != nil {
		cfg.StoreFlushInterval = *d
	}

	if v, ok := os.LookupEnv("PEERSUP_REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}

	return cfg, nil
}
