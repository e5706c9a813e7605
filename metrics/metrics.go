// Package metrics exposes the core's prometheus collectors (spec §4
// "Supplemented features: Metrics surface"): signal emissions, hook
// invocations, opportunistic-cache hit/miss, and storage adapter
// calls. Trimmed from forbearing-gst's metrics package, which also
// carried HTTP/CPU/memory/DB-pool gauges that belong to a host
// application's own process, not this embeddable core (see
// DESIGN.md "dropped teacher dependencies").
//
// Collectors are nil until Init is called, so every call site guards
// with a nil check -- metrics observation is optional, never a
// prerequisite for correct behavior.
package metrics

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

const (
	Namespace = "admincore"
	Subsystem = "core"
)

var (
	SignalEmitted *prometheus.CounterVec
	HookInvoked   *prometheus.CounterVec
	CacheHit      *prometheus.CounterVec
	CacheMiss     *prometheus.CounterVec
	StorageCalls  *prometheus.CounterVec

	once    sync.Once
	initErr error
)

// Init constructs and registers every collector against the default
// prometheus registry. Safe to call more than once -- only the first
// call does any work, matching forbearing-gst's package-level,
// call-once-at-startup Init convention.
func Init() error {
	once.Do(func() {
		SignalEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "signal_emitted_total",
			Help:      "Total number of signals emitted, by signal name.",
		}, []string{"signal"})
		HookInvoked = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "hook_invoked_total",
			Help:      "Total number of hook Invoke/Alter calls, by hook name and kind (invoke|alter).",
		}, []string{"hook", "kind"})
		CacheHit = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "cache_hits_total",
			Help:      "Total number of opportunistic-cache hits, by entity.",
		}, []string{"entity"})
		CacheMiss = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "cache_misses_total",
			Help:      "Total number of opportunistic-cache misses, by entity.",
		}, []string{"entity"})
		StorageCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "storage_calls_total",
			Help:      "Total number of storage adapter calls, by entity and operation.",
		}, []string{"entity", "op"})

		errs := []error{
			prometheus.Register(SignalEmitted),
			prometheus.Register(HookInvoked),
			prometheus.Register(CacheHit),
			prometheus.Register(CacheMiss),
			prometheus.Register(StorageCalls),
		}
		initErr = errors.WithStack(multierr.Combine(errs...))
	})
	return initErr
}
