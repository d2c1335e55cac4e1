// Package metrics exposes the sandbox's Prometheus collectors. Collectors
// are registered with the default registry at init so that any binary
// embedding the managers can serve them with promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Network lifecycle metrics
var (
	NetworksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sandbox_networks_created_total",
		Help: "Total number of sandbox networks created",
	})

	NetworksDestroyed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sandbox_networks_destroyed_total",
		Help: "Total number of sandbox networks destroyed",
	})

	NetworkStartupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sandbox_network_startup_failures_total",
		Help: "Total number of chain processes that failed to reach readiness",
	})

	NetworkStartupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sandbox_network_startup_duration_seconds",
		Help:    "Time taken for a local chain process to report readiness",
		Buckets: prometheus.DefBuckets,
	})
)

// Contract pipeline metrics
var (
	ContractsCompiled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sandbox_contracts_compiled_total",
		Help: "Total number of compiler toolchain invocations",
	})

	CompileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sandbox_compile_cache_hits_total",
		Help: "Total number of compilations served from the artifact cache",
	})

	Deployments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandbox_deployments_total",
			Help: "Total number of contract deployments by outcome",
		},
		[]string{"status"},
	)

	DeployDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sandbox_deploy_duration_seconds",
		Help:    "Time taken to deploy a contract end to end",
		Buckets: prometheus.DefBuckets,
	})

	SecurityFindings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandbox_security_findings_total",
			Help: "Total number of security heuristics findings by severity",
		},
		[]string{"severity"},
	)
)
