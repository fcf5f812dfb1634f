package metrics

import (
	"fmt"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Store struct {
	Prometheus         *prometheus.Registry
	BuildInfo          prometheus.Counter
	RpcCalls           *prometheus.CounterVec
	ExpectationsLoaded *prometheus.CounterVec
	ContainerStarts    *prometheus.CounterVec
	SummaryHandlers    *prometheus.HistogramVec
}

const Status = `status`
const Channel = `channel`
const Method = `method`

const StatusOk = `Ok`
const StatusFail = `Fail`

var Commit string

func New(promRegistry *prometheus.Registry, prefix, appName, env string) *Store {
	factory := promauto.With(promRegistry)

	return &Store{
		Prometheus: promRegistry,
		BuildInfo: factory.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_metric_build_info", prefix),
			Help: "Build information",
			ConstLabels: prometheus.Labels{
				"name":    appName,
				"env":     env,
				"commit":  Commit,
				"version": runtime.Version(),
			},
		}),
		RpcCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_rpc_calls_total", prefix),
			Help: "The total number of JSON-RPC calls sent to the mock endpoint",
		}, []string{Method, Status}),
		ExpectationsLoaded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_expectations_loaded_total", prefix),
			Help: "The total number of expectation loads sent to MockServer",
		}, []string{Status}),
		ContainerStarts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_container_starts_total", prefix),
			Help: "The total number of MockServer container starts",
		}, []string{Status}),
		SummaryHandlers: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_request_processing_seconds", prefix),
			Help:    "Time spent processing request to MockServer",
			Buckets: prometheus.DefBuckets,
		}, []string{Channel}),
	}
}
