// Package metrics defines and registers all custom Prometheus metrics for the
// comment service. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics register with the default Prometheus registry at package init; the
// router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "indiecomments"

// DomainChecksTotal counts api-key/origin authorization decisions.
// Label:
//   - result: "allowed", "denied", or "error" (lookup failure, denied closed)
var DomainChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "domain_checks_total",
		Help:      "Total number of domain authorization checks, by result.",
	},
	[]string{"result"},
)

// ProxyRequestsTotal counts requests forwarded through the gateway.
// Labels:
//   - resource: upstream resource (comments, sites, users)
//   - method: HTTP method of the inbound request
//   - caller: "api_key" or "session"
var ProxyRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "proxy_requests_total",
		Help:      "Total number of requests forwarded to the upstream store.",
	},
	[]string{"resource", "method", "caller"},
)

// ProxyErrorsTotal counts gateway requests that were not forwarded or whose
// upstream call failed.
// Label:
//   - reason: short failure description (e.g. "unauthorized_domain",
//     "missing_credentials", "forbidden", "upstream_unreachable")
var ProxyErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "proxy_errors_total",
		Help:      "Total number of gateway requests that failed.",
	},
	[]string{"reason"},
)

// UpstreamRequestDuration measures the latency of upstream store calls made
// on behalf of proxied requests.
// Label:
//   - method: HTTP method of the upstream call
var UpstreamRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Duration of upstream store calls made by the proxy gateway.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"method"},
)
