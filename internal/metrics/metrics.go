package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mikey-austin/shoko_nav/internal/ports"
)

// Router metrics
var (
	RoutesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoko_nav_routes_total",
			Help: "Total number of route invocations",
		},
		[]string{"route", "ok"},
	)

	RouteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shoko_nav_route_duration_seconds",
			Help:    "Route invocation duration in seconds, catalog calls included",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route"},
	)

	ItemErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoko_nav_item_errors_total",
			Help: "Total number of menu items skipped because they could not be built",
		},
		[]string{"kind"},
	)
)

// Playback metrics
var (
	PlayDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoko_nav_play_dispatch_total",
			Help: "Total number of files handed to the player",
		},
		[]string{"resume"},
	)
)

// Catalog metrics
var (
	CatalogRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoko_nav_catalog_requests_total",
			Help: "Total number of catalog server requests",
		},
		[]string{"endpoint", "status"},
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shoko_nav_catalog_request_duration_seconds",
			Help:    "Catalog server request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoko_nav_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

// Embedded broker metrics
var (
	BrokerClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shoko_nav_broker_clients",
			Help: "Clients currently connected to the embedded broker",
		},
	)

	BrokerMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoko_nav_broker_messages_total",
			Help: "Messages published through the embedded broker by nav topic kind",
		},
		[]string{"kind"},
	)
)

// routerObserver implements ports.Metrics with the collectors above.
type routerObserver struct{}

// NewRouterObserver returns an observer recording router activity.
func NewRouterObserver() ports.Metrics {
	return &routerObserver{}
}

func (o *routerObserver) ObserveRoute(route string, ok bool, seconds float64) {
	RoutesTotal.WithLabelValues(route, strconv.FormatBool(ok)).Inc()
	RouteDuration.WithLabelValues(route).Observe(seconds)
}

func (o *routerObserver) ItemError(kind string) {
	ItemErrorsTotal.WithLabelValues(kind).Inc()
}

func (o *routerObserver) PlayDispatched(resume bool) {
	PlayDispatchTotal.WithLabelValues(strconv.FormatBool(resume)).Inc()
}

// ObserveCatalog records one catalog request.
func ObserveCatalog(endpoint string, status int, seconds float64) {
	CatalogRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	CatalogRequestDuration.WithLabelValues(endpoint).Observe(seconds)
}
