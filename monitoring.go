package league

import (
	"net/http"
	"runtime/debug"

	"github.com/getsentry/raven-go"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	panicHandler = middleware.Recoverer

	defaultPanicCapture = func(fn func()) {
		defer func() {
			if r := recover(); r != nil {
				logrus.Errorf("recovered from panic: %v\n\n%s", r, string(debug.Stack()))
			}
		}()

		fn()
	}

	panicCapture = defaultPanicCapture

	prometheusMonitoringHandler = http.NotFoundHandler

	prometheusMonitoringWrapper = func(next http.Handler) http.Handler {
		return next
	}
)

// InitMonitoring turns on sentry panic capture (if a DSN is given) and prometheus metrics.
func InitMonitoring(conf MonitoringConfig) {
	if conf.SentryDSN != "" {
		logrus.Infof("initialising Raven monitoring")
		err := raven.SetDSN(conf.SentryDSN)

		if err != nil {
			logrus.WithError(err).Error("could not initialise raven monitoring")
		} else {
			raven.SetRelease(BuildVersion)

			panicHandler = raven.Recoverer
			panicCapture = func(fn func()) {
				raven.CapturePanic(fn, nil)
			}
		}
	}

	logrus.Infof("initialising Prometheus Monitoring")
	prometheus.MustRegister(HTTPInFlightGauge, HTTPCounter, HTTPDuration, HTTPResponseSize, apiInFlightRequests, apiRequestCounter, apiRequestDuration, snapshotFallbackCounter)
	prometheusMonitoringHandler = promhttp.Handler
	prometheusMonitoringWrapper = func(next http.Handler) http.Handler {
		return promhttp.InstrumentHandlerInFlight(HTTPInFlightGauge,
			promhttp.InstrumentHandlerDuration(HTTPDuration.MustCurryWith(prometheus.Labels{"handler": "league"}),
				promhttp.InstrumentHandlerCounter(HTTPCounter,
					promhttp.InstrumentHandlerResponseSize(HTTPResponseSize, next),
				),
			),
		)
	}
}

// capturePanics runs fn, reporting (not propagating) a panic.
func capturePanics(fn func()) {
	panicCapture(fn)
}

var apiInFlightRequests = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "league_api_in_flight_requests",
	Help: "A gauge of in-flight requests to the league API.",
})

var apiRequestCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "league_api_requests_total",
		Help: "A counter for requests to the league API.",
	},
	[]string{"code", "method"},
)

var apiRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "league_api_request_duration_seconds",
		Help:    "A histogram of league API request latencies.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{},
)

var snapshotFallbackCounter = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "league_snapshot_fallbacks_total",
	Help: "How many times a cached snapshot was served because the league API failed.",
})

// RoundTripper instruments requests to the league API.
func RoundTripper(t http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperInFlight(apiInFlightRequests,
		promhttp.InstrumentRoundTripperCounter(apiRequestCounter,
			promhttp.InstrumentRoundTripperDuration(apiRequestDuration, t),
		),
	)
}

var HTTPInFlightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "in_flight_requests",
	Help: "A gauge of requests currently being served by the wrapped handler.",
})

var HTTPCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "web_requests_total",
		Help: "A counter for requests to the wrapped handler.",
	},
	[]string{"code", "method"},
)

// HTTPDuration is partitioned by the HTTP method and handler. It uses custom
// buckets based on the expected request duration.
var HTTPDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "request_duration_seconds",
		Help:    "A histogram of latencies for requests.",
		Buckets: []float64{.25, .5, 1, 2.5, 5, 10},
	},
	[]string{"handler", "method"},
)

// HTTPResponseSize has no labels, making it a zero-dimensional
// ObserverVec.
var HTTPResponseSize = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "response_size_bytes",
		Help:    "A histogram of response sizes for requests.",
		Buckets: []float64{200, 500, 900, 1500},
	},
	[]string{},
)
