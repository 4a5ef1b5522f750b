package metrics

import (
	"net/http"

	"github.com/ErlanBelekov/authgate/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Auth flow metrics

	AuthAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authgate",
		Name:      "auth_attempts_total",
		Help:      "Login and registration attempts, by operation and outcome.",
	}, []string{"operation", "outcome"})

	TokenVerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authgate",
		Name:      "token_verifications_total",
		Help:      "Bearer token checks performed by the authorization gate.",
	}, []string{"result"})

	PasswordHashDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "authgate",
		Name:      "password_hash_duration_seconds",
		Help:      "Time spent in bcrypt per call.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"op"})

	// Rate limiting

	RateLimitRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "authgate",
		Name:      "rate_limit_rejected_total",
		Help:      "Requests rejected by the rate limiter.",
	})

	RateLimitStoreErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "authgate",
		Name:      "rate_limit_store_errors_total",
		Help:      "Rate limiter store failures (requests were let through).",
	})

	// Maintenance

	UsersPurgedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "authgate",
		Name:      "users_purged_total",
		Help:      "Soft-deleted users permanently removed by the purger.",
	})

	PurgeCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "authgate",
		Name:      "purge_cycle_duration_seconds",
		Help:      "Time taken for one purge cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "authgate",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authgate",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})

	HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "authgate",
		Name:      "http_requests_in_flight",
		Help:      "Requests currently being served.",
	})
)

func Register() {
	prometheus.MustRegister(
		AuthAttemptsTotal,
		TokenVerificationsTotal,
		PasswordHashDuration,
		RateLimitRejectedTotal,
		RateLimitStoreErrorsTotal,
		UsersPurgedTotal,
		PurgeCycleDuration,
		HTTPRequestDuration,
		HTTPRequestsTotal,
		HTTPRequestsInFlight,
	)
}

// NewServer serves /metrics plus liveness and readiness probes backed by checker.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		health.WriteJSON(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		health.WriteJSON(w, checker.Readiness(r.Context()))
	})
	return &http.Server{Addr: addr, Handler: mux}
}
