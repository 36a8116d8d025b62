package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_requests_total",
			Help: "Total HTTP requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "promo_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "promo_in_flight",
		Help: "In-flight HTTP requests",
	})
	AdmissionRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_admission_rejections_total",
			Help: "Mutations rejected by the admission controller, by cap",
		}, []string{"code"},
	)
	EligibleGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "promo_eligible_current",
		Help: "Promotions eligible at the last storefront read",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal, Latency, InFlight, AdmissionRejections, EligibleGauge)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
	})
}
