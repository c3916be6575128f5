package obs

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics groups Prometheus collectors for HTTP observability.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPMetrics registers and returns HTTP metrics collectors.
func NewHTTPMetrics(namespace string, buckets []float64, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(buckets) == 0 {
		buckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}
	} else {
		sort.Float64s(buckets)
	}
	m := &HTTPMetrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency distribution in milliseconds.",
			Buckets:   buckets,
		}, []string{"method", "route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
	}
	register(reg, &m.ReqTotal)
	register(reg, &m.ReqDur)
	register(reg, &m.InFlight)
	return m
}

// QuoteMetrics counts quote outcomes, applied discounts by kind and cache lookups.
type QuoteMetrics struct {
	Requests  *prometheus.CounterVec
	Discounts *prometheus.CounterVec
	Cache     *prometheus.CounterVec
}

// NewQuoteMetrics registers and returns the quote collectors.
func NewQuoteMetrics(namespace string, reg prometheus.Registerer) *QuoteMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &QuoteMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_requests_total",
			Help:      "Count of quote calculations by outcome.",
		}, []string{"result"}),
		Discounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discounts_applied_total",
			Help:      "Count of discount tokens applied, by kind.",
		}, []string{"kind"}),
		Cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_cache_total",
			Help:      "Quote cache lookups by result.",
		}, []string{"result"}),
	}
	register(reg, &m.Requests)
	register(reg, &m.Discounts)
	register(reg, &m.Cache)
	return m
}

// ObserveQuote records one quote outcome. Nil receivers are ignored.
func (m *QuoteMetrics) ObserveQuote(result string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(result).Inc()
}

// ObserveDiscount records one applied discount of the given kind.
func (m *QuoteMetrics) ObserveDiscount(kind string) {
	if m == nil {
		return
	}
	m.Discounts.WithLabelValues(kind).Inc()
}

// ObserveCache records a cache lookup result (hit, miss or error).
func (m *QuoteMetrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.Cache.WithLabelValues(result).Inc()
}

// ParseBucketsCSV converts a comma-separated list of bucket boundaries (milliseconds) into floats.
func ParseBucketsCSV(csv string) []float64 {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || v <= 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

// DurationMillis converts a duration to milliseconds for metric observation.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// register adds c to reg, reusing an identical collector that is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c *C) {
	err := reg.Register(*c)
	if err == nil {
		return
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			*c = existing
		}
		return
	}
	panic(fmt.Errorf("register collector: %w", err))
}
