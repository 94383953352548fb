package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	Pairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rent_scrooper", Name: "pairs_total", Help: "Validated bed/price pairs by discovery method."},
		[]string{"method"}, // structured|unit|inline|fallback
	)
	PriceRejections = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "rent_scrooper", Name: "price_rejections_total", Help: "Price candidates rejected as noise."},
	)
	AccessorFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rent_scrooper", Name: "accessor_failures_total", Help: "Failed or timed out accessor calls."},
		[]string{"op"},
	)
	Listings = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rent_scrooper", Name: "listings_total", Help: "Listing blocks processed."},
		[]string{"outcome"}, // extracted|unnamed|empty|failed
	)
	RecordsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rent_scrooper", Name: "records_written_total", Help: "Records handed to sinks."},
		[]string{"sink"},
	)
	PageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rent_scrooper", Name: "page_duration_seconds",
			Help:    "Time spent extracting one listing page.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"site"},
	)
)

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(Pairs, PriceRejections, AccessorFailures, Listings, RecordsWritten, PageDuration)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr in the background. Empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func ObservePage(site string, dur time.Duration) {
	PageDuration.WithLabelValues(site).Observe(dur.Seconds())
}
