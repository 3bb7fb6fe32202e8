// Package telemetry holds the prometheus metrics of the order-book service.
// All collectors are registered with the default registry on import and
// served by the API server at /metrics.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	// arcade_book_refresh_total
	//
	// counter of book refreshes per market
	//
	// Has the following labels:
	// * market - the market application id
	// * source - where the book came from (indexer, api)
	BookRefreshMetricName = "arcade_book_refresh_total"

	// arcade_book_refresh_error_total
	//
	// counter of failed book refreshes per market
	//
	// Has the following labels:
	// * market - the market application id
	// * source - the source that failed
	BookRefreshErrorMetricName = "arcade_book_refresh_error_total"

	// arcade_book_refresh_duration_seconds
	//
	// histogram of the time spent building one book
	BookRefreshDurationMetricName = "arcade_book_refresh_duration_seconds"

	// arcade_global_state_dropped_entries_total
	//
	// counter of global-state entries skipped by the decoder (bad base64 key,
	// unknown value type, undecodable bytes)
	GlobalStateDroppedMetricName = "arcade_global_state_dropped_entries_total"

	// arcade_book_orders_decoded
	//
	// gauge of order applications decoded in the last indexer snapshot
	//
	// Has the following labels:
	// * market - the market application id
	OrdersDecodedMetricName = "arcade_book_orders_decoded"

	// arcade_market_api_cache_hit_total
	//
	// counter of market API responses served from cache
	MarketAPICacheHitMetricName = "arcade_market_api_cache_hit_total"

	BookRefreshCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: BookRefreshMetricName,
			Help: "counter of order book refreshes per market and source",
		},
		[]string{"market", "source"},
	)

	BookRefreshErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: BookRefreshErrorMetricName,
			Help: "counter of failed order book refreshes per market and source",
		},
		[]string{"market", "source"},
	)

	BookRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    BookRefreshDurationMetricName,
			Help:    "time spent fetching and composing one order book",
			Buckets: prometheus.DefBuckets,
		},
	)

	GlobalStateDroppedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: GlobalStateDroppedMetricName,
			Help: "counter of global state entries dropped while decoding",
		},
	)

	OrdersDecodedGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: OrdersDecodedMetricName,
			Help: "number of order applications decoded in the last indexer snapshot",
		},
		[]string{"market"},
	)

	MarketAPICacheHitCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: MarketAPICacheHitMetricName,
			Help: "counter of market API responses served from the local cache",
		},
	)
)

func init() {
	prometheus.MustRegister(BookRefreshCounter)
	prometheus.MustRegister(BookRefreshErrorCounter)
	prometheus.MustRegister(BookRefreshDuration)
	prometheus.MustRegister(GlobalStateDroppedCounter)
	prometheus.MustRegister(OrdersDecodedGauge)
	prometheus.MustRegister(MarketAPICacheHitCounter)
}
