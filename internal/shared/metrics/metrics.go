package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "route"},
	)

	storeOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_store_operations_total",
			Help: "Gallery store operations by outcome",
		},
		[]string{"entity", "operation", "status"},
	)

	uploadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gallery_upload_bytes_total",
		Help: "Bytes of image payload accepted",
	})

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_cache_lookups_total",
			Help: "Read cache lookups",
		},
		[]string{"cache", "result"},
	)

	payloadsReleased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_payloads_released_total",
			Help: "Object payloads removed from storage",
		},
		[]string{"path"}, // inline, queued, sweep
	)

	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gallery_websocket_clients",
		Help: "Connected change feed clients",
	})

	dbPoolAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gallery_db_pool_acquired_conns",
		Help: "Acquired PostgreSQL connections",
	})

	dbPoolIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gallery_db_pool_idle_conns",
		Help: "Idle PostgreSQL connections",
	})

	dbPoolAcquireWait = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gallery_db_pool_avg_acquire_seconds",
		Help: "Average time spent waiting for a PostgreSQL connection",
	})
)

// RecordOperation counts a store operation; err decides the status label.
func RecordOperation(entity, operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	storeOperations.WithLabelValues(entity, operation, status).Inc()
}

func RecordUpload(bytes int64) {
	uploadBytes.Add(float64(bytes))
}

func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(cache, result).Inc()
}

func RecordPayloadsReleased(path string, n int) {
	payloadsReleased.WithLabelValues(path).Add(float64(n))
}

func SetDBPool(acquired, idle int32, avgAcquire time.Duration) {
	dbPoolAcquired.Set(float64(acquired))
	dbPoolIdle.Set(float64(idle))
	dbPoolAcquireWait.Set(avgAcquire.Seconds())
}
