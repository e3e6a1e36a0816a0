package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register;
// the helpers below no-op until then.
var (
	regOK atomic.Bool

	consoleStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consolr",
			Subsystem: "console",
			Name:      "starts_total",
			Help:      "Number of successful console spawns.",
		}, []string{"console"},
	)
	consoleStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consolr",
			Subsystem: "console",
			Name:      "stops_total",
			Help:      "Number of console exits (graceful, kill, or self).",
		}, []string{"console"},
	)
	liveConsoles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "consolr",
			Subsystem: "console",
			Name:      "live",
			Help:      "Current number of live consoles.",
		},
	)
	historyLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consolr",
			Subsystem: "console",
			Name:      "history_lines_total",
			Help:      "Lines appended to console history rings.",
		}, []string{"console"},
	)
	subscribers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "consolr",
			Subsystem: "broadcast",
			Name:      "subscribers",
			Help:      "Currently attached subscribers per console.",
		}, []string{"console"},
	)
	deliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consolr",
			Subsystem: "broadcast",
			Name:      "delivery_failures_total",
			Help:      "Subscriber pushes that failed and caused a detach.",
		}, []string{"console"},
	)
)

// Register registers all collectors with r. Safe to call multiple times.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{consoleStarts, consoleStops, liveConsoles, historyLines, subscribers, deliveryFailures}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// RegisterDefault registers with the default prometheus registry.
func RegisterDefault() error { return Register(prometheus.DefaultRegisterer) }

// Handler serves the default gatherer; the caller wires the route.
func Handler() http.Handler { return promhttp.Handler() }

func IncStart(console string) {
	if regOK.Load() {
		consoleStarts.WithLabelValues(console).Inc()
	}
}

func IncStop(console string) {
	if regOK.Load() {
		consoleStops.WithLabelValues(console).Inc()
	}
}

func AddLiveConsoles(delta int) {
	if regOK.Load() {
		liveConsoles.Add(float64(delta))
	}
}

func IncHistoryLines(console string) {
	if regOK.Load() {
		historyLines.WithLabelValues(console).Inc()
	}
}

func SetSubscribers(console string, n int) {
	if regOK.Load() {
		subscribers.WithLabelValues(console).Set(float64(n))
	}
}

func IncDeliveryFailure(console string) {
	if regOK.Load() {
		deliveryFailures.WithLabelValues(console).Inc()
	}
}
