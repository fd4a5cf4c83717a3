// Package metrics exports Prometheus metrics about device walks.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/audiotopo/internal/events"
)

// Walk results.
const (
	ResultOK          = "ok"
	ResultDiagnostics = "diagnostics"
	ResultCancelled   = "cancelled"
)

var (
	walksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiotopo",
		Subsystem: "inspector",
		Name:      "walks_total",
		Help:      "Device walks by data flow and result",
	}, []string{"data_flow", "result"})

	diagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiotopo",
		Subsystem: "inspector",
		Name:      "diagnostics_total",
		Help:      "Diagnostics recorded during walks, by code",
	}, []string{"code"})

	walkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "audiotopo",
		Subsystem: "inspector",
		Name:      "walk_duration_seconds",
		Help:      "Duration of one device walk",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"data_flow"})

	deviceNodes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "audiotopo",
		Subsystem: "device",
		Name:      "nodes",
		Help:      "Topology nodes visited in the last walk of a device",
	}, []string{"device_id"})

	deviceConnectors = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "audiotopo",
		Subsystem: "device",
		Name:      "connectors",
		Help:      "Connector nodes visited in the last walk of a device",
	}, []string{"device_id"})

	catalogReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiotopo",
		Subsystem: "catalog",
		Name:      "reloads_total",
		Help:      "Catalog reloads by result",
	}, []string{"result"})
)

// ObserveWalk records one finished device walk.
func ObserveWalk(e events.DeviceInspectedEvent) {
	result := ResultOK
	switch {
	case e.Cancelled:
		result = ResultCancelled
	case e.Diagnostics > 0:
		result = ResultDiagnostics
	}
	walksTotal.WithLabelValues(e.DataFlow, result).Inc()
	walkDuration.WithLabelValues(e.DataFlow).Observe(e.DurationMs / 1000)
	deviceNodes.WithLabelValues(e.DeviceID).Set(float64(e.Nodes))
	deviceConnectors.WithLabelValues(e.DeviceID).Set(float64(e.Connectors))
}

// ObserveDiagnostic counts one diagnostic.
func ObserveDiagnostic(e events.DiagnosticEvent) {
	diagnosticsTotal.WithLabelValues(e.Code).Inc()
}

// ObserveReload counts one catalog reload attempt.
func ObserveReload(e events.CatalogReloadedEvent) {
	result := "ok"
	if e.Error != "" {
		result = "error"
	}
	catalogReloads.WithLabelValues(result).Inc()
}

// DeleteDevice removes the per-device gauges, for devices that left the catalog.
func DeleteDevice(deviceID string) {
	deviceNodes.DeleteLabelValues(deviceID)
	deviceConnectors.DeleteLabelValues(deviceID)
}

// Subscribe feeds inspection events from bus into the collectors. It returns a function
// that removes the subscriptions.
func Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(ObserveWalk),
		bus.Subscribe(ObserveDiagnostic),
		bus.Subscribe(ObserveReload),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// HTTPHandler returns the Prometheus metrics HTTP handler.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}
