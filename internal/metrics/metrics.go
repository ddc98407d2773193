package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SyncEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energymon_sync_events_total",
			Help: "Sync events by entity, action and outcome",
		},
		[]string{"entity", "action", "result"}, // applied|skipped|error|poison
	)

	DispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energymon_dispatched_total",
			Help: "Measurements forwarded by the balancer, per replica queue",
		},
		[]string{"queue"},
	)

	MeasurementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energymon_measurements_total",
			Help: "Measurement lifecycle counter by stage",
		},
		[]string{"stage"}, // aggregated|error|poison
	)

	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energymon_alerts_total",
			Help: "Threshold alerts by outcome",
		},
		[]string{"result"}, // published|suppressed|error
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		SyncEventsTotal,
		DispatchedTotal,
		MeasurementsTotal,
		AlertsTotal,
	)
}
