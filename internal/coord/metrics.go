package coord

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "jobs",
			Name:      "terminal_total",
			Help:      "Jobs reaching a terminal state, by outcome",
		},
		[]string{"model", "outcome"},
	)

	admissionRejectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "gate",
			Name:      "admission_rejects_total",
			Help:      "Jobs failed with Overloaded after exhausting admission retries",
		},
		[]string{"model"},
	)

	gateInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "inferd",
			Subsystem: "gate",
			Name:      "inflight",
			Help:      "Engine calls currently holding a permit",
		},
		[]string{"model"},
	)

	warmupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "readiness",
			Name:      "warmups_total",
			Help:      "Completed model loads, by outcome",
		},
		[]string{"model", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(jobsTotal, admissionRejectsTotal, gateInflight, warmupsTotal)
}
