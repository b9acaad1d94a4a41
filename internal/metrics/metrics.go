package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soundrig_commands_enqueued_total",
		Help: "Total number of commands placed on the engine inbox.",
	})

	CommandsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soundrig_commands_dropped_total",
		Help: "Total number of commands rejected due to a full inbox.",
	})

	TriggersFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soundrig_trigger_firings_total",
		Help: "Trigger firing attempts, labelled by outcome (executed, throttled, filtered, disabled).",
	}, []string{"outcome"})

	ActionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soundrig_actions_executed_total",
		Help: "Total number of actions executed, labelled by type and status.",
	}, []string{"action_type", "status"})

	CustomEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soundrig_custom_events_published_total",
		Help: "Custom event publishes, labelled by result (delivered, duplicate, error).",
	}, []string{"result"})

	VoicesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soundrig_voices_started_total",
		Help: "Voices started, labelled by bus.",
	}, []string{"bus"})

	VoicesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soundrig_voices_rejected_total",
		Help: "Voices refused or evicted by a bus voice limit, labelled by bus and reason.",
	}, []string{"bus", "reason"})

	ActiveVoices = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soundrig_active_voices",
		Help: "Voices currently playing.",
	})

	DuckCutDb = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soundrig_duck_cut_db",
		Help: "Current music attenuation applied by ducking, in dB.",
	})

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "soundrig_tick_duration_ms",
		Help:    "Time spent draining the inbox and advancing one frame, in milliseconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soundrig_queue_utilization_ratio",
		Help: "Current command inbox utilization (0–1).",
	})
)

const unrouted = "none"

// BusLabel returns the label value for a bus name, mapping "" to "none".
func BusLabel(name string) string {
	if name == "" {
		return unrouted
	}
	return name
}
