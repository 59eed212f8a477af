package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total status HTTP requests.",
		},
		[]string{"device", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scoreboard",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Status HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"device", "method", "path", "status"},
	)
	buttonEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "input",
			Name:      "button_events_total",
			Help:      "Button edges by debounce outcome.",
		},
		[]string{"button", "outcome"},
	)
	queueDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "input",
			Name:      "queue_drops_total",
			Help:      "Button edges dropped because the event queue was full.",
		},
		[]string{"button"},
	)
	remoteUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "stream",
			Name:      "remote_updates_total",
			Help:      "Decoded remote updates by kind and whether they were applied.",
		},
		[]string{"kind", "applied"},
	)
	droppedFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "stream",
			Name:      "dropped_frames_total",
			Help:      "Inbound frames dropped without mutating state.",
		},
		[]string{"reason"},
	)
	streamSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "stream",
			Name:      "sessions_total",
			Help:      "Stream connection lifecycle events.",
		},
		[]string{"outcome"},
	)
	publishRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "publish",
			Name:      "requests_total",
			Help:      "Score publish attempts by sink.",
		},
		[]string{"sink", "success"},
	)
	publishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scoreboard",
			Subsystem: "publish",
			Name:      "request_duration_seconds",
			Help:      "Score publish duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"sink", "success"},
	)
	displayFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "display",
			Name:      "frames_total",
			Help:      "Full 4-digit frames rendered.",
		},
	)
	displayOverruns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "display",
			Name:      "overruns_total",
			Help:      "Frames that finished after their period boundary.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			buttonEvents,
			queueDrops,
			remoteUpdates,
			droppedFrames,
			streamSessions,
			publishRequests,
			publishDuration,
			displayFrames,
			displayOverruns,
		)
	})
}

func RecordHTTPRequest(device, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(device, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(device, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordButtonEvent outcome is one of confirmed, bounce, coalesced.
func RecordButtonEvent(button, outcome string) {
	RegisterMetrics()
	buttonEvents.WithLabelValues(button, outcome).Inc()
}

// RecordQueueDrop is called from the edge callback and must stay allocation-light.
func RecordQueueDrop(button string) {
	RegisterMetrics()
	queueDrops.WithLabelValues(button).Inc()
}

func RecordRemoteUpdate(kind string, applied bool) {
	RegisterMetrics()
	remoteUpdates.WithLabelValues(kind, strconv.FormatBool(applied)).Inc()
}

func RecordDroppedFrame(reason string) {
	RegisterMetrics()
	droppedFrames.WithLabelValues(reason).Inc()
}

// RecordStreamSession outcome is one of connected, dial_failed, lost.
func RecordStreamSession(outcome string) {
	RegisterMetrics()
	streamSessions.WithLabelValues(outcome).Inc()
}

func RecordPublish(sink string, duration time.Duration, success bool) {
	RegisterMetrics()
	successLabel := strconv.FormatBool(success)
	publishRequests.WithLabelValues(sink, successLabel).Inc()
	publishDuration.WithLabelValues(sink, successLabel).Observe(duration.Seconds())
}

func RecordDisplayFrame(overrun bool) {
	RegisterMetrics()
	displayFrames.Inc()
	if overrun {
		displayOverruns.Inc()
	}
}
