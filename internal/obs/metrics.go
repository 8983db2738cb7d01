package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveSessions         = promauto.NewGauge(prometheus.GaugeOpts{Name: "portbridge_active_sessions", Help: "Currently relaying sessions"})
	SessionsTotal          = promauto.NewCounter(prometheus.CounterOpts{Name: "portbridge_sessions_total", Help: "Sessions established"})
	DialFailuresTotal      = promauto.NewCounter(prometheus.CounterOpts{Name: "portbridge_dial_failures_total", Help: "Outbound connects to the remote that failed"})
	AcceptErrorsTotal      = promauto.NewCounter(prometheus.CounterOpts{Name: "portbridge_accept_errors_total", Help: "Transient accept loop errors"})
	AcceptRejectedTotal    = promauto.NewCounter(prometheus.CounterOpts{Name: "portbridge_accept_rejected_total", Help: "Connections dropped by the accept rate limiter"})
	BytesRelayedTotal      = promauto.NewCounterVec(prometheus.CounterOpts{Name: "portbridge_bytes_relayed_total", Help: "Bytes relayed by direction"}, []string{"direction"})
	SessionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{Name: "portbridge_session_duration_seconds", Help: "Session lifetime seconds", Buckets: prometheus.ExponentialBuckets(0.01, 2, 16)})
)
