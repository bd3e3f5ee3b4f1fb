// Package metrics exposes Prometheus counters/gauges for the connection
// lifecycle, the two hubs, the timer wheel, and RPC dialing, plus /metrics
// and /ready HTTP endpoints. This observability is carried regardless of
// which features are in scope elsewhere (admission control and flow
// control may be minimal, but observing them is not).
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/nodefleet/hubcore/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus series.
var (
	ConnAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conn_accepted_total",
		Help: "Total connections accepted, by service type.",
	}, []string{"service"})
	ConnHandshakeFail = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conn_handshake_fail_total",
		Help: "Total connections that failed their transport handshake (TLS/WebSocket upgrade).",
	}, []string{"service"})
	ConnConnected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conn_connected_total",
		Help: "Total connections that completed handshake and were registered.",
	}, []string{"service"})
	ConnDisconnected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conn_disconnected_total",
		Help: "Total connections that reached SocketClosed.",
	}, []string{"service"})
	ConnActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "conn_active",
		Help: "Current live connections held in a hub's registry.",
	}, []string{"registry"})

	HubIngressDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hub_ingress_dropped_total",
		Help: "Total inbound envelopes dropped because a hub's ingress channel was full (drop-on-full backpressure policy).",
	}, []string{"hub"})
	HubEgressDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hub_egress_dropped_total",
		Help: "Total outbound envelopes dropped because a per-connection channel was full.",
	}, []string{"hub"})
	ConnReject = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conn_reject_total",
		Help: "Total accepted connections closed because shutdown began while they waited for an admission permit.",
	}, []string{"service"})

	RPCDialAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rpc_dial_attempts_total",
		Help: "Total outbound RPC dials initiated by RpcClientHub.",
	})
	RPCDialSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rpc_dial_success_total",
		Help: "Total outbound RPC dials that completed and registered a connection.",
	})
	RPCDialFailure = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rpc_dial_failure_total",
		Help: "Total outbound RPC dials that failed.",
	})
	RPCPendingDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rpc_pending_depth",
		Help: "Current buffered-message count per destination host_id awaiting dial completion.",
	}, []string{"host_id"})
	RPCPendingDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rpc_pending_dropped_total",
		Help: "Total buffered RPC messages dropped because a destination's pending buffer hit its cap.",
	})

	TimerFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timer_fired_total",
		Help: "Total timer ids returned by TimerState.Update across all hubs.",
	})
	TimerRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timer_rejected_total",
		Help: "Total add_timer calls rejected by the fps guard or negative arguments.",
	})

	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrFraming   = "framing"
	ErrCodec     = "codec"
	ErrConnRead  = "conn_read"
	ErrConnWrite = "conn_write"
	ErrListen    = "listen"
	ErrAccept    = "accept"
	ErrHandshake = "handshake"
	ErrDial      = "dial"
	ErrConfig    = "config"
	ErrContext   = "context"
)

// StartHTTP serves Prometheus metrics at /metrics and readiness at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters, cheap to snapshot for periodic log-based
// observability on deployments that don't scrape Prometheus.
var (
	localAccepted    uint64
	localConnected   uint64
	localDisconn     uint64
	localHandshakeNG uint64
	localIngressDrop uint64
	localEgressDrop  uint64
	localDialAttempt uint64
	localDialSuccess uint64
	localDialFailure uint64
	localTimerFired  uint64
	localErrors      uint64
)

// Snapshot is a cheap copy of the local counters.
type Snapshot struct {
	Accepted        uint64
	Connected       uint64
	Disconnected    uint64
	HandshakeFail   uint64
	HubIngressDrops uint64
	HubEgressDrops  uint64
	RPCDialAttempts uint64
	RPCDialSuccess  uint64
	RPCDialFailure  uint64
	TimerFired      uint64
	Errors          uint64
}

func Snap() Snapshot {
	return Snapshot{
		Accepted:        atomic.LoadUint64(&localAccepted),
		Connected:       atomic.LoadUint64(&localConnected),
		Disconnected:    atomic.LoadUint64(&localDisconn),
		HandshakeFail:   atomic.LoadUint64(&localHandshakeNG),
		HubIngressDrops: atomic.LoadUint64(&localIngressDrop),
		HubEgressDrops:  atomic.LoadUint64(&localEgressDrop),
		RPCDialAttempts: atomic.LoadUint64(&localDialAttempt),
		RPCDialSuccess:  atomic.LoadUint64(&localDialSuccess),
		RPCDialFailure:  atomic.LoadUint64(&localDialFailure),
		TimerFired:      atomic.LoadUint64(&localTimerFired),
		Errors:          atomic.LoadUint64(&localErrors),
	}
}

func IncAccepted(service string) {
	ConnAccepted.WithLabelValues(service).Inc()
	atomic.AddUint64(&localAccepted, 1)
}

func IncHandshakeFail(service string) {
	ConnHandshakeFail.WithLabelValues(service).Inc()
	atomic.AddUint64(&localHandshakeNG, 1)
}

func IncConnected(service string) {
	ConnConnected.WithLabelValues(service).Inc()
	atomic.AddUint64(&localConnected, 1)
}

func IncDisconnected(service string) {
	ConnDisconnected.WithLabelValues(service).Inc()
	atomic.AddUint64(&localDisconn, 1)
}

func SetActive(registry string, n int) { ConnActive.WithLabelValues(registry).Set(float64(n)) }

func IncReject(service string) { ConnReject.WithLabelValues(service).Inc() }

func IncIngressDrop(hub string) {
	HubIngressDropped.WithLabelValues(hub).Inc()
	atomic.AddUint64(&localIngressDrop, 1)
}

func IncEgressDrop(hub string) {
	HubEgressDropped.WithLabelValues(hub).Inc()
	atomic.AddUint64(&localEgressDrop, 1)
}

func IncDialAttempt() {
	RPCDialAttempts.Inc()
	atomic.AddUint64(&localDialAttempt, 1)
}

func IncDialSuccess() {
	RPCDialSuccess.Inc()
	atomic.AddUint64(&localDialSuccess, 1)
}

func IncDialFailure() {
	RPCDialFailure.Inc()
	atomic.AddUint64(&localDialFailure, 1)
}

func SetPendingDepth(hostID string, n int) { RPCPendingDepth.WithLabelValues(hostID).Set(float64(n)) }

func IncPendingDropped() { RPCPendingDropped.Inc() }

func AddTimerFired(n int) {
	TimerFired.Add(float64(n))
	atomic.AddUint64(&localTimerFired, uint64(n))
}

func IncTimerRejected() { TimerRejected.Inc() }

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge and pre-registers error label
// series so the first real error doesn't pay first-observation latency.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{
		ErrFraming, ErrCodec, ErrConnRead, ErrConnWrite,
		ErrListen, ErrAccept, ErrHandshake, ErrDial, ErrConfig, ErrContext,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// Ready is a concise alias used at call sites.
func Ready() bool { return IsReady() }
