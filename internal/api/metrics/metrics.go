// Package metrics defines all custom Prometheus metrics for the lending
// platform's auth core. It is the single source of truth for metric names,
// labels, and help strings; metrics register with the default registry at
// import time via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "library"

// ── Token metrics ─────────────────────────────────────────────────────────────

// TokenVerificationsTotal counts access-token verification outcomes.
// Label:
//   - result: "ok", "expired", "revoked", "malformed", "wrong_type"
var TokenVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_verifications_total",
		Help:      "Total number of access token verifications, by outcome.",
	},
	[]string{"result"},
)

// TokenRefreshTotal counts refresh-token rotation outcomes.
// Label:
//   - result: "ok" or "rejected" (expired, revoked, replayed, malformed)
var TokenRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refresh_total",
		Help:      "Total number of refresh token rotations, by outcome.",
	},
	[]string{"result"},
)

// LoginsTotal counts credential logins.
// Label:
//   - result: "ok" or "failed"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by outcome.",
	},
	[]string{"result"},
)

// ── Authorization metrics ─────────────────────────────────────────────────────

// AuthzDenialsTotal counts requests short-circuited by an authorization
// middleware.
// Label:
//   - reason: "permission", "role_level", "ownership", "unknown_permission"
var AuthzDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_denials_total",
		Help:      "Total number of requests denied by authorization checks.",
	},
	[]string{"reason"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsTotal counts audit entries successfully persisted.
// Label:
//   - severity: "info", "warning", "critical"
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit entries persisted, by severity.",
	},
	[]string{"severity"},
)

// AuditWriteFailuresTotal counts audit entries lost to store failures.
// These failures never propagate to the audited operation, so this counter
// is the only signal that the trail has gaps.
var AuditWriteFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_write_failures_total",
		Help:      "Total number of audit entries dropped because the store write failed.",
	},
)

// AuditQueueDepth tracks entries waiting in each async audit worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit entries pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
