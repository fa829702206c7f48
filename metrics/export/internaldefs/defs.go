package internaldefs

import (
	"github.com/MrEthical07/credauth"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   credauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   credauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: credauth.MetricRegisterSuccess, Name: "credauth_register_success_total", Help: "Successful registrations."},
	{ID: credauth.MetricRegisterDuplicate, Name: "credauth_register_duplicate_total", Help: "Registrations rejected because the username is taken."},
	{ID: credauth.MetricRegisterFailure, Name: "credauth_register_failure_total", Help: "Registrations rejected for invalid input or a weak password."},
	{ID: credauth.MetricLoginSuccess, Name: "credauth_login_success_total", Help: "Successful password logins."},
	{ID: credauth.MetricLoginFailure, Name: "credauth_login_failure_total", Help: "Rejected password logins."},
	{ID: credauth.MetricLoginRateLimited, Name: "credauth_login_rate_limited_total", Help: "Logins refused by the throttle."},
	{ID: credauth.MetricPasswordRehashed, Name: "credauth_password_rehashed_total", Help: "Password hashes upgraded after login."},
	{ID: credauth.MetricSessionCreated, Name: "credauth_session_created_total", Help: "Issued sessions."},
	{ID: credauth.MetricSessionInvalidated, Name: "credauth_session_invalidated_total", Help: "Sessions removed by sign-out-all."},
	{ID: credauth.MetricLogout, Name: "credauth_logout_total", Help: "Single-session sign-outs."},
	{ID: credauth.MetricLogoutAll, Name: "credauth_logout_all_total", Help: "Sign-out-all operations."},
	{ID: credauth.MetricLogoutRedirectFallback, Name: "credauth_logout_redirect_fallback_total", Help: "Logouts that fell back to the default redirect."},
	{ID: credauth.MetricSeedSkipped, Name: "credauth_seed_skipped_total", Help: "Seed users skipped as already present."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: credauth.MetricHashLatency, Name: "credauth_hash_latency_seconds", Help: "Password hash and verify latency."},
}

// AuditDroppedName and AuditDroppedHelp describe the audit backpressure counter.
const (
	AuditDroppedName = "credauth_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped under dispatcher backpressure."

	AuditDeliveredName = "credauth_audit_delivered_total"
	AuditDeliveredHelp = "Audit events handed to the sink."

	HashWaitingName = "credauth_hash_pool_waiting"
	HashWaitingHelp = "Callers queued for a password hashing slot."
)

// BucketCount is the number of histogram buckets, the last one unbounded.
const BucketCount = 8

// HistogramBounds are the finite bucket upper bounds in seconds.
var HistogramBounds = [BucketCount - 1]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket for exporters that flatten buckets
// into separate instruments.
var HistogramBoundSuffix = [BucketCount]string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
