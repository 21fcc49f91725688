package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goSession.MetricSignInSuccess, Name: "gosession_signin_success_total", Help: "Successful sign-ins."},
	{ID: goSession.MetricSignInFailure, Name: "gosession_signin_failure_total", Help: "Rejected or failed sign-ins."},
	{ID: goSession.MetricSignUpSuccess, Name: "gosession_signup_success_total", Help: "Accounts created."},
	{ID: goSession.MetricSignUpFailure, Name: "gosession_signup_failure_total", Help: "Rejected or failed sign-ups."},
	{ID: goSession.MetricSignOut, Name: "gosession_signout_total", Help: "Sessions ended by the user."},
	{ID: goSession.MetricRestoreSuccess, Name: "gosession_restore_success_total", Help: "Sessions restored from durable storage."},
	{ID: goSession.MetricRestoreFailure, Name: "gosession_restore_failure_total", Help: "Session restores that ended unauthenticated."},
	{ID: goSession.MetricCredentialAttached, Name: "gosession_credential_attached_total", Help: "Requests sent with a bearer credential."},
	{ID: goSession.MetricAuthFailure, Name: "gosession_auth_failure_total", Help: "401 responses seen by the gateway."},
	{ID: goSession.MetricRequestRetried, Name: "gosession_request_retried_total", Help: "Requests retried after a renewal."},
	{ID: goSession.MetricUnauthenticated, Name: "gosession_unauthenticated_total", Help: "Requests that ended unauthenticated."},
	{ID: goSession.MetricRenewalStarted, Name: "gosession_renewal_started_total", Help: "Renewals sent to the backend."},
	{ID: goSession.MetricRenewalJoined, Name: "gosession_renewal_joined_total", Help: "Callers that waited on a renewal already in flight."},
	{ID: goSession.MetricRenewalSuccess, Name: "gosession_renewal_success_total", Help: "Successful renewals."},
	{ID: goSession.MetricRenewalFailure, Name: "gosession_renewal_failure_total", Help: "Failed renewals, each ending the session."},
	{ID: goSession.MetricRenewalTimeout, Name: "gosession_renewal_timeout_total", Help: "Renewals that exceeded the renewal timeout."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricRenewalLatency, Name: "gosession_renewal_latency_seconds", Help: "Renewal round-trip latency."},
}

// HistogramBounds are the upper bounds of the renewal latency buckets.
var HistogramBounds = []string{"0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "1", "+Inf"}

// HistogramBoundSuffix renders HistogramBounds as metric name suffixes.
var HistogramBoundSuffix = []string{"0_01", "0_025", "0_05", "0_1", "0_25", "0_5", "1", "inf"}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, n := range raw {
		running += n
		out[i] = running
	}
	return out
}
