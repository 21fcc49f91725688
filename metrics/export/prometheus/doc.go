// Package prometheus renders goSession metrics in the Prometheus text
// exposition format.
//
// [New] wraps a [goSession.Client] and exposes an [http.Handler]. Counter names
// are gosession_*_total; the single histogram is gosession_renewal_latency_seconds.
// Nothing is registered globally: callers mount the handler where they want it.
package prometheus
