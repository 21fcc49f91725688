// Package refresh coordinates access-token renewal so that any number of
// concurrent callers who observe an expired credential share one renewal call.
//
// # Single flight
//
// [Coordinator.Fresh] either joins the renewal already in progress or starts one.
// Starting and marking happen under the same mutex, so two renewals can never
// overlap. The renewal runs on its own goroutine, detached from the caller's
// context and bounded by the configured timeout. Every waiter of one flight sees
// the identical outcome.
//
// # Outcomes
//
// Success writes the new pair into the credential store with a generation check
// and marks the session Authenticated. Failure of any kind (rejected refresh
// token, transport error, timeout) clears the store and marks the session
// Unauthenticated. If the store changed while the renewal was in flight (for
// example a sign-out), the renewal result is discarded and the newer state is
// left alone.
//
// # What this package must NOT do
//
//   - Perform HTTP itself; the backend call is behind [Renewer].
//   - Import goSession or gateway.
//   - Log token material.
package refresh
