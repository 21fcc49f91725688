// Package session holds the process-wide, observable session state consumed by
// UI-facing code to gate protected views.
//
// # State machine
//
//	Initializing ──► Authenticated ◄──► Unauthenticated
//	      └──────────────────────────────────▲
//
// [Cell] is the single owner of the state. Consumers read it through [Cell.Snapshot]
// or [Cell.Subscribe]; only the operations on Cell can move it, and each of them
// checks the transition against the finite table in transitions.go.
//
// # What this package must NOT do
//
//   - Touch credentials or perform I/O.
//   - Import goSession, credential, gateway, or refresh.
package session
