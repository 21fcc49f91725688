// Package credential owns the client-side access/refresh credential pair.
//
// # Architecture boundaries
//
// [Store] is a guarded in-memory cell that is always the source of truth for the
// running process. A [Backend] adds durability (file, Redis, or nothing) so the
// pair survives a restart. Renewal logic never touches a Backend directly; it goes
// through the Store, which keeps the storage medium swappable.
//
// # What this package must NOT do
//
//   - Import goSession, gateway, or refresh (no upward imports).
//   - Perform network calls other than the configured Backend.
//   - Log or format token values.
package credential
