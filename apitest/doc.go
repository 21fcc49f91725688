// Package apitest is an in-memory implementation of the task backend's HTTP
// API for tests, local demos and the load-test command.
//
// It issues HS256 access and refresh tokens, hashes passwords with bcrypt and
// keeps users and tasks in maps. Knobs on [Backend] let a test force access
// tokens to expire, revoke refresh tokens, fail or delay renewals, and count
// renewal calls. With [Options.Limiter] set, repeated failed sign-ins are
// throttled through a Redis counter and answered with 429.
//
// It is not a production backend: nothing is persisted.
package apitest
