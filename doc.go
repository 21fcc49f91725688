// Package goSession manages the client side of a session against the task API:
// it signs users in, keeps their credential pair, attaches it to outgoing
// requests and renews it transparently when the backend answers 401.
//
// The package is designed for concurrent use: every [Client] method may be
// called from multiple goroutines after construction through [Builder.Build].
// Any number of requests may fail with 401 at once; exactly one renewal reaches
// the backend and all of them retry with its result, or all of them fail and
// the session ends.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Client], [Builder], [Config] and
// the sentinels UI code needs. The moving parts live in subpackages:
//
//   - credential: the credential store and its durable backends (memory, file, redis).
//   - gateway: the request pipeline that attaches credentials and retries once.
//   - refresh: the single-flight renewal coordinator.
//   - session: the observable session state cell.
//   - api, tasks: typed clients for the backend endpoints.
//
// # What this package must NOT do
//
//   - Log or emit token values.
//   - Send requests to the backend except through the gateway or the public
//     authentication endpoints.
package goSession
