// Package gateway is the single outbound path to the backend. It attaches the
// current access token, detects authorization failures and retries a request
// exactly once after the refresh coordinator produced a new credential.
//
// # Flow
//
//  1. Attach "Authorization: Bearer <access>" when the credential store holds a pair.
//  2. Execute the request on the inner transport.
//  3. Anything other than 401 is returned untouched, including other 4xx/5xx.
//  4. On 401: if another caller already replaced the token, retry with it;
//     otherwise ask the coordinator for a fresh pair and retry.
//  5. A second 401 or a failed renewal ends with [ErrUnauthenticated].
//
// Transport errors never trigger renewal and are returned as-is.
//
// # What this package must NOT do
//
//   - Mutate the credential store or session state directly.
//   - Retry more than once.
//   - Log token material.
package gateway
