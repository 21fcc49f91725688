// Package rate implements fixed-window counters in Redis for throttling
// repeated sign-in failures.
//
// # Window semantics
//
// INCR plus EXPIRE on the first hit of a window. Keys:
//   - <prefix>:si:<email>  failed sign-ins per account
//   - <prefix>:sip:<ip>    failed sign-ins per client address
package rate
