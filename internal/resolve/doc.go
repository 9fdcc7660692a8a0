// Package resolve implements layered configuration resolution.
//
// Every setting a component reads is resolved from a fixed chain of tiers:
// an explicit argument, the stored configuration of the stack, the secret
// store, and a hard-coded default. The first present tier supplies the
// value. Presence is tracked with pointers, so explicit false, 0 and ""
// win over lower tiers.
package resolve
