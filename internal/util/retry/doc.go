// Package retry retries transient cluster operations.
//
// [WithExponentialBackoff] retries an operation with growing delays until
// it succeeds or returns an error wrapped with [Fatal]. [Until] polls a
// readiness condition, as the apply engine does before applying nodes that
// depend on an object becoming ready.
package retry
