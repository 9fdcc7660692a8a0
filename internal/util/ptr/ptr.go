// Package ptr provides helpers for taking the address of literal values,
// used for the presence-tracking fields of component arguments.
package ptr

// To returns a pointer to v.
func To[T any](v T) *T { return &v }

// String returns a pointer to the given string value.
func String(s string) *string { return &s }
