// Package secret carries sensitive configuration values.
//
// A [Value] never prints its content: String, GoString, the logr marshaler
// and the YAML/JSON encoders all emit [Redacted]. Code that must hand the
// plaintext to a cluster object calls [Value.Reveal] explicitly.
//
// Stores look secrets up by component and setting name. [Chain] combines
// the environment, an age-encrypted secrets file and in-memory maps.
package secret
