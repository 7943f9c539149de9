// Package secret provides a string type for credentials that must not end
// up in logs, traces or serialized configuration.
package secret

const redacted = "[REDACTED]"

// String holds a credential. Printing or serializing it yields
// "[REDACTED]"; [String.Value] returns the real value.
type String string

// String returns the redacted placeholder.
func (s String) String() string { return redacted }

// GoString returns the redacted placeholder for %#v.
func (s String) GoString() string { return redacted }

// Value returns the actual secret. Call it only where the raw value is
// needed, such as building a connection.
func (s String) Value() string { return string(s) }

// MarshalText implements [encoding.TextMarshaler] with the placeholder,
// keeping the value out of JSON and YAML output.
func (s String) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// IsSet reports whether a value is present.
func (s String) IsSet() bool { return s != "" }
