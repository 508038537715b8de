// Package codec provides pluggable value serialization for typed views
// over guest key-value stores. Stores move opaque bytes; a Codec[V] maps
// a caller's value type onto those bytes.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
