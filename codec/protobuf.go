package codec

import "google.golang.org/protobuf/proto"

// Protobuf serializes protobuf messages. Construct with NewProtobuf and
// a constructor for the concrete message type, e.g.
// NewProtobuf(func() *mypb.Session { return &mypb.Session{} }).
type Protobuf[T proto.Message] struct {
	new func() T
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) { return proto.Marshal(v) }
func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}
