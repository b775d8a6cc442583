package core

import (
	"fmt"

	"google.golang.org/protobuf/proto"

	"github.com/miladsoleymani/qmux/internal/jsoncodec"
)

// Binder deserializes raw message bytes into a Go value.
// Implement this interface for custom serialization formats (Avro, etc.).
type Binder interface {
	Bind(data []byte, v any) error
}

// JSONBinder deserializes JSON message bodies.
type JSONBinder struct{}

func (JSONBinder) Bind(data []byte, v any) error {
	if err := jsoncodec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json: %w", err)
	}
	return nil
}

// ProtoBinder deserializes protobuf wire-format message bodies.
// The target must be a proto.Message.
type ProtoBinder struct{}

func (ProtoBinder) Bind(data []byte, v any) error {
	m, ok := v.(proto.Message)
	if !ok {
		return fmt.Errorf("proto: %T is not a proto.Message", v)
	}
	if err := proto.Unmarshal(data, m); err != nil {
		return fmt.Errorf("proto: %w", err)
	}
	return nil
}
