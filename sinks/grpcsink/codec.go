package grpcsink

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// rawBytesCodecName is registered as a gRPC content-subtype so Invoke can
// send/receive the already-serialized event bytes directly, without a
// generated protobuf message type for the ingest RPC.
const rawBytesCodecName = "logpipe-raw"

func init() {
	encoding.RegisterCodec(rawBytesCodec{})
}

// rawBytesCodec marshals/unmarshals the wire bytes unchanged. Both the
// request and the response on the ingest RPC are plain []byte, so this
// codec only needs to round-trip that one concrete type.
type rawBytesCodec struct{}

func (rawBytesCodec) Marshal(v any) ([]byte, error) {
	b, ok := v.(*[]byte)
	if !ok {
		return nil, fmt.Errorf("grpcsink: codec expects *[]byte, got %T", v)
	}
	return *b, nil
}

func (rawBytesCodec) Unmarshal(data []byte, v any) error {
	b, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("grpcsink: codec expects *[]byte, got %T", v)
	}
	*b = append((*b)[:0], data...)
	return nil
}

func (rawBytesCodec) Name() string { return rawBytesCodecName }
