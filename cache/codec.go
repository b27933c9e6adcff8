package cache

import "encoding/json"

// Codec turns a cache value into bytes for the disk backend.
type Codec[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// StringCodec stores string-like values as their raw bytes.
type StringCodec[T ~string] struct{}

func (StringCodec[T]) Encode(value T) ([]byte, error) {
	return []byte(value), nil
}

func (StringCodec[T]) Decode(data []byte) (T, error) {
	return T(data), nil
}

type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (JSONCodec[T]) Decode(data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}
