package cache

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-shards/internal/faults"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec converts cached entities to and from the string values a Backend
// stores.
type Codec[T any] interface {
	Encode(v T) (string, error)
	Decode(s string) (T, error)
}

// MsgpackCodec encodes values with msgpack.
type MsgpackCodec[T any] struct{}

// NewMsgpackCodec returns the default entity codec.
func NewMsgpackCodec[T any]() Codec[T] {
	return MsgpackCodec[T]{}
}

func (MsgpackCodec[T]) Encode(v T) (string, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return "", faults.Wrap(err, goerrors.CategoryInternal, faults.CodeCodec, "encode cache value")
	}
	return string(b), nil
}

func (MsgpackCodec[T]) Decode(s string) (T, error) {
	var v T
	if err := msgpack.Unmarshal([]byte(s), &v); err != nil {
		var zero T
		return zero, faults.Wrap(err, goerrors.CategoryInternal, faults.CodeCodec, "decode cache value")
	}
	return v, nil
}
