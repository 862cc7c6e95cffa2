package kvstore

import (
	"encoding/json"
	"strconv"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/zerr"
)

// KeyCodec maps store keys to the string keys of the durable tier.
// Encode must be injective.
type KeyCodec[K comparable] struct {
	Encode func(K) string
	Decode func(string) (K, error)
}

// ValueCodec maps store values to the bytes of the durable tier.
type ValueCodec[V any] struct {
	Marshal   func(V) ([]byte, error)
	Unmarshal func([]byte) (V, error)
}

// StringKeys is the identity key codec.
func StringKeys() KeyCodec[string] {
	return KeyCodec[string]{
		Encode: func(k string) string { return k },
		Decode: func(s string) (string, error) { return s, nil },
	}
}

// PathKeys encodes path keys as themselves.
func PathKeys() KeyCodec[domain.PathKey] {
	return KeyCodec[domain.PathKey]{
		Encode: func(k domain.PathKey) string { return k.String() },
		Decode: func(s string) (domain.PathKey, error) { return domain.PathKey(s), nil },
	}
}

// Uint32Keys encodes integer ids in decimal.
func Uint32Keys() KeyCodec[uint32] {
	return KeyCodec[uint32]{
		Encode: func(k uint32) string { return strconv.FormatUint(uint64(k), 10) },
		Decode: func(s string) (uint32, error) {
			n, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return 0, zerr.With(zerr.Wrap(domain.ErrCacheCorrupted, "invalid id key"), "key", s)
			}
			return uint32(n), nil
		},
	}
}

// JSON encodes values with encoding/json.
func JSON[V any]() ValueCodec[V] {
	return ValueCodec[V]{
		Marshal: func(v V) ([]byte, error) {
			data, err := json.Marshal(v)
			if err != nil {
				return nil, zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
			}
			return data, nil
		},
		Unmarshal: func(data []byte) (V, error) {
			var v V
			if err := json.Unmarshal(data, &v); err != nil {
				return v, zerr.Wrap(domain.ErrCacheCorrupted, err.Error())
			}
			return v, nil
		},
	}
}

// Bytes stores values verbatim.
func Bytes() ValueCodec[[]byte] {
	return ValueCodec[[]byte]{
		Marshal:   func(v []byte) ([]byte, error) { return v, nil },
		Unmarshal: func(data []byte) ([]byte, error) { return data, nil },
	}
}
