package cache

import (
	"context"
	"strings"
	"time"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// NullSentinel is stored under a cache key whose lookup confirmed absence.
const NullSentinel = "\x00<null>"

// NullIdentity is the identity whose reference list tracks negative entries.
const NullIdentity = "<null>"

const refPrefix = "ref"

// KeySerializer builds a cache key from a method name + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// Backend is the TTL key-value store the finders cache into. Reference lists
// hold every cache key that currently resolves to one identity.
//
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns found == false on a miss or an expired entry.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value for ttl. A non-positive ttl uses the backend default.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// LPush prepends key to the list stored under refKey.
	LPush(ctx context.Context, refKey, key string) error
	// Range returns the list stored under refKey, newest first.
	Range(ctx context.Context, refKey string) ([]string, error)
	// Delete removes values and lists stored under keys.
	Delete(ctx context.Context, keys ...string) error
}

// Namespaced prefixes key with ns so different shard sets never share keys.
func Namespaced(ns, key string) string {
	return ns + KeySeparator + key
}

// RefKey is the key of the reference list for identity within ns.
func RefKey(ns, identity string) string {
	return strings.Join([]string{refPrefix, ns, identity}, KeySeparator)
}
