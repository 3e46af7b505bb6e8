package finder

import (
	"context"
	"fmt"
	"strings"
)

type referencesContextKey struct{}

// WithReferences attaches extra identities to ctx. Entries cached by a Get
// running under ctx are also registered on these identities' reference
// lists, so invalidating any of them drops the entry.
func WithReferences(ctx context.Context, identities ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(identities) == 0 {
		return ctx
	}

	combined := dedupeStrings(append(referencesFromContext(ctx), identities...))
	if len(combined) == 0 {
		return ctx
	}
	return context.WithValue(ctx, referencesContextKey{}, combined)
}

func referencesFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if refs, ok := ctx.Value(referencesContextKey{}).([]string); ok {
		return append([]string(nil), refs...)
	}
	return nil
}

// dedupeStrings drops blanks and repeats, keeping first-seen order.
func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// namespace turns a shard set name into a key segment. Lower case ASCII
// letters and digits are kept; every other byte, underscore included, is
// written as _xx in hex. Distinct names never share a namespace and key
// separators never reach the cache key.
func namespace(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	return b.String()
}
