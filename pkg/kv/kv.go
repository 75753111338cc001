// Package kv is the persistent key-value substrate of the template cache.
// Keys are hierarchical paths such as {"topograph", "tpl", "host_down"},
// stored as their segments joined by a separator byte (':' by default).
//
// Badger is the on-disk implementation; Memory is a map-backed one for tests
// and one-shot CLI runs.
package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

// Sentinel errors.
var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("kv: not found")

	// ErrInvalidKey is returned for an empty key or a segment containing the
	// separator.
	ErrInvalidKey = errors.New("kv: invalid key")
)

// Key is a hierarchical path of segments.
type Key []string

// String joins the segments with ':' for display.
func (k Key) String() string { return strings.Join(k, ":") }

// Entry is one stored pair.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store over hierarchical keys. Implementations are safe
// for concurrent use.
type Store interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)
	// Set stores value at key, replacing any previous value.
	Set(ctx context.Context, key Key, value []byte) error
	// Delete removes key. Removing a missing key is not an error.
	Delete(ctx context.Context, key Key) error
	// List yields the entries strictly below prefix in encoded key order.
	// An empty prefix lists everything.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]
	// BatchSet stores all entries atomically.
	BatchSet(ctx context.Context, entries []Entry) error
	// BatchDelete removes all keys atomically.
	BatchDelete(ctx context.Context, keys []Key) error
	// Close releases the store.
	Close() error
}

// DefaultSeparator joins key segments.
const DefaultSeparator byte = ':'

// Options are shared by the implementations. A nil *Options is valid.
type Options struct {
	// Separator joins key segments. Zero means DefaultSeparator.
	Separator byte
}

func (o *Options) sep() byte {
	if o == nil || o.Separator == 0 {
		return DefaultSeparator
	}
	return o.Separator
}

// encode joins k into its stored form.
func (o *Options) encode(k Key) ([]byte, error) {
	if len(k) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	sep := o.sep()
	var buf bytes.Buffer
	for i, seg := range k {
		if strings.IndexByte(seg, sep) >= 0 {
			return nil, fmt.Errorf("%w: segment %q contains %q", ErrInvalidKey, seg, sep)
		}
		if i > 0 {
			buf.WriteByte(sep)
		}
		buf.WriteString(seg)
	}
	return buf.Bytes(), nil
}

// scanPrefix is the stored prefix of every key below prefix. The trailing
// separator keeps {"a","b"} from matching {"a","bc"}.
func (o *Options) scanPrefix(prefix Key) ([]byte, error) {
	if len(prefix) == 0 {
		return nil, nil
	}
	p, err := o.encode(prefix)
	if err != nil {
		return nil, err
	}
	return append(p, o.sep()), nil
}

func (o *Options) decode(b []byte) Key {
	return Key(strings.Split(string(b), string(o.sep())))
}
