package template

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/topograph/pkg/kv"
)

// Store caches definitions in a kv.Store, msgpack-encoded under
// {prefix}:tpl:{name}.
type Store struct {
	kv     kv.Store
	prefix string
}

// NewStore returns a Store over s. An empty prefix defaults to "topograph".
func NewStore(s kv.Store, prefix string) *Store {
	if prefix == "" {
		prefix = "topograph"
	}
	return &Store{kv: s, prefix: prefix}
}

func (s *Store) root() kv.Key { return kv.Key{s.prefix, "tpl"} }

func (s *Store) key(name string) kv.Key { return kv.Key{s.prefix, "tpl", name} }

// Put compiles def and stores it, replacing any definition with the same name.
func (s *Store) Put(ctx context.Context, def Definition) error {
	if _, err := Compile(def); err != nil {
		return err
	}
	data, err := msgpack.Marshal(&def)
	if err != nil {
		return fmt.Errorf("template: encode %s: %w", def.Name, err)
	}
	return s.kv.Set(ctx, s.key(def.Name), data)
}

// Replace makes the stored set equal to l: every template of l is written
// and stored names absent from l are removed.
func (s *Store) Replace(ctx context.Context, l *Library) error {
	keep := make(map[string]struct{}, l.Len())
	var entries []kv.Entry
	for _, t := range l.All() {
		def := t.Definition()
		data, err := msgpack.Marshal(&def)
		if err != nil {
			return fmt.Errorf("template: encode %s: %w", def.Name, err)
		}
		entries = append(entries, kv.Entry{Key: s.key(def.Name), Value: data})
		keep[def.Name] = struct{}{}
	}

	var stale []kv.Key
	for ent, err := range s.kv.List(ctx, s.root()) {
		if err != nil {
			return err
		}
		if _, ok := keep[ent.Key[len(ent.Key)-1]]; !ok {
			stale = append(stale, ent.Key)
		}
	}
	if len(entries) > 0 {
		if err := s.kv.BatchSet(ctx, entries); err != nil {
			return err
		}
	}
	if len(stale) > 0 {
		return s.kv.BatchDelete(ctx, stale)
	}
	return nil
}

// Get loads and compiles the named template.
func (s *Store) Get(ctx context.Context, name string) (*Template, error) {
	data, err := s.kv.Get(ctx, s.key(name))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return decodeStored(name, data)
}

// Delete removes the named template. Deleting a missing name is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.kv.Delete(ctx, s.key(name))
}

// Library loads every stored template.
func (s *Store) Library(ctx context.Context) (*Library, error) {
	l := &Library{templates: make(map[string]*Template)}
	for ent, err := range s.kv.List(ctx, s.root()) {
		if err != nil {
			return nil, err
		}
		name := ent.Key[len(ent.Key)-1]
		t, err := decodeStored(name, ent.Value)
		if err != nil {
			return nil, err
		}
		if err := l.Add(t); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func decodeStored(name string, data []byte) (*Template, error) {
	var def Definition
	if err := msgpack.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("template: decode %s: %w", name, err)
	}
	return Compile(def)
}
