package template

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Library is a named set of templates, safe for concurrent use.
type Library struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewLibrary returns a library holding ts.
func NewLibrary(ts ...*Template) (*Library, error) {
	l := &Library{templates: make(map[string]*Template, len(ts))}
	for _, t := range ts {
		if err := l.Add(t); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Add inserts t. It fails with ErrExists if the name is taken.
func (l *Library) Add(t *Template) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.templates == nil {
		l.templates = make(map[string]*Template)
	}
	if _, ok := l.templates[t.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrExists, t.Name())
	}
	l.templates[t.Name()] = t
	return nil
}

// Get returns the named template or ErrNotFound.
func (l *Library) Get(name string) (*Template, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return t, nil
}

// Names returns the template names in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Sorted(maps.Keys(l.templates))
}

// All returns the templates sorted by name.
func (l *Library) All() []*Template {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Template, 0, len(l.templates))
	for _, name := range slices.Sorted(maps.Keys(l.templates)) {
		out = append(out, l.templates[name])
	}
	return out
}

// Len returns the number of templates.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.templates)
}

// IsDefinitionFile reports whether name has a template file extension.
func IsDefinitionFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadDir parses every .yaml, .yml and .json file directly under dir.
func LoadDir(dir string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("template: load dir: %w", err)
	}
	l := &Library{templates: make(map[string]*Template)}
	for _, ent := range entries {
		if ent.IsDir() || !IsDefinitionFile(ent.Name()) {
			continue
		}
		path := filepath.Join(dir, ent.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("template: load dir: %w", err)
		}
		t, err := Parse(data, path)
		if err != nil {
			return nil, err
		}
		if err := l.Add(t); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return l, nil
}
