package template

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/topograph/pkg/storage"
)

// ManifestFile is the bundle index, relative to the bundle root.
const ManifestFile = "index.yaml"

// Manifest lists the definition files of a bundle.
type Manifest struct {
	Templates []string `yaml:"templates"`
}

// LoadBundle reads the manifest from fs and parses every file it lists.
func LoadBundle(ctx context.Context, fs storage.FileStore) (*Library, error) {
	data, err := readAll(ctx, fs, ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("template: bundle manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("template: bundle manifest: %w", err)
	}

	l := &Library{templates: make(map[string]*Template, len(m.Templates))}
	for _, path := range m.Templates {
		data, err := readAll(ctx, fs, path)
		if err != nil {
			return nil, fmt.Errorf("template: bundle: %w", err)
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

// WriteBundle writes every template of l as <name>.yaml followed by the
// manifest, so a reader never sees a manifest naming a missing file.
func WriteBundle(ctx context.Context, fs storage.FileStore, l *Library) error {
	var m Manifest
	for _, t := range l.All() {
		data, err := MarshalYAML(t.Definition())
		if err != nil {
			return fmt.Errorf("template: encode %s: %w", t.Name(), err)
		}
		path := t.Name() + ".yaml"
		if err := writeAll(ctx, fs, path, data); err != nil {
			return fmt.Errorf("template: bundle: %w", err)
		}
		m.Templates = append(m.Templates, path)
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return writeAll(ctx, fs, ManifestFile, data)
}

func readAll(ctx context.Context, fs storage.FileStore, path string) ([]byte, error) {
	rc, err := fs.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func writeAll(ctx context.Context, fs storage.FileStore, path string, data []byte) error {
	wc, err := fs.Write(ctx, path)
	if err != nil {
		return err
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}
