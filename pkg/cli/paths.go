package cli

import (
	"os"
	"path/filepath"
)

// Paths locates the topograph directory structure under the user's home.
type Paths struct {
	// HomeDir is the user's home directory
	HomeDir string
}

// NewPaths returns Paths rooted at the current user's home directory.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns ~/.topograph
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns ~/.topograph/config.yaml
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// DataDir returns ~/.topograph/data
func (p *Paths) DataDir() string {
	return filepath.Join(p.BaseDir(), "data")
}

// StoreDir returns the template cache directory of a context,
// ~/.topograph/data/<context>/templates. The unnamed context uses "default".
func (p *Paths) StoreDir(context string) string {
	if context == "" {
		context = "default"
	}
	return filepath.Join(p.DataDir(), context, "templates")
}

// EnsureStoreDir creates the template cache directory of a context.
func (p *Paths) EnsureStoreDir(context string) (string, error) {
	dir := p.StoreDir(context)
	return dir, os.MkdirAll(dir, 0755)
}
