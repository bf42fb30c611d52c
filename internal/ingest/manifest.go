package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ManifestFileName is the optional per-repository configuration file.
const ManifestFileName = "codegraph.toml"

// Manifest holds per-repository overrides for the folder source. A
// repository can restrict extensions, add exclude patterns, and cap file
// size without touching the global configuration.
type Manifest struct {
	Extensions    []string `toml:"extensions"`
	Exclude       []string `toml:"exclude"`
	MaxFileSizeMB int      `toml:"max_file_size_mb"`
}

// LoadManifest reads the repository manifest from root. A missing manifest
// is not an error; a malformed one is.
func LoadManifest(root string) (*Manifest, error) {
	path := filepath.Join(root, ManifestFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read manifest %s; %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s; %w", path, err)
	}

	return &m, nil
}

// apply overlays the manifest's overrides onto options.
func (m *Manifest) apply(opts Options) Options {
	if m == nil {
		return opts
	}

	if len(m.Extensions) > 0 {
		opts.Extensions = m.Extensions
	}
	if len(m.Exclude) > 0 {
		opts.ExcludePatterns = append(opts.ExcludePatterns, m.Exclude...)
	}
	if m.MaxFileSizeMB > 0 {
		opts.MaxFileSize = int64(m.MaxFileSizeMB) * 1024 * 1024
	}

	return opts
}
