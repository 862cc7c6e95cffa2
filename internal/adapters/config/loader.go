// Package config provides the configuration loader for incr.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// SupportedVersion is the only incr.yaml schema version understood by the loader.
const SupportedVersion = "1"

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load walks up from cwd to the first incr.yaml and reads it.
// Without a configuration file the defaults for cwd are returned.
func (l *Loader) Load(cwd string) (domain.Options, error) {
	configPath, ok := findConfiguration(cwd)
	if !ok {
		return domain.DefaultOptions(filepath.Clean(cwd)), nil
	}
	return l.LoadFile(configPath)
}

// LoadFile reads the options from configPath. Relative paths in the file are
// resolved against the directory holding it.
func (l *Loader) LoadFile(configPath string) (domain.Options, error) {
	var incrfile Incrfile
	if err := readAndUnmarshalYAML(configPath, &incrfile); err != nil {
		return domain.Options{}, zerr.With(err, "path", configPath)
	}

	if incrfile.Version != "" && incrfile.Version != SupportedVersion {
		l.Logger.Warn(fmt.Sprintf("unknown %s version %q, reading it as version %s",
			domain.ConfigFileName, incrfile.Version, SupportedVersion))
	}

	configDir := filepath.Dir(configPath)
	root := resolvePath(configDir, incrfile.Root)
	opts := domain.DefaultOptions(root)

	if incrfile.CacheDir != "" {
		opts.CacheRoot = resolvePath(configDir, incrfile.CacheDir)
	}
	if incrfile.OutputDir != "" {
		opts.OutputDir = resolvePath(configDir, incrfile.OutputDir)
	}
	if incrfile.Platform != "" {
		opts.Platform = domain.Platform(strings.ToLower(incrfile.Platform))
	}
	if incrfile.Backend != "" {
		opts.Backend = domain.Backend(strings.ToLower(incrfile.Backend))
	}
	opts.StoreFullyQualifiedNames = incrfile.StoreFullyQualifiedNames
	opts.TrackLookupChanges = incrfile.TrackLookupChanges
	opts.SourceExtensions = canonicalizeExtensions(incrfile.Sources)
	opts.Ignores = canonicalizeStrings(incrfile.Ignore)

	if err := opts.Validate(); err != nil {
		return domain.Options{}, zerr.With(err, "path", configPath)
	}
	return opts, nil
}

func findConfiguration(cwd string) (string, bool) {
	currentDir := filepath.Clean(cwd)
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			return "", false
		}
		currentDir = parentDir
	}
}

func resolvePath(configDir, configured string) string {
	if configured == "" {
		return filepath.Clean(configDir)
	}
	if filepath.IsAbs(configured) {
		return filepath.Clean(configured)
	}
	return filepath.Clean(filepath.Join(configDir, configured))
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is discovered or passed explicitly by the user
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}

// canonicalizeExtensions adds the leading dot, then sorts and deduplicates.
func canonicalizeExtensions(exts []string) []string {
	if len(exts) == 0 {
		return nil
	}
	dotted := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		dotted = append(dotted, ext)
	}
	return canonicalizeStrings(dotted)
}

func canonicalizeStrings(strs []string) []string {
	if len(strs) == 0 {
		return nil
	}
	sorted := slices.Clone(strs)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}
