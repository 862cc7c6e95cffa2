package caches

import (
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	incrfs "go.trai.ch/incr/internal/adapters/fs"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	manifestHeader = "===== sourceToClassesMap contents ====="
	manifestFooter = "======================================"
	hashesHeader   = "===== sourceToClasses files hashes ====="
	hashesFooter   = "========================================"
)

// ValidateSourceToClassesMap renders the platform output manifest for incident
// debugging and logs it as a warning. The manifest is possibly valid when at
// least one source maps to an output.
func (m *Manager) ValidateSourceToClassesMap() (string, error) {
	if m.Closed() {
		return "", zerr.Wrap(domain.ErrAlreadyClosed, "validate source to outputs map")
	}

	manifest, err := m.platform.SourceToOutputs()
	if err != nil {
		return "", err
	}

	dump := FormatManifest(manifest)
	m.logger.Warn(dump)
	return dump, nil
}

// FormatManifest renders a source-to-outputs manifest.
func FormatManifest(manifest map[domain.PathKey][]string) string {
	valid := false
	for _, outputs := range manifest {
		if len(outputs) > 0 {
			valid = true
			break
		}
	}

	var b strings.Builder
	b.WriteString(manifestHeader + "\n")
	fmt.Fprintf(&b, "Possibly valid: %t\n", valid)
	for _, key := range slices.Sorted(maps.Keys(manifest)) {
		fmt.Fprintf(&b, "%s -> [%s]\n", key, strings.Join(manifest[key], ", "))
	}
	b.WriteString(manifestFooter + "\n")
	return b.String()
}

// PrintHashSums reports the digest of every source-to-outputs file of the manager's cache root.
func (m *Manager) PrintHashSums(tag string) (string, error) {
	return PrintHashSums(m.opts.CacheRoot, m.logger, tag)
}

// PrintHashSums walks cacheRoot for files belonging to a source-to-outputs store,
// logs each absolute path with the base64 SHA-1 of its content, and returns the report.
func PrintHashSums(cacheRoot string, logger ports.Logger, tag string) (string, error) {
	var b strings.Builder
	b.WriteString(hashesHeader + "\n")
	b.WriteString(tag + "\n")

	err := filepath.WalkDir(cacheRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(cacheRoot, path)
		if err != nil || !strings.Contains(filepath.ToSlash(rel), domain.SourceToOutputsName) {
			return nil //nolint:nilerr // Paths outside the root are not reported
		}

		digest, err := incrfs.ReadableDigest(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "%s -> %s\n", path, digest)
		return nil
	})
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrWalkFailed.Error()), "cache_root", cacheRoot)
	}

	b.WriteString(hashesFooter + "\n")
	report := b.String()
	logger.Warn(report)
	return report, nil
}
