package domain

import (
	"path/filepath"
	"strings"
)

// PathKey is a normalized, platform independent identifier of a source file.
// Keys of files beneath the project root are slash separated relative paths.
// Keys of files outside the project root are absolute slash separated paths.
type PathKey string

// String returns the key as a string.
func (k PathKey) String() string {
	return string(k)
}

// IsRelative reports whether the key was made relative to the project root.
func (k PathKey) IsRelative() bool {
	s := string(k)
	if s == "" || strings.HasPrefix(s, "/") {
		return false
	}
	// Keys starting with a volume name such as C:/ are absolute fallbacks on Windows.
	return filepath.VolumeName(filepath.FromSlash(s)) == ""
}
