package ports

import "go.trai.ch/incr/internal/core/domain"

// Fingerprinter computes content snapshots of source files.
//
//go:generate mockgen -source=fingerprinter.go -destination=mocks/mock_fingerprinter.go -package=mocks
type Fingerprinter interface {
	// Fingerprint returns the snapshot of the file at the given absolute path.
	Fingerprint(path string) (domain.InputSnapshot, error)
}
