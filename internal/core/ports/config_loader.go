package ports

import "go.trai.ch/incr/internal/core/domain"

// ConfigLoader defines the interface for loading cache manager options.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load discovers the configuration file by walking up from cwd and returns the options.
	// Defaults are returned when no file is found.
	Load(cwd string) (domain.Options, error)

	// LoadFile reads the options from an explicit configuration file.
	LoadFile(path string) (domain.Options, error)
}
