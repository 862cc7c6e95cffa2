package ports

// Backend is the durable tier of a persistent store.
// Keys are the string encodings produced by the store's key codec.
//
//go:generate mockgen -source=backend.go -destination=mocks/mock_backend.go -package=mocks
type Backend interface {
	// Load reads one value. A missing key is reported with ok=false and no error.
	Load(key string) (value []byte, ok bool, err error)

	// Keys lists every stored key.
	Keys() ([]string, error)

	// Apply writes puts and removes as one batch.
	Apply(puts map[string][]byte, removes []string) error

	// Close releases the backend's resources.
	Close() error
}
