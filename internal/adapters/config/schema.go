package config

// Incrfile represents the structure of the incr.yaml configuration file.
type Incrfile struct {
	Version                  string   `yaml:"version"`
	Root                     string   `yaml:"root"`
	CacheDir                 string   `yaml:"cacheDir"`
	OutputDir                string   `yaml:"outputDir"`
	Platform                 string   `yaml:"platform"`
	Backend                  string   `yaml:"backend"`
	StoreFullyQualifiedNames bool     `yaml:"storeFullyQualifiedNames"`
	TrackLookupChanges       bool     `yaml:"trackLookupChanges"`
	Sources                  []string `yaml:"sources"`
	Ignore                   []string `yaml:"ignore"`
}
