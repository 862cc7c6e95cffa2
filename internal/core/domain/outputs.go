package domain

import (
	"maps"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// OutputRecord is the per-source output manifest of one target platform.
type OutputRecord struct {
	// Outputs are the generated artifact identifiers, relative to the platform output root.
	Outputs []string `json:"outputs,omitempty"`
	// ABI maps each declared symbol (scope:name) to the hash of its externally visible signature.
	ABI map[string]string `json:"abi,omitempty"`
}

// ABIDiff lists declared symbols whose externally visible signature changed between two records.
type ABIDiff struct {
	Added   []LookupSymbol
	Changed []LookupSymbol
	Removed []LookupSymbol
}

// IsEmpty reports whether the ABI is unchanged.
func (d ABIDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}

// Symbols returns every symbol touched by the diff.
func (d ABIDiff) Symbols() []LookupSymbol {
	all := make([]LookupSymbol, 0, len(d.Added)+len(d.Changed)+len(d.Removed))
	all = append(all, d.Added...)
	all = append(all, d.Changed...)
	return append(all, d.Removed...)
}

// DiffABI compares the declared ABI of two records.
// Keys that do not parse as symbols are reported with an empty scope.
func DiffABI(previous, current OutputRecord) ABIDiff {
	var diff ABIDiff
	for _, key := range slices.Sorted(maps.Keys(current.ABI)) {
		old, ok := previous.ABI[key]
		switch {
		case !ok:
			diff.Added = append(diff.Added, symbolFromKey(key))
		case old != current.ABI[key]:
			diff.Changed = append(diff.Changed, symbolFromKey(key))
		}
	}
	for _, key := range slices.Sorted(maps.Keys(previous.ABI)) {
		if _, ok := current.ABI[key]; !ok {
			diff.Removed = append(diff.Removed, symbolFromKey(key))
		}
	}
	return diff
}

// DroppedOutputs returns outputs of previous that current no longer produces.
func DroppedOutputs(previous, current OutputRecord) []string {
	keep := make(map[string]struct{}, len(current.Outputs))
	for _, o := range current.Outputs {
		keep[o] = struct{}{}
	}
	var dropped []string
	for _, o := range previous.Outputs {
		if _, ok := keep[o]; !ok {
			dropped = append(dropped, o)
		}
	}
	return dropped
}

// ParseABIEntry parses scope:name=signature.
func ParseABIEntry(s string) (LookupSymbol, string, error) {
	idx := strings.LastIndex(s, "=")
	if idx <= 0 {
		return LookupSymbol{}, "", zerr.With(zerr.Wrap(ErrInvalidABIEntry, "missing signature"), "entry", s)
	}
	sym, err := ParseLookupSymbol(s[:idx])
	if err != nil {
		return LookupSymbol{}, "", err
	}
	return sym, s[idx+1:], nil
}

func symbolFromKey(key string) LookupSymbol {
	sym, err := ParseLookupSymbol(key)
	if err != nil {
		return LookupSymbol{Name: key}
	}
	return sym
}
