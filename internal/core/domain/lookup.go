package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// LookupSymbol identifies a referenceable declaration: a name plus its enclosing scope.
type LookupSymbol struct {
	Scope string `json:"scope"`
	Name  string `json:"name"`
}

// String renders the symbol as scope:name.
func (s LookupSymbol) String() string {
	return s.Scope + ":" + s.Name
}

// ParseLookupSymbol parses the scope:name form produced by String.
// The scope may be empty; the name may not.
func ParseLookupSymbol(s string) (LookupSymbol, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		if s == "" {
			return LookupSymbol{}, zerr.With(zerr.Wrap(ErrInvalidSymbol, "empty symbol"), "symbol", s)
		}
		return LookupSymbol{Name: s}, nil
	}
	sym := LookupSymbol{Scope: s[:idx], Name: s[idx+1:]}
	if sym.Name == "" {
		return LookupSymbol{}, zerr.With(zerr.Wrap(ErrInvalidSymbol, "missing name"), "symbol", s)
	}
	return sym, nil
}

// LookupChangeKind tells whether a symbol-to-file edge was added or removed.
type LookupChangeKind uint8

const (
	// EdgeAdded marks a file that started referencing a symbol.
	EdgeAdded LookupChangeKind = iota
	// EdgeRemoved marks a file that stopped referencing a symbol.
	EdgeRemoved
)

func (k LookupChangeKind) String() string {
	if k == EdgeRemoved {
		return "removed"
	}
	return "added"
}

// LookupChange is one edge change recorded while change tracking is enabled.
type LookupChange struct {
	Symbol LookupSymbol
	Path   PathKey
	Kind   LookupChangeKind
}
