package domain

// InputSnapshot is the content fingerprint of a source file at its last successful compilation.
type InputSnapshot struct {
	Size int64  `json:"size"`
	Hash string `json:"hash"`
}

// Equal reports whether two snapshots describe the same content.
func (s InputSnapshot) Equal(other InputSnapshot) bool {
	return s.Size == other.Size && s.Hash == other.Hash
}

// ChangeSet classifies project sources against the inputs cache.
// All lists hold absolute paths in lexical order.
type ChangeSet struct {
	Added     []string
	Modified  []string
	Removed   []string
	Unchanged []string
}

// Dirty returns the files that need to be compiled: added and modified ones.
func (c ChangeSet) Dirty() []string {
	dirty := make([]string, 0, len(c.Added)+len(c.Modified))
	dirty = append(dirty, c.Added...)
	return append(dirty, c.Modified...)
}

// IsEmpty reports whether nothing was added, modified or removed.
func (c ChangeSet) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}
