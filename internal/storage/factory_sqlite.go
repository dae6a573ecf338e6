//go:build sqlite

package storage

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}

// DefaultStoreKind reports the backend CLI commands should fall back to.
func DefaultStoreKind() string {
	return "sqlite"
}
