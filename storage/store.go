package storage

// Store bundles state and history storage over one BadgerDB instance.
// It satisfies the write-through interface WorldState persists with.
type Store struct {
	*StateStorage
	*DB

	raw *BadgerStorage
}

// Open opens the peer database at dataDir.
func Open(dataDir string) (*Store, error) {
	raw, err := NewBadgerStorage(dataDir)
	if err != nil {
		return nil, err
	}
	return &Store{
		StateStorage: NewStateStorage(raw),
		DB:           NewDB(raw),
		raw:          raw,
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.raw.Close()
}

// Size returns the on-disk size in bytes.
func (s *Store) Size() (int64, error) {
	return s.raw.Size()
}

// RunGC runs value log garbage collection.
func (s *Store) RunGC(discardRatio float64) error {
	return s.raw.RunGC(discardRatio)
}
