package state

import (
	"encoding/binary"
	"fmt"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/wippyai/ribosome/action"
)

// Backend selects the database implementation.
type Backend string

const (
	BackendMemDB     Backend = "memdb"
	BackendGoLevelDB Backend = "goleveldb"
)

const dbName = "ribosome"

var entryPrefix = []byte("entry/")

// Store keeps entries by content address.
type Store struct {
	db dbm.DB
}

// NewStore opens a store. dir is ignored for the memdb backend.
func NewStore(backend Backend, dir string) (*Store, error) {
	switch backend {
	case BackendMemDB, "":
		return &Store{db: dbm.NewMemDB()}, nil
	case BackendGoLevelDB:
		if dir == "" {
			return nil, fmt.Errorf("backend %s needs a directory", backend)
		}
		db, err := dbm.NewDB(dbName, dbm.GoLevelDBBackend, dir)
		if err != nil {
			return nil, fmt.Errorf("open %s store in %s: %w", backend, dir, err)
		}
		return &Store{db: db}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// Put stores e durably and returns its address. Storing an entry twice is a no-op.
func (s *Store) Put(e action.Entry) (action.Address, error) {
	addr, err := e.Address()
	if err != nil {
		return 0, err
	}
	data, err := e.Encode()
	if err != nil {
		return 0, err
	}
	if err := s.db.SetSync(entryKey(addr), data); err != nil {
		return 0, fmt.Errorf("store entry %s: %w", addr, err)
	}
	return addr, nil
}

// Get loads the entry at addr.
func (s *Store) Get(addr action.Address) (action.Entry, bool, error) {
	data, err := s.db.Get(entryKey(addr))
	if err != nil {
		return action.Entry{}, false, fmt.Errorf("load entry %s: %w", addr, err)
	}
	if data == nil {
		return action.Entry{}, false, nil
	}
	e, err := action.DecodeEntry(data)
	if err != nil {
		return action.Entry{}, false, err
	}
	return e, true, nil
}

// Has reports whether an entry is stored at addr.
func (s *Store) Has(addr action.Address) (bool, error) {
	return s.db.Has(entryKey(addr))
}

// Entries lists every stored address in ascending order.
func (s *Store) Entries() ([]action.Address, error) {
	it, err := dbm.IteratePrefix(s.db, entryPrefix)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []action.Address
	for ; it.Valid(); it.Next() {
		key := it.Key()
		if len(key) != len(entryPrefix)+8 {
			continue
		}
		out = append(out, action.Address(binary.BigEndian.Uint64(key[len(entryPrefix):])))
	}
	return out, it.Error()
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func entryKey(addr action.Address) []byte {
	key := make([]byte, len(entryPrefix)+8)
	copy(key, entryPrefix)
	binary.BigEndian.PutUint64(key[len(entryPrefix):], uint64(addr))
	return key
}
