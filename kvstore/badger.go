package kvstore

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps values in an embedded badger database
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a badger database at path. An empty path keeps everything in memory.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

// Get reads the value stored for key
func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(
		func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(key))
			if err != nil {
				return err
			}
			value, err = item.ValueCopy(nil)
			return err
		},
	)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set writes value under key
func (s *BadgerStore) Set(_ context.Context, key string, value []byte) error {
	return s.db.Update(
		func(txn *badger.Txn) error {
			return txn.Set([]byte(key), value)
		},
	)
}

// Delete deletes the value associated with the given key from the database
func (s *BadgerStore) Delete(_ context.Context, key string) error {
	return s.db.Update(
		func(txn *badger.Txn) error {
			return txn.Delete([]byte(key))
		},
	)
}

// Each iterates over all stored pairs in key order
func (s *BadgerStore) Each(ctx context.Context, fn func(key string, value []byte) error) error {
	return s.db.View(
		func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Rewind(); it.Valid(); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				item := it.Item()
				value, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				if err = fn(string(item.KeyCopy(nil)), value); err != nil {
					return err
				}
			}
			return nil
		},
	)
}

// Close flushes and closes the database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
