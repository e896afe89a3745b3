package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for different record types
const (
	prefixStyle       = "s:" // style records by title
	prefixAssociation = "a:" // association records by key
)

// BadgerBackend is a BadgerDB-backed storage implementation.
type BadgerBackend struct {
	db          *badger.DB
	initialized bool
	readOnly    bool
	mu          sync.RWMutex
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true
	b.readOnly = readOnly
	return nil
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

// SaveStyle inserts or replaces a style by title.
func (b *BadgerBackend) SaveStyle(ctx context.Context, style StyleRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.writableLocked(); err != nil {
		return err
	}

	data, err := json.Marshal(style)
	if err != nil {
		return fmt.Errorf("marshaling style: %w", err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(styleKey(style.Title), data); err != nil {
			return fmt.Errorf("setting style: %w", err)
		}
		return nil
	})
}

// DeleteStyle removes a style and every association referencing it.
func (b *BadgerBackend) DeleteStyle(ctx context.Context, title string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.writableLocked(); err != nil {
		return err
	}

	txn := b.db.NewTransaction(true)
	defer txn.Discard()

	var keysToDelete [][]byte
	err := scan(txn, prefixAssociation, func(key []byte, assoc AssociationRecord) {
		if assoc.References(title) {
			keysToDelete = append(keysToDelete, key)
		}
	})
	if err != nil {
		return err
	}

	keysToDelete = append(keysToDelete, styleKey(title))
	for _, key := range keysToDelete {
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
	}

	return txn.Commit()
}

// Styles returns every stored style ordered by title.
func (b *BadgerBackend) Styles(ctx context.Context) ([]StyleRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.initialized {
		return nil, ErrNotInitialized
	}

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	var styles []StyleRecord
	err := scan(txn, prefixStyle, func(_ []byte, style StyleRecord) {
		styles = append(styles, style)
	})
	return styles, err
}

// SaveAssociation inserts or replaces an association by key.
func (b *BadgerBackend) SaveAssociation(ctx context.Context, assoc AssociationRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.writableLocked(); err != nil {
		return err
	}

	data, err := json.Marshal(assoc)
	if err != nil {
		return fmt.Errorf("marshaling association: %w", err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(associationKey(assoc.Key()), data)
	})
}

// DeleteAssociation removes the association with the given key.
func (b *BadgerBackend) DeleteAssociation(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.writableLocked(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(associationKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Associations returns every stored association ordered by key.
func (b *BadgerBackend) Associations(ctx context.Context) ([]AssociationRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.initialized {
		return nil, ErrNotInitialized
	}

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	var assocs []AssociationRecord
	err := scan(txn, prefixAssociation, func(_ []byte, assoc AssociationRecord) {
		assocs = append(assocs, assoc)
	})
	return assocs, err
}

func (b *BadgerBackend) writableLocked() error {
	if !b.initialized {
		return ErrNotInitialized
	}
	if b.readOnly {
		return ErrReadOnly
	}
	return nil
}

// scan decodes every value under prefix in key order.
func scan[T any](txn *badger.Txn, prefix string, fn func(key []byte, v T)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		var v T
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return fmt.Errorf("unmarshaling %s: %w", item.Key(), err)
		}
		fn(item.KeyCopy(nil), v)
	}
	return nil
}

func styleKey(title string) []byte {
	return []byte(prefixStyle + title)
}

func associationKey(key string) []byte {
	return []byte(prefixAssociation + key)
}
