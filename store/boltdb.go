package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.etcd.io/bbolt"
)

// RecordsBucket is the single bbolt bucket holding every wallet record.
var RecordsBucket = []byte("walletrecords")

// BoltDatabase is a Database backed by a bbolt file. One file is one logical
// wallet. The handle is not safe for concurrent use.
type BoltDatabase struct {
	db      *bbolt.DB
	path    string
	tx      *bbolt.Tx // open explicit transaction, nil otherwise
	updates atomic.Uint64
	closed  bool
}

// Compile-time interface check.
var _ Database = (*BoltDatabase)(nil)

// OpenBolt opens or creates the wallet database at dbPath. The parent
// directory is created if it does not exist.
func OpenBolt(dbPath string) (*BoltDatabase, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(RecordsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create records bucket: %w", err)
	}

	return &BoltDatabase{db: db, path: dbPath}, nil
}

// Path returns the file path the database was opened at.
func (d *BoltDatabase) Path() string { return d.path }

// view runs fn against the open explicit transaction if there is one,
// otherwise inside a short read transaction.
func (d *BoltDatabase) view(fn func(*bbolt.Bucket) error) error {
	if d.closed {
		return ErrClosed
	}
	if d.tx != nil {
		return fn(d.tx.Bucket(RecordsBucket))
	}
	return d.db.View(func(tx *bbolt.Tx) error {
		return fn(tx.Bucket(RecordsBucket))
	})
}

// update runs fn against the open explicit transaction if there is one,
// otherwise inside its own write transaction.
func (d *BoltDatabase) update(fn func(*bbolt.Bucket) error) error {
	if d.closed {
		return ErrClosed
	}
	if d.tx != nil {
		return fn(d.tx.Bucket(RecordsBucket))
	}
	return d.db.Update(func(tx *bbolt.Tx) error {
		return fn(tx.Bucket(RecordsBucket))
	})
}

// Read returns a copy of the value stored under key.
func (d *BoltDatabase) Read(key []byte) ([]byte, error) {
	var value []byte
	err := d.view(func(b *bbolt.Bucket) error {
		v := b.Get(key)
		if v == nil {
			return ErrKeyNotFound
		}
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Write stores value under key, honoring the overwrite guard.
func (d *BoltDatabase) Write(key, value []byte, overwrite bool) error {
	return d.update(func(b *bbolt.Bucket) error {
		if !overwrite && b.Get(key) != nil {
			return ErrKeyExists
		}
		if err := b.Put(key, value); err != nil {
			return fmt.Errorf("store: put: %w", err)
		}
		return nil
	})
}

// Erase removes the record under key.
func (d *BoltDatabase) Erase(key []byte) error {
	return d.update(func(b *bbolt.Bucket) error {
		if b.Get(key) == nil {
			return ErrKeyNotFound
		}
		if err := b.Delete(key); err != nil {
			return fmt.Errorf("store: delete: %w", err)
		}
		return nil
	})
}

// Exists reports whether a record is stored under key.
func (d *BoltDatabase) Exists(key []byte) (bool, error) {
	var found bool
	err := d.view(func(b *bbolt.Bucket) error {
		found = b.Get(key) != nil
		return nil
	})
	return found, err
}

// ForEach streams every record in key order.
func (d *BoltDatabase) ForEach(fn func(key, value []byte) error) error {
	return d.view(func(b *bbolt.Bucket) error {
		return b.ForEach(fn)
	})
}

// Flush fsyncs the database file.
func (d *BoltDatabase) Flush() error {
	if d.closed {
		return ErrClosed
	}
	if err := d.db.Sync(); err != nil {
		return fmt.Errorf("store: sync: %w", err)
	}
	return nil
}

// TxnBegin opens an explicit write transaction.
func (d *BoltDatabase) TxnBegin() error {
	if d.closed {
		return ErrClosed
	}
	if d.tx != nil {
		return ErrTxnActive
	}
	tx, err := d.db.Begin(true)
	if err != nil {
		return fmt.Errorf("store: begin txn: %w", err)
	}
	d.tx = tx
	return nil
}

// TxnCommit applies the open transaction.
func (d *BoltDatabase) TxnCommit() error {
	if d.closed {
		return ErrClosed
	}
	if d.tx == nil {
		return ErrNoTxnActive
	}
	err := d.tx.Commit()
	d.tx = nil
	if err != nil {
		return fmt.Errorf("store: commit txn: %w", err)
	}
	return nil
}

// TxnAbort discards the open transaction.
func (d *BoltDatabase) TxnAbort() error {
	if d.closed {
		return ErrClosed
	}
	if d.tx == nil {
		return ErrNoTxnActive
	}
	err := d.tx.Rollback()
	d.tx = nil
	if err != nil {
		return fmt.Errorf("store: abort txn: %w", err)
	}
	return nil
}

// IncrementUpdateCounter bumps and returns the handle's update counter.
func (d *BoltDatabase) IncrementUpdateCounter() uint64 {
	return d.updates.Add(1)
}

// UpdateCounter returns the handle's update counter.
func (d *BoltDatabase) UpdateCounter() uint64 {
	return d.updates.Load()
}

// Close discards any open transaction and closes the file.
func (d *BoltDatabase) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.tx != nil {
		_ = d.tx.Rollback()
		d.tx = nil
	}
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
