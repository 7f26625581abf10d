package store

import (
	"sort"
	"sync/atomic"
)

// MemDatabase is an in-memory Database used to test the batch writer, loader
// and flush policy without touching disk. It additionally counts Flush calls
// so tests can assert the flush-trigger contract.
type MemDatabase struct {
	values  map[string][]byte
	txn     *memTxn
	updates atomic.Uint64
	flushes int
	closed  bool
}

// memTxn overlays pending writes and erases on the committed state until
// commit or abort.
type memTxn struct {
	writes map[string][]byte
	erases map[string]bool
}

// Compile-time interface check.
var _ Database = (*MemDatabase)(nil)

// NewMemDatabase returns an empty in-memory database.
func NewMemDatabase() *MemDatabase {
	return &MemDatabase{values: make(map[string][]byte)}
}

// FlushCalls returns how many times Flush has been invoked.
func (d *MemDatabase) FlushCalls() int { return d.flushes }

// get resolves key through the transaction overlay.
func (d *MemDatabase) get(key string) ([]byte, bool) {
	if d.txn != nil {
		if d.txn.erases[key] {
			return nil, false
		}
		if v, ok := d.txn.writes[key]; ok {
			return v, true
		}
	}
	v, ok := d.values[key]
	return v, ok
}

// Read returns a copy of the value stored under key.
func (d *MemDatabase) Read(key []byte) ([]byte, error) {
	if d.closed {
		return nil, ErrClosed
	}
	v, ok := d.get(string(key))
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Write stores value under key, honoring the overwrite guard.
func (d *MemDatabase) Write(key, value []byte, overwrite bool) error {
	if d.closed {
		return ErrClosed
	}
	k := string(key)
	if !overwrite {
		if _, ok := d.get(k); ok {
			return ErrKeyExists
		}
	}
	v := append([]byte(nil), value...)
	if d.txn != nil {
		delete(d.txn.erases, k)
		d.txn.writes[k] = v
		return nil
	}
	d.values[k] = v
	return nil
}

// Erase removes the record under key.
func (d *MemDatabase) Erase(key []byte) error {
	if d.closed {
		return ErrClosed
	}
	k := string(key)
	if _, ok := d.get(k); !ok {
		return ErrKeyNotFound
	}
	if d.txn != nil {
		delete(d.txn.writes, k)
		d.txn.erases[k] = true
		return nil
	}
	delete(d.values, k)
	return nil
}

// Exists reports whether a record is stored under key.
func (d *MemDatabase) Exists(key []byte) (bool, error) {
	if d.closed {
		return false, ErrClosed
	}
	_, ok := d.get(string(key))
	return ok, nil
}

// ForEach streams every record in key order, matching the file backend's
// deterministic iteration.
func (d *MemDatabase) ForEach(fn func(key, value []byte) error) error {
	if d.closed {
		return ErrClosed
	}
	keys := make([]string, 0, len(d.values))
	for k := range d.values {
		if d.txn != nil && d.txn.erases[k] {
			continue
		}
		keys = append(keys, k)
	}
	if d.txn != nil {
		for k := range d.txn.writes {
			if _, ok := d.values[k]; !ok {
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, _ := d.get(k)
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

// Flush records the flush call; memory needs no syncing.
func (d *MemDatabase) Flush() error {
	if d.closed {
		return ErrClosed
	}
	d.flushes++
	return nil
}

// TxnBegin opens an explicit transaction.
func (d *MemDatabase) TxnBegin() error {
	if d.closed {
		return ErrClosed
	}
	if d.txn != nil {
		return ErrTxnActive
	}
	d.txn = &memTxn{
		writes: make(map[string][]byte),
		erases: make(map[string]bool),
	}
	return nil
}

// TxnCommit applies the overlay to the committed state.
func (d *MemDatabase) TxnCommit() error {
	if d.closed {
		return ErrClosed
	}
	if d.txn == nil {
		return ErrNoTxnActive
	}
	for k := range d.txn.erases {
		delete(d.values, k)
	}
	for k, v := range d.txn.writes {
		d.values[k] = v
	}
	d.txn = nil
	return nil
}

// TxnAbort discards the overlay.
func (d *MemDatabase) TxnAbort() error {
	if d.closed {
		return ErrClosed
	}
	if d.txn == nil {
		return ErrNoTxnActive
	}
	d.txn = nil
	return nil
}

// IncrementUpdateCounter bumps and returns the handle's update counter.
func (d *MemDatabase) IncrementUpdateCounter() uint64 {
	return d.updates.Add(1)
}

// UpdateCounter returns the handle's update counter.
func (d *MemDatabase) UpdateCounter() uint64 {
	return d.updates.Load()
}

// Close discards any open transaction and marks the handle closed.
func (d *MemDatabase) Close() error {
	d.txn = nil
	d.closed = true
	return nil
}
