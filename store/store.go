// Package store defines the storage capability the wallet persistence layer
// runs on: a byte-keyed transactional key-value database with explicit flush
// control, plus the per-handle update counter that drives the periodic flush
// policy. Two implementations are provided, a bbolt-backed file database and
// an in-memory database for tests.
package store

// DefaultFlushThreshold is the number of logical updates between automatic
// flushes. It bounds durability lag, not correctness: unflushed writes stay
// visible to reads within the session but may be lost on abnormal
// termination.
const DefaultFlushThreshold = 1000

// Database is the backend capability surface. Implementations are not
// required to be safe for concurrent use; callers serialize access through a
// wallet-wide lock. All calls are synchronous and non-cancellable: a call
// either completes or reports failure.
type Database interface {
	// Read returns the value stored under key, or ErrKeyNotFound.
	Read(key []byte) ([]byte, error)

	// Write stores value under key. With overwrite false, a colliding key
	// fails with ErrKeyExists and the stored value is unchanged.
	Write(key, value []byte, overwrite bool) error

	// Erase removes the record under key, or returns ErrKeyNotFound.
	Erase(key []byte) error

	// Exists reports whether a record is stored under key.
	Exists(key []byte) (bool, error)

	// ForEach calls fn for every record in storage order. The slices
	// passed to fn are only valid for the duration of the call. A non-nil
	// error from fn stops the scan and is returned.
	ForEach(fn func(key, value []byte) error) error

	// Flush forces buffered state to stable storage.
	Flush() error

	// TxnBegin opens an explicit transaction. Until TxnCommit or
	// TxnAbort, every operation joins it and none of its effects survive
	// an abort. Transactions do not nest.
	TxnBegin() error

	// TxnCommit atomically applies the open transaction.
	TxnCommit() error

	// TxnAbort discards the open transaction.
	TxnAbort() error

	// IncrementUpdateCounter bumps the handle's update counter and
	// returns the new value. The counter counts logical write and erase
	// operations for the flush policy; it is never persisted.
	IncrementUpdateCounter() uint64

	// UpdateCounter returns the current update counter.
	UpdateCounter() uint64

	// Close releases the handle. An open transaction is discarded.
	Close() error
}

// ShouldFlush reports whether an update counter value lands on a flush
// boundary for the given threshold.
func ShouldFlush(counter, threshold uint64) bool {
	return threshold > 0 && counter%threshold == 0
}
