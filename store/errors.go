package store

import "errors"

var (
	// ErrKeyNotFound indicates no record exists under the requested key.
	ErrKeyNotFound = errors.New("store: key not found")

	// ErrKeyExists indicates a non-overwrite write collided with an
	// existing record. The stored value is unchanged.
	ErrKeyExists = errors.New("store: key already exists")

	// ErrTxnActive indicates TxnBegin was called while a transaction is
	// already open. Transactions do not nest.
	ErrTxnActive = errors.New("store: transaction already active")

	// ErrNoTxnActive indicates TxnCommit or TxnAbort was called with no
	// open transaction.
	ErrNoTxnActive = errors.New("store: no active transaction")

	// ErrClosed indicates the database handle has been closed.
	ErrClosed = errors.New("store: database closed")
)
