package salvage

import "errors"

var (
	// ErrEnvironment indicates the storage environment (directory, lock
	// file) cannot be used at all, as opposed to suspect file contents.
	ErrEnvironment = errors.New("salvage: storage environment unusable")

	// ErrEnvironmentLocked indicates another process holds the wallet
	// database lock.
	ErrEnvironmentLocked = errors.New("salvage: wallet database locked by another process")

	// ErrVerifyFailed indicates the database file failed the backend's
	// integrity check.
	ErrVerifyFailed = errors.New("salvage: database file failed integrity check")

	// ErrNoRecords indicates the raw scan found no records passing the
	// recovery filter; no backup was produced.
	ErrNoRecords = errors.New("salvage: no recoverable records found")
)
