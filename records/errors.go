package records

import "errors"

var (
	// ErrCorruptRecord indicates the record bytes are structurally invalid
	// (truncated, or a length prefix points past the end of the payload).
	ErrCorruptRecord = errors.New("records: corrupt record")

	// ErrChecksumMismatch indicates a key record's integrity checksum does
	// not match the stored key material.
	ErrChecksumMismatch = errors.New("records: key checksum mismatch")

	// ErrInvalidPubKey indicates a public key is not a valid compressed or
	// uncompressed SEC encoding.
	ErrInvalidPubKey = errors.New("records: invalid public key")

	// ErrValueTooLarge indicates a length prefix exceeds the maximum
	// allowed record payload size.
	ErrValueTooLarge = errors.New("records: length prefix exceeds maximum record size")
)
