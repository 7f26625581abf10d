package records

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bsv-blockchain/go-sdk/chainhash"
)

// MaxRecordSize bounds any single length-prefixed field. A prefix above this
// is treated as corruption rather than attempted as an allocation.
const MaxRecordSize = 1 << 24

// Writer accumulates the little-endian binary encoding of a record.
// Variable-length fields carry a Bitcoin-style compact-size prefix.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty record writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated encoding.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Uint8 appends a single byte.
func (w *Writer) Uint8(v uint8) { w.buf.WriteByte(v) }

// Bool appends a boolean as one byte.
func (w *Writer) Bool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// Uint32 appends a little-endian uint32.
func (w *Writer) Uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// Uint64 appends a little-endian uint64.
func (w *Writer) Uint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// Int32 appends a little-endian two's-complement int32.
func (w *Writer) Int32(v int32) { w.Uint32(uint32(v)) }

// Int64 appends a little-endian two's-complement int64.
func (w *Writer) Int64(v int64) { w.Uint64(uint64(v)) }

// CompactSize appends a Bitcoin compact-size integer.
func (w *Writer) CompactSize(n uint64) {
	switch {
	case n < 0xfd:
		w.buf.WriteByte(byte(n))
	case n <= 0xffff:
		w.buf.WriteByte(0xfd)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(n))
		w.buf.Write(b[:])
	case n <= 0xffffffff:
		w.buf.WriteByte(0xfe)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(n))
		w.buf.Write(b[:])
	default:
		w.buf.WriteByte(0xff)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], n)
		w.buf.Write(b[:])
	}
}

// VarBytes appends a compact-size length prefix followed by b.
func (w *Writer) VarBytes(b []byte) {
	w.CompactSize(uint64(len(b)))
	w.buf.Write(b)
}

// String appends s as compact-size-prefixed bytes.
func (w *Writer) String(s string) { w.VarBytes([]byte(s)) }

// RawBytes appends b with no length prefix.
func (w *Writer) RawBytes(b []byte) { w.buf.Write(b) }

// Hash appends a 32-byte hash verbatim.
func (w *Writer) Hash(h chainhash.Hash) { w.buf.Write(h[:]) }

// KeyID appends a 20-byte key id verbatim.
func (w *Writer) KeyID(id KeyID) { w.buf.Write(id[:]) }

// Reader decodes the encoding produced by Writer. The first structural
// failure sticks: every subsequent read returns the zero value and Err
// reports the original cause wrapped in ErrCorruptRecord.
type Reader struct {
	r   *bytes.Reader
	err error
}

// NewReader returns a reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{r: bytes.NewReader(b)}
}

// Err returns the first decoding error encountered, or nil.
func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return r.r.Len() }

func (r *Reader) fail(context string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s: %v", ErrCorruptRecord, context, err)
	}
}

func (r *Reader) read(b []byte, context string) {
	if r.err != nil {
		return
	}
	if _, err := io.ReadFull(r.r, b); err != nil {
		r.fail(context, err)
	}
}

// Uint8 reads a single byte.
func (r *Reader) Uint8() uint8 {
	var b [1]byte
	r.read(b[:], "uint8")
	return b[0]
}

// Bool reads one byte and reports whether it is non-zero.
func (r *Reader) Bool() bool { return r.Uint8() != 0 }

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() uint32 {
	var b [4]byte
	r.read(b[:], "uint32")
	return binary.LittleEndian.Uint32(b[:])
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64() uint64 {
	var b [8]byte
	r.read(b[:], "uint64")
	return binary.LittleEndian.Uint64(b[:])
}

// Int32 reads a little-endian int32.
func (r *Reader) Int32() int32 { return int32(r.Uint32()) }

// Int64 reads a little-endian int64.
func (r *Reader) Int64() int64 { return int64(r.Uint64()) }

// CompactSize reads a Bitcoin compact-size integer.
func (r *Reader) CompactSize() uint64 {
	marker := r.Uint8()
	if r.err != nil {
		return 0
	}
	switch marker {
	case 0xfd:
		var b [2]byte
		r.read(b[:], "compactsize16")
		return uint64(binary.LittleEndian.Uint16(b[:]))
	case 0xfe:
		var b [4]byte
		r.read(b[:], "compactsize32")
		return uint64(binary.LittleEndian.Uint32(b[:]))
	case 0xff:
		var b [8]byte
		r.read(b[:], "compactsize64")
		return binary.LittleEndian.Uint64(b[:])
	default:
		return uint64(marker)
	}
}

// VarBytes reads a compact-size length prefix and that many bytes. A prefix
// exceeding the remaining payload or MaxRecordSize fails the reader.
func (r *Reader) VarBytes() []byte {
	n := r.CompactSize()
	if r.err != nil {
		return nil
	}
	if n > MaxRecordSize {
		r.fail("varbytes", ErrValueTooLarge)
		return nil
	}
	if n > uint64(r.r.Len()) {
		r.fail("varbytes", io.ErrUnexpectedEOF)
		return nil
	}
	b := make([]byte, n)
	r.read(b, "varbytes")
	return b
}

// String reads compact-size-prefixed bytes as a string.
func (r *Reader) String() string { return string(r.VarBytes()) }

// Hash reads a 32-byte hash.
func (r *Reader) Hash() chainhash.Hash {
	var h chainhash.Hash
	r.read(h[:], "hash")
	return h
}

// KeyID reads a 20-byte key id.
func (r *Reader) KeyID() KeyID {
	var id KeyID
	r.read(id[:], "keyid")
	return id
}

// RawBytes reads exactly n bytes with no length prefix.
func (r *Reader) RawBytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.r.Len() {
		r.fail("rawbytes", io.ErrUnexpectedEOF)
		return nil
	}
	b := make([]byte, n)
	r.read(b, "rawbytes")
	return b
}

// Rest reads all remaining bytes.
func (r *Reader) Rest() []byte { return r.RawBytes(r.Remaining()) }

// SplitTag decodes the leading tag string of a raw database key and returns
// it together with a reader positioned at the type-specific identifier.
func SplitTag(rawKey []byte) (string, *Reader, error) {
	r := NewReader(rawKey)
	tag := r.String()
	if err := r.Err(); err != nil {
		return "", nil, err
	}
	return tag, r, nil
}
