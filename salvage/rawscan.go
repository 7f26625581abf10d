package salvage

import (
	"encoding/binary"
)

// Raw scan of a bbolt database file. Instead of walking the B+tree (whose
// structure is exactly what corruption destroys), every page-sized region
// is inspected for a plausible leaf page and its key/value cells extracted
// with bounds checks. A cell that fails the raw framing is dropped rather
// than aborting the scan.
//
// bbolt writes its page structs in native byte order; little-endian hosts
// are assumed, which covers every platform this ships on.
const (
	pageHeaderSize   = 16 // id(8) flags(2) count(2) overflow(4)
	leafElemSize     = 16 // flags(4) pos(4) ksize(4) vsize(4)
	bucketHeaderSize = 16 // root pgid(8) sequence(8)

	leafPageFlag   = 0x02
	bucketLeafFlag = 0x01

	metaMagic       = 0xED0CDAED
	defaultPageSize = 4096
	minPageSize     = 512
	maxPageSize     = 64 * 1024

	// maxCellSize rejects absurd ksize/vsize values that a garbled
	// element table would otherwise turn into huge slices.
	maxCellSize = 1 << 24
)

// rawRecord is one key/value cell extracted from the file.
type rawRecord struct {
	key   []byte
	value []byte
}

// detectPageSize reads the page size out of either meta page, falling back
// to probing common sizes and finally the default.
func detectPageSize(data []byte) int {
	// Meta page 0 sits at offset 0 regardless of page size.
	if ps, ok := metaPageSize(data, 0); ok {
		return ps
	}
	// Meta page 1 sits at offset pageSize; probe for it.
	for _, ps := range []int{4096, 8192, 16384, 32768, 65536, 512, 1024, 2048} {
		if _, ok := metaPageSize(data, ps); ok {
			return ps
		}
	}
	return defaultPageSize
}

// metaPageSize validates a meta page at off and returns its page size.
func metaPageSize(data []byte, off int) (int, bool) {
	if off+pageHeaderSize+12 > len(data) {
		return 0, false
	}
	meta := data[off+pageHeaderSize:]
	if binary.LittleEndian.Uint32(meta[0:4]) != metaMagic {
		return 0, false
	}
	ps := int(binary.LittleEndian.Uint32(meta[8:12]))
	if ps < minPageSize || ps > maxPageSize || ps&(ps-1) != 0 {
		return 0, false
	}
	return ps, true
}

// scanRawRecords extracts every well-formed leaf cell in the file. Shadow
// copies of a key left behind by copy-on-write page updates are
// deduplicated, first occurrence wins. Page offset does not order page
// versions, so the surviving copy can be a stale one; with no readable
// meta page there is nothing to order versions by, and for salvage any
// well-formed copy of a record beats losing it.
func scanRawRecords(data []byte) []rawRecord {
	pageSize := detectPageSize(data)

	var out []rawRecord
	seen := make(map[string]bool)
	emit := func(key, value []byte) {
		if len(key) == 0 || seen[string(key)] {
			return
		}
		seen[string(key)] = true
		out = append(out, rawRecord{
			key:   append([]byte(nil), key...),
			value: append([]byte(nil), value...),
		})
	}

	for off := 0; off+pageHeaderSize <= len(data); off += pageSize {
		flags := binary.LittleEndian.Uint16(data[off+8 : off+10])
		if flags != leafPageFlag {
			continue
		}
		// Values may spill onto overflow pages directly after this
		// one; extend the readable window accordingly.
		overflow := int(binary.LittleEndian.Uint32(data[off+12 : off+16]))
		if overflow < 0 || overflow > len(data)/pageSize {
			overflow = 0
		}
		end := off + (1+overflow)*pageSize
		if end > len(data) {
			end = len(data)
		}
		scanLeafPage(data[off:end], emit)
	}
	return out
}

// scanLeafPage extracts the cells of one leaf page (or of an inline bucket
// embedded in a parent's cell). Every offset is validated against the
// window; a cell that does not fit is skipped.
func scanLeafPage(page []byte, emit func(key, value []byte)) {
	if len(page) < pageHeaderSize {
		return
	}
	count := int(binary.LittleEndian.Uint16(page[10:12]))

	for i := 0; i < count; i++ {
		elemOff := pageHeaderSize + i*leafElemSize
		if elemOff+leafElemSize > len(page) {
			return
		}
		elem := page[elemOff : elemOff+leafElemSize]
		flags := binary.LittleEndian.Uint32(elem[0:4])
		pos := int(binary.LittleEndian.Uint32(elem[4:8]))
		ksize := int(binary.LittleEndian.Uint32(elem[8:12]))
		vsize := int(binary.LittleEndian.Uint32(elem[12:16]))

		if ksize <= 0 || ksize > maxCellSize || vsize < 0 || vsize > maxCellSize {
			continue
		}
		kStart := elemOff + pos
		kEnd := kStart + ksize
		vEnd := kEnd + vsize
		if pos <= 0 || kStart >= len(page) || kEnd > len(page) || vEnd > len(page) {
			continue
		}
		key := page[kStart:kEnd]
		value := page[kEnd:vEnd]

		if flags&bucketLeafFlag != 0 {
			// A nested bucket. If its root page id is zero the whole
			// bucket is inlined here as an embedded page; otherwise
			// its pages are found by the outer boundary scan.
			if len(value) > bucketHeaderSize &&
				binary.LittleEndian.Uint64(value[0:8]) == 0 {
				inline := value[bucketHeaderSize:]
				if len(inline) >= pageHeaderSize &&
					binary.LittleEndian.Uint16(inline[8:10]) == leafPageFlag {
					scanLeafPage(inline, emit)
				}
			}
			continue
		}
		emit(key, value)
	}
}
