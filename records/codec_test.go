package records

import (
	"testing"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReader_Primitives(t *testing.T) {
	w := NewWriter()
	w.Uint8(0xab)
	w.Bool(true)
	w.Bool(false)
	w.Uint32(0xdeadbeef)
	w.Uint64(1<<40 + 7)
	w.Int32(-42)
	w.Int64(-1)
	w.String("hdchain")
	w.VarBytes([]byte{1, 2, 3})

	r := NewReader(w.Bytes())
	assert.Equal(t, uint8(0xab), r.Uint8())
	assert.True(t, r.Bool())
	assert.False(t, r.Bool())
	assert.Equal(t, uint32(0xdeadbeef), r.Uint32())
	assert.Equal(t, uint64(1<<40+7), r.Uint64())
	assert.Equal(t, int32(-42), r.Int32())
	assert.Equal(t, int64(-1), r.Int64())
	assert.Equal(t, "hdchain", r.String())
	assert.Equal(t, []byte{1, 2, 3}, r.VarBytes())
	require.NoError(t, r.Err())
	assert.Equal(t, 0, r.Remaining())
}

func TestCompactSize_Boundaries(t *testing.T) {
	for _, n := range []uint64{0, 1, 0xfc, 0xfd, 0xffff, 0x10000, 0xffffffff, 1 << 40} {
		w := NewWriter()
		w.CompactSize(n)
		r := NewReader(w.Bytes())
		assert.Equal(t, n, r.CompactSize(), "n=%d", n)
		require.NoError(t, r.Err())
	}
}

func TestReader_TruncationSticks(t *testing.T) {
	w := NewWriter()
	w.Uint32(7)
	data := w.Bytes()[:2]

	r := NewReader(data)
	r.Uint32()
	require.ErrorIs(t, r.Err(), ErrCorruptRecord)

	// Every read after the first failure keeps failing and returns zero.
	assert.Equal(t, uint64(0), r.Uint64())
	assert.Nil(t, r.VarBytes())
	require.ErrorIs(t, r.Err(), ErrCorruptRecord)
}

func TestVarBytes_LengthBeyondPayload(t *testing.T) {
	w := NewWriter()
	w.CompactSize(100)
	w.RawBytes([]byte{1, 2, 3})

	r := NewReader(w.Bytes())
	assert.Nil(t, r.VarBytes())
	require.ErrorIs(t, r.Err(), ErrCorruptRecord)
}

func TestVarBytes_OversizePrefix(t *testing.T) {
	w := NewWriter()
	w.CompactSize(MaxRecordSize + 1)

	r := NewReader(w.Bytes())
	r.VarBytes()
	require.ErrorIs(t, r.Err(), ErrCorruptRecord)
}

func TestSplitTag(t *testing.T) {
	txid := chainhash.DoubleHashH([]byte("some tx"))
	tag, idr, err := SplitTag(TxKey(txid))
	require.NoError(t, err)
	assert.Equal(t, TagTx, tag)
	assert.Equal(t, txid, idr.Hash())
	require.NoError(t, idr.Err())
	assert.Equal(t, 0, idr.Remaining())
}

func TestSplitTag_Garbage(t *testing.T) {
	// Length prefix far beyond the key bytes.
	_, _, err := SplitTag([]byte{0xff, 0x01})
	require.ErrorIs(t, err, ErrCorruptRecord)
}

func TestIsKeyType(t *testing.T) {
	for _, tag := range []string{
		TagKey, TagWKey, TagCryptedKey, TagMasterKey, TagKeyMetadata,
		TagHDChain, TagDescriptorKey, TagDescriptorCryptedKey,
	} {
		assert.True(t, IsKeyType(tag), tag)
	}
	for _, tag := range []string{
		TagName, TagTx, TagPool, TagBestBlock, TagDestData, TagDescriptorCache, "bogus",
	} {
		assert.False(t, IsKeyType(tag), tag)
	}
}
