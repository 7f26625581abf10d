package records

import (
	"testing"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyPair(t *testing.T) (pub, priv []byte) {
	t.Helper()
	key, err := ec.NewPrivateKey()
	require.NoError(t, err)
	return key.PubKey().Compressed(), key.Serialize()
}

func TestHDChain_RoundTrip(t *testing.T) {
	pub, _ := testKeyPair(t)
	chain := &HDChain{
		Version:         HDChainVersionCurrent,
		ExternalCounter: 5,
		InternalCounter: 3,
		SeedID:          KeyIDFromPubKey(pub),
	}

	got, err := DeserializeHDChain(chain.Serialize())
	require.NoError(t, err)
	assert.Equal(t, chain, got)
}

func TestHDChain_PreSplitVersionOmitsInternal(t *testing.T) {
	chain := &HDChain{
		Version:         HDChainVersionBase,
		ExternalCounter: 9,
		InternalCounter: 4, // must not be serialized at the base version
	}

	got, err := DeserializeHDChain(chain.Serialize())
	require.NoError(t, err)
	assert.Equal(t, uint32(9), got.ExternalCounter)
	assert.Equal(t, uint32(0), got.InternalCounter)
}

func TestHDChain_NewerVersionIgnoresTrailing(t *testing.T) {
	chain := &HDChain{
		Version:         HDChainVersionCurrent + 5,
		ExternalCounter: 2,
		InternalCounter: 1,
	}
	payload := append(chain.Serialize(), 0xde, 0xad, 0xbe, 0xef)

	got, err := DeserializeHDChain(payload)
	require.NoError(t, err)
	assert.Equal(t, chain.Version, got.Version)
	assert.Equal(t, uint32(2), got.ExternalCounter)
	assert.Equal(t, uint32(1), got.InternalCounter)
}

func TestHDChain_Truncated(t *testing.T) {
	chain := NewHDChain()
	payload := chain.Serialize()
	_, err := DeserializeHDChain(payload[:len(payload)-2])
	require.ErrorIs(t, err, ErrCorruptRecord)
}

func TestKeyMetadata_RoundTripCurrent(t *testing.T) {
	pub, _ := testKeyPair(t)
	meta := &KeyMetadata{
		Version:      MetadataVersionCurrent,
		CreateTime:   1700000000,
		HDKeypath:    "m/0'/0'/7'",
		HDSeedID:     KeyIDFromPubKey(pub),
		Origin:       KeyOrigin{Fingerprint: [4]byte{1, 2, 3, 4}, Path: []uint32{0x80000000, 7}},
		HasKeyOrigin: true,
	}

	got, err := DeserializeKeyMetadata(meta.Serialize())
	require.NoError(t, err)
	assert.Equal(t, meta, got)
}

func TestKeyMetadata_BasicVersionDefaults(t *testing.T) {
	meta := &KeyMetadata{Version: MetadataVersionBasic, CreateTime: 12345}

	got, err := DeserializeKeyMetadata(meta.Serialize())
	require.NoError(t, err)
	assert.Equal(t, int64(12345), got.CreateTime)
	assert.Empty(t, got.HDKeypath)
	assert.True(t, got.HDSeedID.IsZero())
	assert.False(t, got.HasKeyOrigin)
	assert.Empty(t, got.Origin.Path)
}

func TestKeyMetadata_HDDataVersionStopsBeforeOrigin(t *testing.T) {
	meta := &KeyMetadata{
		Version:    MetadataVersionWithHDData,
		CreateTime: 99,
		HDKeypath:  "m/0'/1/2",
	}

	got, err := DeserializeKeyMetadata(meta.Serialize())
	require.NoError(t, err)
	assert.Equal(t, "m/0'/1/2", got.HDKeypath)
	assert.False(t, got.HasKeyOrigin)
}

func TestMasterKey_RoundTrip(t *testing.T) {
	mkey := &MasterKey{
		Version:          MasterKeyVersionCurrent,
		EncryptedKey:     []byte{9, 9, 9, 9},
		Salt:             []byte{1, 1, 1, 1, 1, 1, 1, 1},
		DerivationMethod: 1,
		DeriveIterations: 25000,
		OtherParams:      []byte{},
	}

	got, err := DeserializeMasterKey(mkey.Serialize())
	require.NoError(t, err)
	assert.Equal(t, mkey, got)
}

func TestWalletTx_RoundTrip(t *testing.T) {
	tx := &WalletTx{
		Version:      TxVersionCurrent,
		Raw:          []byte{0x01, 0x00, 0x00, 0x00, 0x00},
		TimeReceived: 1690001234,
		FromMe:       true,
		OrderPos:     17,
	}

	got, err := DeserializeWalletTx(tx.Serialize())
	require.NoError(t, err)
	assert.Equal(t, tx, got)
}

func TestKeyPool_RoundTripAndVersionGate(t *testing.T) {
	pub, _ := testKeyPair(t)
	entry := &KeyPool{
		Version:  PoolVersionCurrent,
		Time:     1650000000,
		PubKey:   pub,
		Internal: true,
	}
	got, err := DeserializeKeyPool(entry.Serialize())
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	// Pre-split entries have no internal flag and load as external.
	old := &KeyPool{Version: PoolVersionBase, Time: 10, PubKey: pub, Internal: true}
	got, err = DeserializeKeyPool(old.Serialize())
	require.NoError(t, err)
	assert.False(t, got.Internal)
}

func TestDescriptor_RoundTrip(t *testing.T) {
	desc := &Descriptor{
		Version:      DescriptorVersionCurrent,
		Code:         "wpkh([d34db33f/84'/0'/0']xpub.../0/*)",
		CreationTime: 1600000000,
		RangeStart:   0,
		RangeEnd:     999,
		NextIndex:    12,
	}

	got, err := DeserializeDescriptor(desc.Serialize())
	require.NoError(t, err)
	assert.Equal(t, desc, got)
}

func TestBlockLocator_RoundTrip(t *testing.T) {
	loc := &BlockLocator{
		Version: LocatorVersionCurrent,
		Hashes: []chainhash.Hash{
			chainhash.DoubleHashH([]byte("block 1")),
			chainhash.DoubleHashH([]byte("block 2")),
		},
	}

	got, err := DeserializeBlockLocator(loc.Serialize())
	require.NoError(t, err)
	assert.Equal(t, loc, got)

	empty := &BlockLocator{Version: LocatorVersionCurrent}
	got, err = DeserializeBlockLocator(empty.Serialize())
	require.NoError(t, err)
	assert.Empty(t, got.Hashes)
}

func TestKeyRecord_RoundTrip(t *testing.T) {
	pub, priv := testKeyPair(t)
	got, err := DeserializeKey(pub, SerializeKey(pub, priv))
	require.NoError(t, err)
	assert.Equal(t, priv, got)
}

func TestKeyRecord_ChecksumMismatch(t *testing.T) {
	pub, priv := testKeyPair(t)
	otherPub, _ := testKeyPair(t)

	// A key record stored under the wrong public key must not load.
	_, err := DeserializeKey(otherPub, SerializeKey(pub, priv))
	require.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestKeyRecord_LegacyWithoutChecksum(t *testing.T) {
	pub, priv := testKeyPair(t)
	w := NewWriter()
	w.VarBytes(priv)

	got, err := DeserializeKey(pub, w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, priv, got)
}

func TestKeyRecord_TruncatedChecksum(t *testing.T) {
	pub, priv := testKeyPair(t)
	value := SerializeKey(pub, priv)
	_, err := DeserializeKey(pub, value[:len(value)-5])
	require.ErrorIs(t, err, ErrCorruptRecord)
}

func TestCryptedKeyRecord_RoundTrip(t *testing.T) {
	pub, _ := testKeyPair(t)
	secret := []byte("opaque-auditor-proof-ciphertext-bytes-48-long...")

	got, err := DeserializeCryptedKey(pub, SerializeCryptedKey(pub, secret))
	require.NoError(t, err)
	assert.Equal(t, secret, got)

	// Older writers stored the ciphertext with no checksum.
	w := NewWriter()
	w.VarBytes(secret)
	got, err = DeserializeCryptedKey(pub, w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func TestKeyID_Derivation(t *testing.T) {
	pub, _ := testKeyPair(t)
	id := KeyIDFromPubKey(pub)
	assert.False(t, id.IsZero())
	assert.Equal(t, id, KeyIDFromPubKey(pub))
}

func TestValidatePubKey(t *testing.T) {
	pub, _ := testKeyPair(t)
	assert.NoError(t, ValidatePubKey(pub))

	// 33 bytes that are not a point on the curve.
	bad := make([]byte, 33)
	bad[0] = 0x02
	assert.ErrorIs(t, ValidatePubKey(bad), ErrInvalidPubKey)
	assert.ErrorIs(t, ValidatePubKey(nil), ErrInvalidPubKey)
}

func TestWKeyKey_TagPrefix(t *testing.T) {
	pub, _ := testKeyPair(t)
	tag, idr, err := SplitTag(WKeyKey(pub))
	require.NoError(t, err)
	assert.Equal(t, TagWKey, tag)
	assert.Equal(t, pub, idr.VarBytes())
}

func TestRecordKeys_TagPrefix(t *testing.T) {
	pub, _ := testKeyPair(t)
	txid := chainhash.DoubleHashH([]byte("tx"))

	cases := map[string][]byte{
		TagName:            NameKey("addr1"),
		TagTx:              TxKey(txid),
		TagKey:             KeyKey(pub),
		TagCryptedKey:      CryptedKeyKey(pub),
		TagKeyMetadata:     KeyMetadataKey(pub),
		TagMasterKey:       MasterKeyKey(1),
		TagPool:            PoolKey(42),
		TagHDChain:         HDChainKey(),
		TagMinVersion:      MinVersionKey(),
		TagDestData:        DestDataKey("addr1", "rr"),
		TagDescriptorCache: DescriptorParentCacheKey(txid, 0),
	}
	for wantTag, key := range cases {
		tag, _, err := SplitTag(key)
		require.NoError(t, err)
		assert.Equal(t, wantTag, tag)
	}
}

func TestDescriptorCacheKeys_Distinguishable(t *testing.T) {
	descID := chainhash.DoubleHashH([]byte("descriptor"))

	derived := DescriptorDerivedCacheKey(descID, 1, 7)
	parent := DescriptorParentCacheKey(descID, 1)
	assert.NotEqual(t, derived, parent)

	// The parent key is the derived key minus the derivation index.
	assert.Equal(t, derived[:len(derived)-4], parent)
}
