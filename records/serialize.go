package records

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
)

// ValidatePubKey checks that pubKey parses as a point on the curve.
func ValidatePubKey(pubKey []byte) error {
	if _, err := ec.PublicKeyFromBytes(pubKey); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPubKey, err)
	}
	return nil
}

// Database key builders. Every key is the compact-size-prefixed tag string
// followed by the encoded domain identifier, so that a record's key is a
// deterministic function of its identity and a rewrite lands on the same
// slot.

func tagged(tag string) *Writer {
	w := NewWriter()
	w.String(tag)
	return w
}

func singletonKey(tag string) []byte { return tagged(tag).Bytes() }

// NameKey returns the database key of an address label record.
func NameKey(address string) []byte {
	w := tagged(TagName)
	w.String(address)
	return w.Bytes()
}

// PurposeKey returns the database key of an address purpose record.
func PurposeKey(address string) []byte {
	w := tagged(TagPurpose)
	w.String(address)
	return w.Bytes()
}

// TxKey returns the database key of a transaction record.
func TxKey(txid chainhash.Hash) []byte {
	w := tagged(TagTx)
	w.Hash(txid)
	return w.Bytes()
}

// KeyKey returns the database key of a plaintext key record.
func KeyKey(pubKey []byte) []byte {
	w := tagged(TagKey)
	w.VarBytes(pubKey)
	return w.Bytes()
}

// WKeyKey returns the database key of a legacy pre-metadata key record.
// Nothing writes these anymore; the key shape is needed to erase them.
func WKeyKey(pubKey []byte) []byte {
	w := tagged(TagWKey)
	w.VarBytes(pubKey)
	return w.Bytes()
}

// CryptedKeyKey returns the database key of an encrypted key record.
func CryptedKeyKey(pubKey []byte) []byte {
	w := tagged(TagCryptedKey)
	w.VarBytes(pubKey)
	return w.Bytes()
}

// KeyMetadataKey returns the database key of a key metadata record.
func KeyMetadataKey(pubKey []byte) []byte {
	w := tagged(TagKeyMetadata)
	w.VarBytes(pubKey)
	return w.Bytes()
}

// MasterKeyKey returns the database key of a master key record.
func MasterKeyKey(id uint32) []byte {
	w := tagged(TagMasterKey)
	w.Uint32(id)
	return w.Bytes()
}

// CScriptKey returns the database key of a redeem script record.
func CScriptKey(scriptID KeyID) []byte {
	w := tagged(TagCScript)
	w.KeyID(scriptID)
	return w.Bytes()
}

// WatchOnlyKey returns the database key of a watch-only script record.
func WatchOnlyKey(script []byte) []byte {
	w := tagged(TagWatchOnly)
	w.VarBytes(script)
	return w.Bytes()
}

// WatchMetadataKey returns the database key of a watch-only metadata record.
func WatchMetadataKey(script []byte) []byte {
	w := tagged(TagWatchMetadata)
	w.VarBytes(script)
	return w.Bytes()
}

// PoolKey returns the database key of a keypool entry.
func PoolKey(index int64) []byte {
	w := tagged(TagPool)
	w.Int64(index)
	return w.Bytes()
}

// DestDataKey returns the database key of a destination data record.
func DestDataKey(address, key string) []byte {
	w := tagged(TagDestData)
	w.String(address)
	w.String(key)
	return w.Bytes()
}

// DescriptorKey returns the database key of a descriptor record.
func DescriptorKey(descID chainhash.Hash) []byte {
	w := tagged(TagDescriptor)
	w.Hash(descID)
	return w.Bytes()
}

// DescriptorKeyKey returns the database key of a descriptor private key
// record.
func DescriptorKeyKey(descID chainhash.Hash, pubKey []byte) []byte {
	w := tagged(TagDescriptorKey)
	w.Hash(descID)
	w.VarBytes(pubKey)
	return w.Bytes()
}

// DescriptorCryptedKeyKey returns the database key of an encrypted
// descriptor key record.
func DescriptorCryptedKeyKey(descID chainhash.Hash, pubKey []byte) []byte {
	w := tagged(TagDescriptorCryptedKey)
	w.Hash(descID)
	w.VarBytes(pubKey)
	return w.Bytes()
}

// DescriptorDerivedCacheKey returns the database key of a derived-xpub cache
// entry.
func DescriptorDerivedCacheKey(descID chainhash.Hash, keyExpIndex, derIndex uint32) []byte {
	w := tagged(TagDescriptorCache)
	w.Hash(descID)
	w.Uint32(keyExpIndex)
	w.Uint32(derIndex)
	return w.Bytes()
}

// DescriptorParentCacheKey returns the database key of a parent-xpub cache
// entry. It is the derived-cache key without the derivation index; the
// loader distinguishes the two by the identifier length.
func DescriptorParentCacheKey(descID chainhash.Hash, keyExpIndex uint32) []byte {
	w := tagged(TagDescriptorCache)
	w.Hash(descID)
	w.Uint32(keyExpIndex)
	return w.Bytes()
}

// ActiveSPKKey returns the database key of an active script-pubkey-manager
// pointer for the given output type.
func ActiveSPKKey(outputType uint8, internal bool) []byte {
	tag := TagActiveExternalSPK
	if internal {
		tag = TagActiveInternalSPK
	}
	w := tagged(tag)
	w.Uint8(outputType)
	return w.Bytes()
}

// Singleton keys.
func BestBlockKey() []byte         { return singletonKey(TagBestBlock) }
func BestBlockNoMerkleKey() []byte { return singletonKey(TagBestBlockNoMerkle) }
func MinVersionKey() []byte        { return singletonKey(TagMinVersion) }
func OrderPosNextKey() []byte      { return singletonKey(TagOrderPosNext) }
func HDChainKey() []byte           { return singletonKey(TagHDChain) }
func WalletFlagsKey() []byte       { return singletonKey(TagWalletFlags) }

// Value codecs. Every payload starts with its schema version; decoding reads
// exactly the fields that version gates in and ignores trailing bytes a
// newer writer may have appended.

// Serialize encodes the HD chain state.
func (c *HDChain) Serialize() []byte {
	w := NewWriter()
	w.Int32(c.Version)
	w.Uint32(c.ExternalCounter)
	w.KeyID(c.SeedID)
	if c.Version >= HDChainVersionSplit {
		w.Uint32(c.InternalCounter)
	}
	return w.Bytes()
}

// DeserializeHDChain decodes an HD chain payload of any supported version.
func DeserializeHDChain(value []byte) (*HDChain, error) {
	r := NewReader(value)
	c := &HDChain{}
	c.Version = r.Int32()
	c.ExternalCounter = r.Uint32()
	c.SeedID = r.KeyID()
	if c.Version >= HDChainVersionSplit {
		c.InternalCounter = r.Uint32()
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("hdchain: %w", err)
	}
	return c, nil
}

// Serialize encodes key metadata, emitting only the fields its version
// covers.
func (m *KeyMetadata) Serialize() []byte {
	w := NewWriter()
	w.Int32(m.Version)
	w.Int64(m.CreateTime)
	if m.Version >= MetadataVersionWithHDData {
		w.String(m.HDKeypath)
		w.KeyID(m.HDSeedID)
	}
	if m.Version >= MetadataVersionWithKeyOrigin {
		w.RawBytes(m.Origin.Fingerprint[:])
		w.CompactSize(uint64(len(m.Origin.Path)))
		for _, step := range m.Origin.Path {
			w.Uint32(step)
		}
		w.Bool(m.HasKeyOrigin)
	}
	return w.Bytes()
}

// DeserializeKeyMetadata decodes key metadata of any supported version.
// Fields below the record's version threshold stay at their zero defaults.
func DeserializeKeyMetadata(value []byte) (*KeyMetadata, error) {
	r := NewReader(value)
	m := &KeyMetadata{}
	m.Version = r.Int32()
	m.CreateTime = r.Int64()
	if m.Version >= MetadataVersionWithHDData {
		m.HDKeypath = r.String()
		m.HDSeedID = r.KeyID()
	}
	if m.Version >= MetadataVersionWithKeyOrigin {
		copy(m.Origin.Fingerprint[:], r.RawBytes(4))
		n := r.CompactSize()
		if r.Err() == nil && n > MaxRecordSize/4 {
			return nil, fmt.Errorf("keymeta: %w", ErrValueTooLarge)
		}
		for i := uint64(0); i < n && r.Err() == nil; i++ {
			m.Origin.Path = append(m.Origin.Path, r.Uint32())
		}
		m.HasKeyOrigin = r.Bool()
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("keymeta: %w", err)
	}
	return m, nil
}

// Serialize encodes an encrypted master key record.
func (k *MasterKey) Serialize() []byte {
	w := NewWriter()
	w.Int32(k.Version)
	w.VarBytes(k.EncryptedKey)
	w.VarBytes(k.Salt)
	w.Uint32(k.DerivationMethod)
	w.Uint32(k.DeriveIterations)
	w.VarBytes(k.OtherParams)
	return w.Bytes()
}

// DeserializeMasterKey decodes a master key payload.
func DeserializeMasterKey(value []byte) (*MasterKey, error) {
	r := NewReader(value)
	k := &MasterKey{}
	k.Version = r.Int32()
	k.EncryptedKey = r.VarBytes()
	k.Salt = r.VarBytes()
	k.DerivationMethod = r.Uint32()
	k.DeriveIterations = r.Uint32()
	k.OtherParams = r.VarBytes()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("mkey: %w", err)
	}
	return k, nil
}

// Serialize encodes a wallet transaction record.
func (t *WalletTx) Serialize() []byte {
	w := NewWriter()
	w.Int32(t.Version)
	w.VarBytes(t.Raw)
	w.Int64(t.TimeReceived)
	w.Bool(t.FromMe)
	w.Int64(t.OrderPos)
	return w.Bytes()
}

// DeserializeWalletTx decodes a wallet transaction payload.
func DeserializeWalletTx(value []byte) (*WalletTx, error) {
	r := NewReader(value)
	t := &WalletTx{}
	t.Version = r.Int32()
	t.Raw = r.VarBytes()
	t.TimeReceived = r.Int64()
	t.FromMe = r.Bool()
	t.OrderPos = r.Int64()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("tx: %w", err)
	}
	return t, nil
}

// Serialize encodes a keypool entry.
func (p *KeyPool) Serialize() []byte {
	w := NewWriter()
	w.Int32(p.Version)
	w.Int64(p.Time)
	w.VarBytes(p.PubKey)
	if p.Version >= PoolVersionWithInternal {
		w.Bool(p.Internal)
	}
	return w.Bytes()
}

// DeserializeKeyPool decodes a keypool payload of any supported version.
// Entries written before the internal-chain split load as external.
func DeserializeKeyPool(value []byte) (*KeyPool, error) {
	r := NewReader(value)
	p := &KeyPool{}
	p.Version = r.Int32()
	p.Time = r.Int64()
	p.PubKey = r.VarBytes()
	if p.Version >= PoolVersionWithInternal {
		p.Internal = r.Bool()
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}
	return p, nil
}

// Serialize encodes a descriptor record.
func (d *Descriptor) Serialize() []byte {
	w := NewWriter()
	w.Int32(d.Version)
	w.String(d.Code)
	w.Int64(d.CreationTime)
	w.Int32(d.RangeStart)
	w.Int32(d.RangeEnd)
	w.Int32(d.NextIndex)
	return w.Bytes()
}

// DeserializeDescriptor decodes a descriptor payload.
func DeserializeDescriptor(value []byte) (*Descriptor, error) {
	r := NewReader(value)
	d := &Descriptor{}
	d.Version = r.Int32()
	d.Code = r.String()
	d.CreationTime = r.Int64()
	d.RangeStart = r.Int32()
	d.RangeEnd = r.Int32()
	d.NextIndex = r.Int32()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("walletdescriptor: %w", err)
	}
	return d, nil
}

// Serialize encodes a block locator.
func (l *BlockLocator) Serialize() []byte {
	w := NewWriter()
	w.Int32(l.Version)
	w.CompactSize(uint64(len(l.Hashes)))
	for _, h := range l.Hashes {
		w.Hash(h)
	}
	return w.Bytes()
}

// DeserializeBlockLocator decodes a block locator payload.
func DeserializeBlockLocator(value []byte) (*BlockLocator, error) {
	r := NewReader(value)
	l := &BlockLocator{}
	l.Version = r.Int32()
	n := r.CompactSize()
	if r.Err() == nil && n > MaxRecordSize/chainhash.HashSize {
		return nil, fmt.Errorf("bestblock: %w", ErrValueTooLarge)
	}
	for i := uint64(0); i < n && r.Err() == nil; i++ {
		l.Hashes = append(l.Hashes, r.Hash())
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("bestblock: %w", err)
	}
	return l, nil
}

// keyChecksum binds private key material to its public key so truncated or
// cross-wired records are caught on load.
func keyChecksum(pubKey, secret []byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write(pubKey)
	h.Write(secret)
	var sum [sha256.Size]byte
	h.Sum(sum[:0])
	return sum
}

// SerializeKey encodes a plaintext private key record: the key bytes
// followed by a SHA256 checksum over pubkey and private key.
func SerializeKey(pubKey, privKey []byte) []byte {
	w := NewWriter()
	w.VarBytes(privKey)
	sum := keyChecksum(pubKey, privKey)
	w.RawBytes(sum[:])
	return w.Bytes()
}

// DeserializeKey decodes and verifies a plaintext private key record.
// Records written before checksums were introduced carry none and are
// accepted as-is.
func DeserializeKey(pubKey, value []byte) ([]byte, error) {
	r := NewReader(value)
	privKey := r.VarBytes()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("key: %w", err)
	}
	switch rem := r.Remaining(); {
	case rem == 0:
		return privKey, nil
	case rem < sha256.Size:
		return nil, fmt.Errorf("key: truncated checksum: %w", ErrCorruptRecord)
	}
	want := keyChecksum(pubKey, privKey)
	if !bytes.Equal(r.RawBytes(sha256.Size), want[:]) {
		return nil, fmt.Errorf("key: %w", ErrChecksumMismatch)
	}
	return privKey, nil
}

// SerializeCryptedKey encodes an encrypted key record with its checksum.
func SerializeCryptedKey(pubKey, encryptedSecret []byte) []byte {
	w := NewWriter()
	w.VarBytes(encryptedSecret)
	sum := keyChecksum(pubKey, encryptedSecret)
	w.RawBytes(sum[:])
	return w.Bytes()
}

// DeserializeCryptedKey decodes an encrypted key record, verifying the
// checksum when one is present.
func DeserializeCryptedKey(pubKey, value []byte) ([]byte, error) {
	r := NewReader(value)
	secret := r.VarBytes()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("ckey: %w", err)
	}
	switch rem := r.Remaining(); {
	case rem == 0:
		return secret, nil
	case rem < sha256.Size:
		return nil, fmt.Errorf("ckey: truncated checksum: %w", ErrCorruptRecord)
	}
	want := keyChecksum(pubKey, secret)
	if !bytes.Equal(r.RawBytes(sha256.Size), want[:]) {
		return nil, fmt.Errorf("ckey: %w", ErrChecksumMismatch)
	}
	return secret, nil
}
