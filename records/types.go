package records

import (
	"github.com/bsv-blockchain/go-sdk/chainhash"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
)

// Schema version constants. Loaders accept any record whose declared version
// is structurally decodable; WalletVersionLatest bounds only the wallet-wide
// minimum-version record (anything above it means a newer client wrote the
// wallet and we must not load it).
const (
	// HDChain versions.
	HDChainVersionBase    = 1
	HDChainVersionSplit   = 2 // adds the internal (change) chain counter
	HDChainVersionCurrent = HDChainVersionSplit

	// KeyMetadata versions.
	MetadataVersionBasic         = 1
	MetadataVersionWithHDData    = 10 // adds keypath + seed id
	MetadataVersionWithKeyOrigin = 12 // adds BIP32 origin fingerprint + path
	MetadataVersionCurrent       = MetadataVersionWithKeyOrigin

	// KeyPool versions.
	PoolVersionBase         = 1
	PoolVersionWithInternal = 2 // distinguishes change-chain pool entries
	PoolVersionCurrent      = PoolVersionWithInternal

	// WalletTx, MasterKey, Descriptor and BlockLocator all currently
	// serialize at version 1; the version prefix exists so future fields
	// can be appended without breaking older readers.
	TxVersionCurrent         = 1
	MasterKeyVersionCurrent  = 1
	DescriptorVersionCurrent = 1
	LocatorVersionCurrent    = 1

	// WalletVersionLatest is the newest wallet-wide feature version this
	// code understands. A minversion record above it aborts loading.
	WalletVersionLatest = 169900
)

// KeyIDSize is the length of a key identifier (RIPEMD160 of SHA256).
const KeyIDSize = 20

// KeyID is the 160-bit hash identifying a public key or script.
type KeyID [KeyIDSize]byte

// KeyIDFromPubKey derives the key id of a serialized public key:
// RIPEMD160(SHA256(pubkey)).
func KeyIDFromPubKey(pubKey []byte) KeyID {
	var id KeyID
	copy(id[:], bsvhash.Hash160(pubKey))
	return id
}

// IsZero reports whether the id is all zeroes (no seed / unset).
func (id KeyID) IsZero() bool { return id == KeyID{} }

// HDChain is the hierarchical-deterministic derivation state: the next
// unused child indices for the external (receive) and internal (change)
// chains and the id of the seed they derive from. Counters only ever grow;
// the whole record is rewritten on each derivation and replaced wholesale
// on reseed.
type HDChain struct {
	Version         int32
	ExternalCounter uint32
	InternalCounter uint32 // meaningful only when Version >= HDChainVersionSplit
	SeedID          KeyID
}

// NewHDChain returns an empty chain at the current version.
func NewHDChain() *HDChain {
	return &HDChain{Version: HDChainVersionCurrent}
}

// KeyOrigin describes where a key comes from: the fingerprint of the master
// key and the BIP32 derivation path below it.
type KeyOrigin struct {
	Fingerprint [4]byte
	Path        []uint32
}

// KeyMetadata is the non-secret companion record of a key: creation time,
// HD keypath, seed id, and key origin. Field presence is gated by Version;
// a reader never decodes fields the record's version predates.
type KeyMetadata struct {
	Version      int32
	CreateTime   int64 // unix seconds, 0 = unknown
	HDKeypath    string
	HDSeedID     KeyID
	Origin       KeyOrigin
	HasKeyOrigin bool
}

// NewKeyMetadata returns metadata at the current version with the given
// creation time.
func NewKeyMetadata(createTime int64) *KeyMetadata {
	return &KeyMetadata{Version: MetadataVersionCurrent, CreateTime: createTime}
}

// MasterKey is a wallet-encryption master key: the key material encrypted
// under a passphrase-derived key, and the parameters needed to re-derive
// that key. The plaintext never reaches this layer.
type MasterKey struct {
	Version          int32
	EncryptedKey     []byte
	Salt             []byte
	DerivationMethod uint32
	DeriveIterations uint32
	OtherParams      []byte
}

// WalletTx is a wallet-relevant transaction: its raw serialization plus the
// wallet-local bookkeeping that cannot be recomputed from the chain.
type WalletTx struct {
	Version      int32
	Raw          []byte
	TimeReceived int64
	FromMe       bool
	OrderPos     int64
}

// KeyPool is a pre-generated, not-yet-allocated key held ready for handout.
type KeyPool struct {
	Version  int32
	Time     int64
	PubKey   []byte
	Internal bool // meaningful only when Version >= PoolVersionWithInternal
}

// Descriptor is an output-script descriptor with its derivation range state.
type Descriptor struct {
	Version      int32
	Code         string // the descriptor string itself
	CreationTime int64
	RangeStart   int32
	RangeEnd     int32
	NextIndex    int32
}

// BlockLocator identifies the wallet's best-known block as a list of block
// hashes from tip backwards at increasing spacing.
type BlockLocator struct {
	Version int32
	Hashes  []chainhash.Hash
}

// DescriptorCacheEntry is one cached derived or parent extended public key
// for a descriptor. Parent entries have no derivation index. Cache entries
// are purely additive; a stale entry is harmless.
type DescriptorCacheEntry struct {
	DescriptorID chainhash.Hash
	KeyExpIndex  uint32
	DerIndex     uint32
	Parent       bool // true: parent xpub cache, DerIndex unused
	XPub         []byte
}
