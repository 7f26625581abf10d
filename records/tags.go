// Package records implements the versioned binary encoding of every record
// kind a wallet database stores: key material, key metadata, HD chain state,
// transactions, address labels, descriptors and their derivation caches, the
// key pool, and the singleton control records.
//
// Every database entry is a (tag, key, value) tuple. The key begins with a
// compact-size-prefixed ASCII tag that selects the decoding rules; the value
// is a versioned payload. Decoding is tolerant of newer versions: fields the
// known schema covers are read, trailing unknown bytes are ignored. Decoding
// fails only on structurally invalid bytes.
package records

// Record type tags. Each database key starts with one of these as a
// compact-size-prefixed string, followed by the type-specific identifier.
const (
	TagName                 = "name"
	TagPurpose              = "purpose"
	TagTx                   = "tx"
	TagKey                  = "key"
	TagWKey                 = "wkey" // legacy, pre-metadata key record
	TagCryptedKey           = "ckey"
	TagKeyMetadata          = "keymeta"
	TagMasterKey            = "mkey"
	TagCScript              = "cscript"
	TagWatchOnly            = "watchs"
	TagWatchMetadata        = "watchmeta"
	TagBestBlock            = "bestblock"
	TagBestBlockNoMerkle    = "bestblock_nomerkle"
	TagPool                 = "pool"
	TagMinVersion           = "minversion"
	TagOrderPosNext         = "orderposnext"
	TagHDChain              = "hdchain"
	TagWalletFlags          = "flags"
	TagDestData             = "destdata"
	TagDescriptor           = "walletdescriptor"
	TagDescriptorKey        = "walletdescriptorkey"
	TagDescriptorCryptedKey = "walletdescriptorckey"
	TagDescriptorCache      = "walletdescriptorcache"
	TagActiveExternalSPK    = "activeexternalspk"
	TagActiveInternalSPK    = "activeinternalspk"
	TagDefaultKey           = "defaultkey" // legacy, no longer written
)

// keyTypeTags holds every tag whose records carry key material. Losing any
// of these is unrecoverable, unlike labels or transaction history.
var keyTypeTags = map[string]bool{
	TagKey:                  true,
	TagWKey:                 true,
	TagCryptedKey:           true,
	TagMasterKey:            true,
	TagKeyMetadata:          true,
	TagHDChain:              true,
	TagDescriptorKey:        true,
	TagDescriptorCryptedKey: true,
}

// legacyTags holds tags that older wallets wrote but current ones no longer
// do. Loading one succeeds but marks the wallet as needing a rewrite.
var legacyTags = map[string]bool{
	TagWKey:       true,
	TagDefaultKey: true,
}

// IsKeyType reports whether tag identifies a key-bearing record kind.
// The salvage keys-only filter preserves exactly these.
func IsKeyType(tag string) bool {
	return keyTypeTags[tag]
}

// IsLegacyType reports whether tag is written only by obsolete wallet
// versions.
func IsLegacyType(tag string) bool {
	return legacyTags[tag]
}
