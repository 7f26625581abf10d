package batch

import (
	"github.com/bsv-blockchain/go-sdk/chainhash"

	"github.com/bitfsorg/walletdb-go/records"
)

// ActiveSPKSlot identifies one active script-pubkey-manager pointer: an
// output type on either the external (receive) or internal (change) side.
type ActiveSPKSlot struct {
	OutputType uint8
	Internal   bool
}

// DescriptorData groups a descriptor with its keys and xpub caches.
type DescriptorData struct {
	Descriptor  *records.Descriptor
	Keys        map[string][]byte // serialized pubkey -> private key
	CryptedKeys map[string][]byte // serialized pubkey -> encrypted secret
	Caches      []records.DescriptorCacheEntry
}

// Wallet is the in-memory aggregate the loader reconstructs from a wallet
// database. Map keys holding serialized public keys or scripts use the raw
// bytes as the string key.
type Wallet struct {
	Keys          map[string][]byte // pubkey -> private key
	CryptedKeys   map[string][]byte // pubkey -> encrypted secret
	KeyMetadata   map[string]*records.KeyMetadata
	WatchMetadata map[string]*records.KeyMetadata // script -> metadata
	MasterKeys    map[uint32]*records.MasterKey
	Txs           map[chainhash.Hash]*records.WalletTx
	Names         map[string]string
	Purposes      map[string]string
	Scripts       map[records.KeyID][]byte
	WatchOnly     map[string]bool // script -> present
	Pool          map[int64]*records.KeyPool
	DestData      map[string]map[string]string
	Descriptors   map[chainhash.Hash]*DescriptorData
	ActiveSPKs    map[ActiveSPKSlot]chainhash.Hash

	HDChain      *records.HDChain
	BestBlock    *records.BlockLocator
	MinVersion   int32
	OrderPosNext int64
	Flags        uint64
	HasFlags     bool

	// DefaultKey holds the pubkey of a legacy default-key record; wallets
	// carrying one are scheduled for rewrite.
	DefaultKey []byte
}

// NewWallet returns an empty wallet aggregate.
func NewWallet() *Wallet {
	return &Wallet{
		Keys:          make(map[string][]byte),
		CryptedKeys:   make(map[string][]byte),
		KeyMetadata:   make(map[string]*records.KeyMetadata),
		WatchMetadata: make(map[string]*records.KeyMetadata),
		MasterKeys:    make(map[uint32]*records.MasterKey),
		Txs:           make(map[chainhash.Hash]*records.WalletTx),
		Names:         make(map[string]string),
		Purposes:      make(map[string]string),
		Scripts:       make(map[records.KeyID][]byte),
		WatchOnly:     make(map[string]bool),
		Pool:          make(map[int64]*records.KeyPool),
		DestData:      make(map[string]map[string]string),
		Descriptors:   make(map[chainhash.Hash]*DescriptorData),
		ActiveSPKs:    make(map[ActiveSPKSlot]chainhash.Hash),
	}
}

// KeyCount returns the number of loaded private keys, plaintext and
// encrypted combined.
func (w *Wallet) KeyCount() int {
	return len(w.Keys) + len(w.CryptedKeys)
}

// descriptor returns the descriptor slot for id, creating it so descriptor
// keys and caches can load before the descriptor record itself in storage
// order.
func (w *Wallet) descriptor(id chainhash.Hash) *DescriptorData {
	d, ok := w.Descriptors[id]
	if !ok {
		d = &DescriptorData{
			Keys:        make(map[string][]byte),
			CryptedKeys: make(map[string][]byte),
		}
		w.Descriptors[id] = d
	}
	return d
}

// setDestData records one destination data tuple.
func (w *Wallet) setDestData(address, key, value string) {
	m, ok := w.DestData[address]
	if !ok {
		m = make(map[string]string)
		w.DestData[address] = m
	}
	m[key] = value
}
