// Package batch implements the wallet database modifier: a Batch binds
// logical write and erase operations for every record kind to the versioned
// codec, applies the periodic flush policy, and brackets explicit
// transactions. It also hosts the loader that reconstructs a wallet from a
// database and the transaction find/zap scans.
//
// A Batch is not safe for concurrent use; callers serialize through a
// wallet-wide lock.
package batch

import (
	"errors"

	"github.com/bsv-blockchain/go-sdk/chainhash"

	"github.com/bitfsorg/walletdb-go/records"
	"github.com/bitfsorg/walletdb-go/store"
)

// Batch is a modifier object for one wallet database. Outside an explicit
// transaction every write or erase is its own atomic unit at the backend
// level; composite helpers such as WriteKey are NOT atomic unless the caller
// brackets them with TxnBegin/TxnCommit.
//
// Every successful write or erase bumps the database handle's update
// counter; each time the counter reaches a multiple of the flush threshold
// the backend is flushed once.
type Batch struct {
	db             store.Database
	flushOnClose   bool
	flushThreshold uint64
	txnOpen        bool
	closed         bool
}

// Option configures a Batch.
type Option func(*Batch)

// WithFlushOnClose controls the close-time policy. It defaults to true: on
// Close an open transaction is committed and the backend flushed. With it
// disabled, an open transaction is aborted on Close and its writes are
// lost, matching the backend's own default of discarding unfinished
// transactions.
func WithFlushOnClose(flush bool) Option {
	return func(b *Batch) { b.flushOnClose = flush }
}

// WithFlushThreshold overrides the periodic flush threshold. Zero disables
// periodic flushing entirely.
func WithFlushThreshold(threshold uint64) Option {
	return func(b *Batch) { b.flushThreshold = threshold }
}

// NewBatch returns a batch over db.
func NewBatch(db store.Database, opts ...Option) *Batch {
	b := &Batch{
		db:             db,
		flushOnClose:   true,
		flushThreshold: store.DefaultFlushThreshold,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// writeRecord performs a counted write: the update counter is bumped on
// success and the backend flushed on the threshold boundary.
func (b *Batch) writeRecord(key, value []byte, overwrite bool) error {
	if b.closed {
		return ErrBatchClosed
	}
	if err := b.db.Write(key, value, overwrite); err != nil {
		return err
	}
	if store.ShouldFlush(b.db.IncrementUpdateCounter(), b.flushThreshold) {
		return b.db.Flush()
	}
	return nil
}

// eraseRecord performs a counted erase.
func (b *Batch) eraseRecord(key []byte) error {
	if b.closed {
		return ErrBatchClosed
	}
	if err := b.db.Erase(key); err != nil {
		return err
	}
	if store.ShouldFlush(b.db.IncrementUpdateCounter(), b.flushThreshold) {
		return b.db.Flush()
	}
	return nil
}

// WriteName stores the label of a destination address.
func (b *Batch) WriteName(address, name string) error {
	w := records.NewWriter()
	w.String(name)
	return b.writeRecord(records.NameKey(address), w.Bytes(), true)
}

// EraseName removes a destination label.
func (b *Batch) EraseName(address string) error {
	return b.eraseRecord(records.NameKey(address))
}

// WritePurpose stores the purpose string of a destination address.
func (b *Batch) WritePurpose(address, purpose string) error {
	w := records.NewWriter()
	w.String(purpose)
	return b.writeRecord(records.PurposeKey(address), w.Bytes(), true)
}

// ErasePurpose removes a destination purpose.
func (b *Batch) ErasePurpose(address string) error {
	return b.eraseRecord(records.PurposeKey(address))
}

// WriteTx stores a wallet transaction keyed by txid.
func (b *Batch) WriteTx(txid chainhash.Hash, tx *records.WalletTx) error {
	return b.writeRecord(records.TxKey(txid), tx.Serialize(), true)
}

// EraseTx removes a wallet transaction.
func (b *Batch) EraseTx(txid chainhash.Hash) error {
	return b.eraseRecord(records.TxKey(txid))
}

// WriteKeyMetadata stores the metadata companion of a public key. With
// overwrite false an existing record wins (first-write-wins for fresh
// metadata).
func (b *Batch) WriteKeyMetadata(pubKey []byte, meta *records.KeyMetadata, overwrite bool) error {
	return b.writeRecord(records.KeyMetadataKey(pubKey), meta.Serialize(), overwrite)
}

// WriteKey stores a plaintext private key and its metadata. The two writes
// are separate backend operations; wrap in TxnBegin/TxnCommit when partial
// application is unacceptable.
func (b *Batch) WriteKey(pubKey, privKey []byte, meta *records.KeyMetadata) error {
	if err := b.WriteKeyMetadata(pubKey, meta, false); err != nil {
		return err
	}
	return b.writeRecord(records.KeyKey(pubKey), records.SerializeKey(pubKey, privKey), false)
}

// WriteCryptedKey stores an encrypted private key and its metadata, and
// erases any plaintext key record for the same public key, current or
// legacy shape, so the secret never survives in clear once encrypted.
func (b *Batch) WriteCryptedKey(pubKey, encryptedSecret []byte, meta *records.KeyMetadata) error {
	if err := b.WriteKeyMetadata(pubKey, meta, true); err != nil {
		return err
	}
	value := records.SerializeCryptedKey(pubKey, encryptedSecret)
	if err := b.writeRecord(records.CryptedKeyKey(pubKey), value, false); err != nil {
		return err
	}
	if err := b.eraseRecord(records.KeyKey(pubKey)); err != nil && !errors.Is(err, store.ErrKeyNotFound) {
		return err
	}
	if err := b.eraseRecord(records.WKeyKey(pubKey)); err != nil && !errors.Is(err, store.ErrKeyNotFound) {
		return err
	}
	return nil
}

// WriteMasterKey stores a wallet-encryption master key under its small
// integer id.
func (b *Batch) WriteMasterKey(id uint32, key *records.MasterKey) error {
	return b.writeRecord(records.MasterKeyKey(id), key.Serialize(), true)
}

// WriteCScript stores a redeem script under its 160-bit hash.
func (b *Batch) WriteCScript(scriptID records.KeyID, script []byte) error {
	w := records.NewWriter()
	w.VarBytes(script)
	return b.writeRecord(records.CScriptKey(scriptID), w.Bytes(), false)
}

// WriteWatchOnly marks a script as watch-only and stores its metadata.
func (b *Batch) WriteWatchOnly(script []byte, meta *records.KeyMetadata) error {
	if err := b.writeRecord(records.WatchMetadataKey(script), meta.Serialize(), true); err != nil {
		return err
	}
	return b.writeRecord(records.WatchOnlyKey(script), []byte{'1'}, true)
}

// EraseWatchOnly removes a watch-only script and its metadata.
func (b *Batch) EraseWatchOnly(script []byte) error {
	if err := b.eraseRecord(records.WatchMetadataKey(script)); err != nil && !errors.Is(err, store.ErrKeyNotFound) {
		return err
	}
	return b.eraseRecord(records.WatchOnlyKey(script))
}

// WriteBestBlock stores the wallet's best-block locator. The legacy
// bestblock slot is written empty; the locator itself goes to the
// no-merkle slot, which older readers ignore.
func (b *Batch) WriteBestBlock(locator *records.BlockLocator) error {
	empty := records.BlockLocator{Version: records.LocatorVersionCurrent}
	if err := b.writeRecord(records.BestBlockKey(), empty.Serialize(), true); err != nil {
		return err
	}
	return b.writeRecord(records.BestBlockNoMerkleKey(), locator.Serialize(), true)
}

// ReadBestBlock returns the stored best-block locator, preferring the
// legacy slot when it is non-empty.
func (b *Batch) ReadBestBlock() (*records.BlockLocator, error) {
	if value, err := b.db.Read(records.BestBlockKey()); err == nil {
		if loc, derr := records.DeserializeBlockLocator(value); derr == nil && len(loc.Hashes) > 0 {
			return loc, nil
		}
	}
	value, err := b.db.Read(records.BestBlockNoMerkleKey())
	if err != nil {
		return nil, err
	}
	return records.DeserializeBlockLocator(value)
}

// WriteOrderPosNext stores the next transaction ordering position.
func (b *Batch) WriteOrderPosNext(orderPos int64) error {
	w := records.NewWriter()
	w.Int64(orderPos)
	return b.writeRecord(records.OrderPosNextKey(), w.Bytes(), true)
}

// WritePool stores a keypool entry under its pool index.
func (b *Batch) WritePool(index int64, entry *records.KeyPool) error {
	return b.writeRecord(records.PoolKey(index), entry.Serialize(), true)
}

// ReadPool returns the keypool entry at index.
func (b *Batch) ReadPool(index int64) (*records.KeyPool, error) {
	value, err := b.db.Read(records.PoolKey(index))
	if err != nil {
		return nil, err
	}
	return records.DeserializeKeyPool(value)
}

// ErasePool removes a keypool entry, done when its key is allocated or
// invalidated.
func (b *Batch) ErasePool(index int64) error {
	return b.eraseRecord(records.PoolKey(index))
}

// WriteMinVersion stores the minimum client version able to read this
// wallet.
func (b *Batch) WriteMinVersion(version int32) error {
	w := records.NewWriter()
	w.Int32(version)
	return b.writeRecord(records.MinVersionKey(), w.Bytes(), true)
}

// WriteHDChain stores the HD derivation chain state.
func (b *Batch) WriteHDChain(chain *records.HDChain) error {
	return b.writeRecord(records.HDChainKey(), chain.Serialize(), true)
}

// WriteWalletFlags stores the wallet-wide feature flags.
func (b *Batch) WriteWalletFlags(flags uint64) error {
	w := records.NewWriter()
	w.Uint64(flags)
	return b.writeRecord(records.WalletFlagsKey(), w.Bytes(), true)
}

// WriteDescriptor stores an output-script descriptor under its id.
func (b *Batch) WriteDescriptor(descID chainhash.Hash, desc *records.Descriptor) error {
	return b.writeRecord(records.DescriptorKey(descID), desc.Serialize(), true)
}

// WriteDescriptorKey stores a plaintext descriptor private key.
func (b *Batch) WriteDescriptorKey(descID chainhash.Hash, pubKey, privKey []byte) error {
	key := records.DescriptorKeyKey(descID, pubKey)
	return b.writeRecord(key, records.SerializeKey(pubKey, privKey), false)
}

// WriteCryptedDescriptorKey stores an encrypted descriptor private key and
// erases any plaintext record for the same key.
func (b *Batch) WriteCryptedDescriptorKey(descID chainhash.Hash, pubKey, encryptedSecret []byte) error {
	key := records.DescriptorCryptedKeyKey(descID, pubKey)
	value := records.SerializeCryptedKey(pubKey, encryptedSecret)
	if err := b.writeRecord(key, value, false); err != nil {
		return err
	}
	err := b.eraseRecord(records.DescriptorKeyKey(descID, pubKey))
	if err != nil && !errors.Is(err, store.ErrKeyNotFound) {
		return err
	}
	return nil
}

// WriteDescriptorDerivedCache stores one derived xpub cache entry. Cache
// entries are additive; stale ones are harmless and never erased.
func (b *Batch) WriteDescriptorDerivedCache(xpub []byte, descID chainhash.Hash, keyExpIndex, derIndex uint32) error {
	w := records.NewWriter()
	w.VarBytes(xpub)
	key := records.DescriptorDerivedCacheKey(descID, keyExpIndex, derIndex)
	return b.writeRecord(key, w.Bytes(), true)
}

// WriteDescriptorParentCache stores one parent xpub cache entry.
func (b *Batch) WriteDescriptorParentCache(xpub []byte, descID chainhash.Hash, keyExpIndex uint32) error {
	w := records.NewWriter()
	w.VarBytes(xpub)
	key := records.DescriptorParentCacheKey(descID, keyExpIndex)
	return b.writeRecord(key, w.Bytes(), true)
}

// WriteDestData stores an arbitrary (key, value) tuple attached to a
// destination address.
func (b *Batch) WriteDestData(address, key, value string) error {
	w := records.NewWriter()
	w.String(value)
	return b.writeRecord(records.DestDataKey(address, key), w.Bytes(), true)
}

// EraseDestData removes a destination data tuple.
func (b *Batch) EraseDestData(address, key string) error {
	return b.eraseRecord(records.DestDataKey(address, key))
}

// WriteActiveScriptPubKeyMan stores the pointer to the active
// script-pubkey-manager for an output type and chain side.
func (b *Batch) WriteActiveScriptPubKeyMan(outputType uint8, descID chainhash.Hash, internal bool) error {
	w := records.NewWriter()
	w.Hash(descID)
	return b.writeRecord(records.ActiveSPKKey(outputType, internal), w.Bytes(), true)
}

// TxnBegin opens an explicit transaction on the underlying database.
// Transactions do not nest.
func (b *Batch) TxnBegin() error {
	if b.closed {
		return ErrBatchClosed
	}
	if b.txnOpen {
		return ErrTxnOpen
	}
	if err := b.db.TxnBegin(); err != nil {
		return err
	}
	b.txnOpen = true
	return nil
}

// TxnCommit atomically applies the open transaction.
func (b *Batch) TxnCommit() error {
	if b.closed {
		return ErrBatchClosed
	}
	if !b.txnOpen {
		return ErrNoTxnOpen
	}
	b.txnOpen = false
	return b.db.TxnCommit()
}

// TxnAbort discards the open transaction.
func (b *Batch) TxnAbort() error {
	if b.closed {
		return ErrBatchClosed
	}
	if !b.txnOpen {
		return ErrNoTxnOpen
	}
	b.txnOpen = false
	return b.db.TxnAbort()
}

// Close finishes the batch. With flush-on-close enabled (the default) an
// open transaction is committed and the backend flushed; with it disabled
// an open transaction is aborted and its writes are lost. The database
// handle itself stays open and belongs to the caller.
func (b *Batch) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.txnOpen {
		b.txnOpen = false
		if b.flushOnClose {
			if err := b.db.TxnCommit(); err != nil {
				return err
			}
		} else {
			if err := b.db.TxnAbort(); err != nil {
				return err
			}
		}
	}
	if b.flushOnClose {
		return b.db.Flush()
	}
	return nil
}
