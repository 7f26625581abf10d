package batch

import (
	"errors"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	log "github.com/sirupsen/logrus"

	"github.com/bitfsorg/walletdb-go/records"
	"github.com/bitfsorg/walletdb-go/store"
)

// TxRecord pairs a wallet transaction with its id.
type TxRecord struct {
	TxID chainhash.Hash
	Tx   *records.WalletTx
}

// FindWalletTxs scans the database for transaction records only, reusing
// the loader's decode path. Unreadable transaction records are skipped and
// degrade the status to LoadNonCriticalError.
func (b *Batch) FindWalletTxs() ([]TxRecord, LoadStatus) {
	var found []TxRecord
	status := LoadOK
	err := b.db.ForEach(func(key, value []byte) error {
		tag, idr, err := records.SplitTag(key)
		if err != nil || tag != records.TagTx {
			return nil
		}
		txid := idr.Hash()
		if idr.Err() != nil {
			status = maxStatus(status, LoadNonCriticalError)
			return nil
		}
		tx, derr := records.DeserializeWalletTx(value)
		if derr != nil {
			log.WithField("txid", txid.String()).
				Warn("skipping unreadable wallet transaction")
			status = maxStatus(status, LoadNonCriticalError)
			return nil
		}
		found = append(found, TxRecord{TxID: txid, Tx: tx})
		return nil
	})
	if err != nil {
		return found, LoadFailed
	}
	return found, status
}

// ZapWalletTxs erases every transaction record, returning the erased
// records so the caller can re-scan the chain for them.
func (b *Batch) ZapWalletTxs() ([]TxRecord, LoadStatus) {
	found, status := b.FindWalletTxs()
	if status == LoadFailed {
		return nil, status
	}
	for _, rec := range found {
		if err := b.EraseTx(rec.TxID); err != nil {
			log.WithError(err).WithField("txid", rec.TxID.String()).
				Error("zap: erase failed")
			return found, LoadFailed
		}
	}
	return found, status
}

// ZapSelectTxs erases the transaction records listed in txids. Ids with no
// matching record are returned for caller reconciliation; their absence
// affects nothing else in the database.
func (b *Batch) ZapSelectTxs(txids []chainhash.Hash) ([]chainhash.Hash, LoadStatus) {
	var notFound []chainhash.Hash
	for _, txid := range txids {
		err := b.EraseTx(txid)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrKeyNotFound):
			notFound = append(notFound, txid)
		default:
			log.WithError(err).WithField("txid", txid.String()).
				Error("zap: erase failed")
			return notFound, LoadFailed
		}
	}
	return notFound, LoadOK
}
