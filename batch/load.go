package batch

import (
	log "github.com/sirupsen/logrus"

	"github.com/bitfsorg/walletdb-go/records"
)

// LoadStatus is the aggregate outcome of loading a wallet database. The
// values are ordered by severity; the loader reports the worst outcome seen
// across the whole scan.
type LoadStatus int

const (
	// LoadOK means every record loaded.
	LoadOK LoadStatus = iota

	// LoadNeedsRewrite means the load succeeded but found legacy records
	// that should be compacted away on the next write opportunity. Not an
	// error for the caller.
	LoadNeedsRewrite

	// LoadNonCriticalError means some optional records were skipped
	// (unknown tags, unreadable labels or caches). Key material loaded.
	LoadNonCriticalError

	// LoadTooNew means a record declares a schema version newer than this
	// code supports. Loading stops before applying anything.
	LoadTooNew

	// LoadCorrupt means a required record, one carrying key material,
	// could not be decoded.
	LoadCorrupt

	// LoadFailed means the backend itself failed mid-scan.
	LoadFailed
)

// String returns the status name.
func (s LoadStatus) String() string {
	switch s {
	case LoadOK:
		return "ok"
	case LoadNeedsRewrite:
		return "needs-rewrite"
	case LoadNonCriticalError:
		return "non-critical-error"
	case LoadTooNew:
		return "too-new"
	case LoadCorrupt:
		return "corrupt"
	case LoadFailed:
		return "load-failed"
	default:
		return "unknown"
	}
}

func maxStatus(a, b LoadStatus) LoadStatus {
	if b > a {
		return b
	}
	return a
}

// LoadWallet streams every record out of the database, dispatches by type
// tag and reconstructs the wallet aggregate. Per-record decode failures are
// classified rather than aborting the scan: unreadable key material makes
// the result LoadCorrupt, anything else is skipped as LoadNonCriticalError.
// A wallet whose minimum version exceeds what this code supports returns an
// empty wallet and LoadTooNew before any record is applied.
func (b *Batch) LoadWallet() (*Wallet, LoadStatus) {
	w := NewWallet()

	// Gate on the minimum-version record before instantiating anything:
	// running with a half-understood wallet silently ignores semantics a
	// newer writer relied on.
	if value, err := b.db.Read(records.MinVersionKey()); err == nil {
		r := records.NewReader(value)
		version := r.Int32()
		if r.Err() == nil && version > records.WalletVersionLatest {
			log.WithField("minversion", version).
				Warn("wallet requires a newer client")
			return NewWallet(), LoadTooNew
		}
	}

	status := LoadOK
	err := b.db.ForEach(func(key, value []byte) error {
		tag, idr, err := records.SplitTag(key)
		if err != nil {
			// A key whose tag cannot even be read gives no way to
			// tell key material from an ignorable record.
			log.WithError(err).Warn("wallet record with unreadable tag")
			status = maxStatus(status, LoadCorrupt)
			return nil
		}
		status = maxStatus(status, w.applyRecord(tag, idr, value))
		return nil
	})
	if err != nil {
		log.WithError(err).Error("wallet scan failed")
		return w, LoadFailed
	}
	return w, status
}

// decodeFailure classifies a decode failure by tag: unreadable key material
// is corruption, anything else is skippable.
func decodeFailure(tag string) LoadStatus {
	log.WithField("tag", tag).Warn("skipping unreadable wallet record")
	if records.IsKeyType(tag) {
		return LoadCorrupt
	}
	return LoadNonCriticalError
}

func (w *Wallet) applyRecord(tag string, idr *records.Reader, value []byte) LoadStatus {
	vr := records.NewReader(value)

	switch tag {
	case records.TagName:
		address := idr.String()
		name := vr.String()
		if idr.Err() != nil || vr.Err() != nil {
			return decodeFailure(tag)
		}
		w.Names[address] = name

	case records.TagPurpose:
		address := idr.String()
		purpose := vr.String()
		if idr.Err() != nil || vr.Err() != nil {
			return decodeFailure(tag)
		}
		w.Purposes[address] = purpose

	case records.TagTx:
		txid := idr.Hash()
		if idr.Err() != nil {
			return decodeFailure(tag)
		}
		tx, err := records.DeserializeWalletTx(value)
		if err != nil {
			return decodeFailure(tag)
		}
		w.Txs[txid] = tx

	case records.TagKey:
		pubKey := idr.VarBytes()
		if idr.Err() != nil {
			return decodeFailure(tag)
		}
		if err := records.ValidatePubKey(pubKey); err != nil {
			return decodeFailure(tag)
		}
		privKey, err := records.DeserializeKey(pubKey, value)
		if err != nil {
			return decodeFailure(tag)
		}
		w.Keys[string(pubKey)] = privKey

	case records.TagWKey:
		// Legacy pre-metadata key record: private key followed by
		// created/expires/comment fields no current wallet uses.
		pubKey := idr.VarBytes()
		privKey := vr.VarBytes()
		if idr.Err() != nil || vr.Err() != nil {
			return decodeFailure(tag)
		}
		w.Keys[string(pubKey)] = privKey
		return LoadNeedsRewrite

	case records.TagCryptedKey:
		pubKey := idr.VarBytes()
		if idr.Err() != nil {
			return decodeFailure(tag)
		}
		if err := records.ValidatePubKey(pubKey); err != nil {
			return decodeFailure(tag)
		}
		secret, err := records.DeserializeCryptedKey(pubKey, value)
		if err != nil {
			return decodeFailure(tag)
		}
		w.CryptedKeys[string(pubKey)] = secret

	case records.TagKeyMetadata:
		pubKey := idr.VarBytes()
		if idr.Err() != nil {
			return decodeFailure(tag)
		}
		meta, err := records.DeserializeKeyMetadata(value)
		if err != nil {
			return decodeFailure(tag)
		}
		w.KeyMetadata[string(pubKey)] = meta

	case records.TagMasterKey:
		id := idr.Uint32()
		if idr.Err() != nil {
			return decodeFailure(tag)
		}
		mkey, err := records.DeserializeMasterKey(value)
		if err != nil {
			return decodeFailure(tag)
		}
		w.MasterKeys[id] = mkey

	case records.TagCScript:
		scriptID := idr.KeyID()
		script := vr.VarBytes()
		if idr.Err() != nil || vr.Err() != nil {
			return decodeFailure(tag)
		}
		w.Scripts[scriptID] = script

	case records.TagWatchOnly:
		script := idr.VarBytes()
		if idr.Err() != nil {
			return decodeFailure(tag)
		}
		w.WatchOnly[string(script)] = true

	case records.TagWatchMetadata:
		script := idr.VarBytes()
		if idr.Err() != nil {
			return decodeFailure(tag)
		}
		meta, err := records.DeserializeKeyMetadata(value)
		if err != nil {
			return decodeFailure(tag)
		}
		w.WatchMetadata[string(script)] = meta

	case records.TagBestBlock:
		loc, err := records.DeserializeBlockLocator(value)
		if err != nil {
			return decodeFailure(tag)
		}
		// The legacy slot is normally written empty.
		if len(loc.Hashes) > 0 {
			w.BestBlock = loc
		}

	case records.TagBestBlockNoMerkle:
		loc, err := records.DeserializeBlockLocator(value)
		if err != nil {
			return decodeFailure(tag)
		}
		if w.BestBlock == nil {
			w.BestBlock = loc
		}

	case records.TagPool:
		index := idr.Int64()
		if idr.Err() != nil {
			return decodeFailure(tag)
		}
		entry, err := records.DeserializeKeyPool(value)
		if err != nil {
			return decodeFailure(tag)
		}
		w.Pool[index] = entry

	case records.TagMinVersion:
		version := vr.Int32()
		if vr.Err() != nil {
			return decodeFailure(tag)
		}
		w.MinVersion = version

	case records.TagOrderPosNext:
		orderPos := vr.Int64()
		if vr.Err() != nil {
			return decodeFailure(tag)
		}
		w.OrderPosNext = orderPos

	case records.TagHDChain:
		chain, err := records.DeserializeHDChain(value)
		if err != nil {
			return decodeFailure(tag)
		}
		w.HDChain = chain

	case records.TagWalletFlags:
		flags := vr.Uint64()
		if vr.Err() != nil {
			return decodeFailure(tag)
		}
		w.Flags = flags
		w.HasFlags = true

	case records.TagDestData:
		address := idr.String()
		key := idr.String()
		dvalue := vr.String()
		if idr.Err() != nil || vr.Err() != nil {
			return decodeFailure(tag)
		}
		w.setDestData(address, key, dvalue)

	case records.TagDescriptor:
		descID := idr.Hash()
		if idr.Err() != nil {
			return decodeFailure(tag)
		}
		desc, err := records.DeserializeDescriptor(value)
		if err != nil {
			return decodeFailure(tag)
		}
		w.descriptor(descID).Descriptor = desc

	case records.TagDescriptorKey:
		descID := idr.Hash()
		pubKey := idr.VarBytes()
		if idr.Err() != nil {
			return decodeFailure(tag)
		}
		privKey, err := records.DeserializeKey(pubKey, value)
		if err != nil {
			return decodeFailure(tag)
		}
		w.descriptor(descID).Keys[string(pubKey)] = privKey

	case records.TagDescriptorCryptedKey:
		descID := idr.Hash()
		pubKey := idr.VarBytes()
		if idr.Err() != nil {
			return decodeFailure(tag)
		}
		secret, err := records.DeserializeCryptedKey(pubKey, value)
		if err != nil {
			return decodeFailure(tag)
		}
		w.descriptor(descID).CryptedKeys[string(pubKey)] = secret

	case records.TagDescriptorCache:
		descID := idr.Hash()
		keyExpIndex := idr.Uint32()
		// Parent entries carry no derivation index; the identifier
		// length tells the two apart.
		parent := idr.Remaining() < 4
		var derIndex uint32
		if !parent {
			derIndex = idr.Uint32()
		}
		xpub := vr.VarBytes()
		if idr.Err() != nil || vr.Err() != nil {
			return decodeFailure(tag)
		}
		d := w.descriptor(descID)
		d.Caches = append(d.Caches, records.DescriptorCacheEntry{
			DescriptorID: descID,
			KeyExpIndex:  keyExpIndex,
			DerIndex:     derIndex,
			Parent:       parent,
			XPub:         xpub,
		})

	case records.TagActiveExternalSPK, records.TagActiveInternalSPK:
		outputType := idr.Uint8()
		descID := vr.Hash()
		if idr.Err() != nil || vr.Err() != nil {
			return decodeFailure(tag)
		}
		slot := ActiveSPKSlot{
			OutputType: outputType,
			Internal:   tag == records.TagActiveInternalSPK,
		}
		w.ActiveSPKs[slot] = descID

	case records.TagDefaultKey:
		pubKey := vr.VarBytes()
		if vr.Err() != nil {
			return decodeFailure(tag)
		}
		w.DefaultKey = pubKey
		return LoadNeedsRewrite

	default:
		// Unknown tags may come from a newer writer; they are skipped,
		// never fatal.
		log.WithField("tag", tag).Info("ignoring unknown wallet record type")
		return LoadNonCriticalError
	}

	return LoadOK
}
