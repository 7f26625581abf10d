// Package salvage is the last-resort path for wallet databases that cannot
// be opened or loaded normally: it verifies the storage environment and
// file, and recovers well-formed records out of a corrupt file into a fresh
// one. Recovery never mutates the source file and never runs implicitly
// inside the normal read/write path.
package salvage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/bitfsorg/walletdb-go/store"
)

// openTimeout bounds read-only opens so a lock held elsewhere surfaces as
// an error instead of blocking forever.
const openTimeout = time.Second

// VerifyEnvironment checks that the storage environment around the wallet
// file is usable before any record-level access: the parent directory must
// exist and the advisory lock must not be held by another process. Failure
// here means the store cannot even be opened, not that its contents are
// suspect.
func VerifyEnvironment(path string) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEnvironment, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrEnvironment, dir)
	}

	lock, err := tryLock(path + ".lock")
	if err != nil {
		return err
	}
	releaseLock(lock)
	return nil
}

// VerifyDatabaseFile runs the backend's native integrity check against the
// wallet file, read-only. Findings come back as warnings; a failed check or
// unopenable file classifies as ErrVerifyFailed. Nothing is repaired.
func VerifyDatabaseFile(path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		ReadOnly: true,
		Timeout:  openTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrVerifyFailed, err)
	}
	defer db.Close()

	var warnings []string
	err = db.View(func(tx *bbolt.Tx) error {
		for cerr := range tx.Check() {
			warnings = append(warnings, cerr.Error())
		}
		if tx.Bucket(store.RecordsBucket) == nil {
			warnings = append(warnings, "wallet records bucket missing")
		}
		return nil
	})
	if err != nil {
		return warnings, fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}
	if len(warnings) > 0 {
		for _, warning := range warnings {
			log.WithField("path", path).Warn(warning)
		}
		return warnings, ErrVerifyFailed
	}
	return nil, nil
}
