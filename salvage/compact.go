package salvage

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
)

// CompactMinUpdates is the number of logical updates below which
// MaybeCompact leaves the file alone.
const CompactMinUpdates = 500

// Compact rewrites the wallet file without its free pages so it is
// self-contained and minimal. The database must not be open elsewhere. The
// rewrite happens into a temp file that atomically replaces the original
// only after a successful copy.
func Compact(path string) error {
	src, err := bbolt.Open(path, 0600, &bbolt.Options{
		ReadOnly: true,
		Timeout:  openTimeout,
	})
	if err != nil {
		return fmt.Errorf("salvage: open source for compaction: %w", err)
	}

	tmpPath := path + ".compact"
	dst, err := bbolt.Open(tmpPath, 0600, nil)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("salvage: open compaction target: %w", err)
	}

	if err := bbolt.Compact(dst, src, 0); err != nil {
		_ = dst.Close()
		_ = src.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("salvage: compact: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = src.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("salvage: close compaction target: %w", err)
	}
	if err := src.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("salvage: close source: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("salvage: replace with compacted file: %w", err)
	}
	return nil
}

// MaybeCompact compacts the wallet file once enough logical updates have
// accumulated, and reports whether it ran. Callers pass the update counter
// delta since the last compaction of a closed wallet.
func MaybeCompact(path string, updates uint64) (bool, error) {
	if updates < CompactMinUpdates {
		return false, nil
	}
	log.WithFields(log.Fields{"path": path, "updates": updates}).
		Info("compacting wallet database")
	if err := Compact(path); err != nil {
		return false, err
	}
	return true, nil
}
