package salvage

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bitfsorg/walletdb-go/records"
	"github.com/bitfsorg/walletdb-go/store"
)

// RecordFilter decides whether a salvaged record is preserved. It receives
// the decoded type tag along with the raw key and value bytes.
type RecordFilter func(tag string, key, value []byte) bool

// RecoverOption configures a recovery run.
type RecoverOption func(*recoverConfig)

type recoverConfig struct {
	backupPath string
}

// WithBackupPath overrides the destination of the recovered store. It must
// differ from the source path; by default the destination is the source
// path suffixed with a timestamp and ".bak".
func WithBackupPath(path string) RecoverOption {
	return func(c *recoverConfig) { c.backupPath = path }
}

// KeysOnlyFilter preserves only key-bearing record kinds. Losing labels or
// transaction history is acceptable; losing key material is not.
func KeysOnlyFilter(tag string, key, value []byte) bool {
	return records.IsKeyType(tag)
}

// Recover scans the wallet file at path in raw mode, with no schema or tree
// traversal, and writes every physical record accepted by filter into a
// newly created store at the backup path. The source file is never written.
// Records that fail even the raw framing are dropped silently; duplicate
// shadow copies keep their first occurrence. Returns the backup path.
func Recover(path string, filter RecordFilter, opts ...RecoverOption) (string, error) {
	cfg := recoverConfig{
		backupPath: fmt.Sprintf("%s.%d.bak", path, time.Now().Unix()),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.backupPath == path {
		return "", fmt.Errorf("%w: backup path equals source path", ErrEnvironment)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read source: %v", ErrEnvironment, err)
	}

	raw := scanRawRecords(data)
	var kept []rawRecord
	dropped := 0
	for _, rec := range raw {
		tag, _, terr := records.SplitTag(rec.key)
		if terr != nil {
			dropped++
			continue
		}
		if filter(tag, rec.key, rec.value) {
			kept = append(kept, rec)
		}
	}

	log.WithFields(log.Fields{
		"path":    path,
		"scanned": len(raw),
		"kept":    len(kept),
		"dropped": dropped,
	}).Info("wallet salvage scan")

	if len(kept) == 0 {
		return "", ErrNoRecords
	}

	dst, err := store.OpenBolt(cfg.backupPath)
	if err != nil {
		return "", fmt.Errorf("salvage: create backup store: %w", err)
	}
	for _, rec := range kept {
		if werr := dst.Write(rec.key, rec.value, true); werr != nil {
			_ = dst.Close()
			return "", fmt.Errorf("salvage: write recovered record: %w", werr)
		}
	}
	if err := dst.Flush(); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("salvage: flush backup store: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("salvage: close backup store: %w", err)
	}
	return cfg.backupPath, nil
}

// RecoverKeysOnly recovers only key-bearing records. This is the path taken
// automatically when a normal open reports corruption.
func RecoverKeysOnly(path string, opts ...RecoverOption) (string, error) {
	return Recover(path, KeysOnlyFilter, opts...)
}
