package salvage

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/bitfsorg/walletdb-go/batch"
	"github.com/bitfsorg/walletdb-go/records"
	"github.com/bitfsorg/walletdb-go/store"
)

func testKeyPair(t *testing.T) (pub, priv []byte) {
	t.Helper()
	key, err := ec.NewPrivateKey()
	require.NoError(t, err)
	return key.PubKey().Compressed(), key.Serialize()
}

// populateWallet writes a small wallet file holding five key-bearing records
// (a plaintext key with metadata, an encrypted key with metadata, and the HD
// chain) plus a label and a transaction.
func populateWallet(t *testing.T, path string) (pub1, priv1, pub2 []byte) {
	t.Helper()
	db, err := store.OpenBolt(path)
	require.NoError(t, err)
	b := batch.NewBatch(db)

	pub1, priv1 = testKeyPair(t)
	pub2, _ = testKeyPair(t)
	meta := records.NewKeyMetadata(time.Now().Unix())

	require.NoError(t, b.WriteKey(pub1, priv1, meta))
	require.NoError(t, b.WriteCryptedKey(pub2, []byte("sealed"), meta))
	require.NoError(t, b.WriteHDChain(records.NewHDChain()))
	require.NoError(t, b.WriteName("addr", "label"))
	require.NoError(t, b.WriteTx(chainhash.DoubleHashH([]byte("tx")), &records.WalletTx{
		Version: records.TxVersionCurrent,
		Raw:     []byte{0x01},
	}))

	require.NoError(t, b.Close())
	require.NoError(t, db.Close())
	return pub1, priv1, pub2
}

// corruptMetaPages zeroes the magic of both meta pages so a normal open is
// impossible while the data pages stay intact.
func corruptMetaPages(t *testing.T, path string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	require.NoError(t, err)
	defer f.Close()

	zero := make([]byte, 4)
	_, err = f.WriteAt(zero, 16)
	require.NoError(t, err)
	_, err = f.WriteAt(zero, int64(os.Getpagesize())+16)
	require.NoError(t, err)
}

func TestVerifyEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	assert.NoError(t, VerifyEnvironment(path))
}

func TestVerifyEnvironment_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no", "such", "wallet.db")
	assert.ErrorIs(t, VerifyEnvironment(path), ErrEnvironment)
}

func TestVerifyEnvironment_Locked(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no advisory locking on windows")
	}
	path := filepath.Join(t.TempDir(), "wallet.db")
	lock, err := tryLock(path + ".lock")
	require.NoError(t, err)
	defer releaseLock(lock)

	assert.ErrorIs(t, VerifyEnvironment(path), ErrEnvironmentLocked)
}

func TestVerifyDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	populateWallet(t, path)

	warnings, err := VerifyDatabaseFile(path)
	assert.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestVerifyDatabaseFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	_, err := VerifyDatabaseFile(path)
	assert.ErrorIs(t, err, ErrVerifyFailed)
}

func TestVerifyDatabaseFile_MissingBucket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	db, err := bbolt.Open(path, 0600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	warnings, err := VerifyDatabaseFile(path)
	assert.ErrorIs(t, err, ErrVerifyFailed)
	assert.Contains(t, warnings, "wallet records bucket missing")
}

func TestVerifyDatabaseFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	populateWallet(t, path)
	corruptMetaPages(t, path)

	_, err := VerifyDatabaseFile(path)
	assert.ErrorIs(t, err, ErrVerifyFailed)
}

func TestRecover_SourceUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	populateWallet(t, path)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	keepAll := func(tag string, key, value []byte) bool { return true }
	backup, err := Recover(path, keepAll, WithBackupPath(path+".bak"))
	require.NoError(t, err)
	assert.Equal(t, path+".bak", backup)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "recovery must never write the source file")
}

func TestRecover_AllRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	pub1, priv1, _ := populateWallet(t, path)

	keepAll := func(tag string, key, value []byte) bool { return true }
	backup, err := Recover(path, keepAll, WithBackupPath(path+".bak"))
	require.NoError(t, err)

	db, err := store.OpenBolt(backup)
	require.NoError(t, err)
	defer db.Close()
	w, status := batch.NewBatch(db).LoadWallet()
	assert.Equal(t, batch.LoadOK, status)
	assert.Equal(t, priv1, w.Keys[string(pub1)])
	assert.Equal(t, "label", w.Names["addr"])
	assert.Len(t, w.Txs, 1)
}

func TestRecoverKeysOnly_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	pub1, priv1, pub2 := populateWallet(t, path)
	corruptMetaPages(t, path)

	// The file is beyond a normal open.
	_, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true, Timeout: openTimeout})
	require.Error(t, err)

	backup, err := RecoverKeysOnly(path, WithBackupPath(path+".bak"))
	require.NoError(t, err)

	db, err := store.OpenBolt(backup)
	require.NoError(t, err)
	defer db.Close()

	// Exactly the five key-bearing records survive.
	count := 0
	require.NoError(t, db.ForEach(func(key, value []byte) error {
		tag, _, terr := records.SplitTag(key)
		require.NoError(t, terr)
		assert.True(t, records.IsKeyType(tag))
		count++
		return nil
	}))
	assert.Equal(t, 5, count)

	w, status := batch.NewBatch(db).LoadWallet()
	assert.Equal(t, batch.LoadOK, status)
	assert.Equal(t, priv1, w.Keys[string(pub1)])
	assert.Equal(t, []byte("sealed"), w.CryptedKeys[string(pub2)])
	require.NotNil(t, w.HDChain)
	assert.Empty(t, w.Names)
	assert.Empty(t, w.Txs)
}

func TestRecover_NoRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	require.NoError(t, os.WriteFile(path, make([]byte, 4*os.Getpagesize()), 0600))

	keepAll := func(tag string, key, value []byte) bool { return true }
	_, err := Recover(path, keepAll, WithBackupPath(path+".bak"))
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestRecover_BackupEqualsSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	keepAll := func(tag string, key, value []byte) bool { return true }
	_, err := Recover(path, keepAll, WithBackupPath(path))
	assert.ErrorIs(t, err, ErrEnvironment)
}

func TestRecover_MissingSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	keepAll := func(tag string, key, value []byte) bool { return true }
	_, err := Recover(path, keepAll)
	assert.ErrorIs(t, err, ErrEnvironment)
}

func TestCompact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	pub1, priv1, _ := populateWallet(t, path)

	require.NoError(t, Compact(path))

	db, err := store.OpenBolt(path)
	require.NoError(t, err)
	defer db.Close()
	w, status := batch.NewBatch(db).LoadWallet()
	assert.Equal(t, batch.LoadOK, status)
	assert.Equal(t, priv1, w.Keys[string(pub1)])
}

func TestMaybeCompact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	populateWallet(t, path)

	done, err := MaybeCompact(path, CompactMinUpdates-1)
	require.NoError(t, err)
	assert.False(t, done)

	done, err = MaybeCompact(path, CompactMinUpdates)
	require.NoError(t, err)
	assert.True(t, done)
}
