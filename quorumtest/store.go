package quorumtest

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/iov-one/quorum/store/iavl"
)

// CommitStore returns a loaded store that is using a filesystem backend
// engine to store the data.
// This implementation should be used instead of iavl.MockCommitStore when
// you want the exact same storage implementation as the production instance
// is using.
func CommitStore(t testing.TB) (db iavl.CommitStore, cleanup func()) {
	t.Helper()
	dbpath, err := ioutil.TempDir("", "quorumtest")
	if err != nil {
		t.Fatalf("cannot create a temporary directory: %s", err)
	}
	db, err = iavl.NewCommitStore(dbpath, "ledger")
	if err != nil {
		os.RemoveAll(dbpath)
		t.Fatalf("cannot open store: %s", err)
	}
	if err := db.LoadLatestVersion(); err != nil {
		os.RemoveAll(dbpath)
		t.Fatalf("cannot load store: %s", err)
	}
	return db, func() { os.RemoveAll(dbpath) }
}
