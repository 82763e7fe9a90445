package quorumtest

import (
	"crypto/rand"
	"testing"

	"github.com/iov-one/quorum"
)

// RandomAccountID returns a random, non zero account id.
func RandomAccountID(t testing.TB) quorum.AccountID {
	t.Helper()
	var id quorum.AccountID
	if _, err := rand.Read(id[:]); err != nil {
		t.Fatalf("cannot generate an account id: %s", err)
	}
	id[0] |= 1
	return id
}
