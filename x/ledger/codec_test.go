package ledger

import (
	"testing"

	"github.com/iov-one/quorum/quorumtest"
)

func TestCodecSchema(t *testing.T) {
	quorumtest.AssertProtoSchema(t, "codec.proto",
		&Asset{},
		&MapEntry{},
		&StorageSlot{},
		&FaucetInfo{},
		&Account{},
		&Note{},
		&Transaction{},
		&OutputNote{},
		&AdviceEntry{},
		&TransactionRequest{},
		&TransactionSummary{},
	)
}
