package client

import (
	"time"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/store/iavl"
	"github.com/iov-one/quorum/x/ledger"
	"github.com/tendermint/tendermint/libs/log"
)

// Config holds the settings of the ledger resource and of the actor.
type Config struct {
	// Network selects the account address prefix.
	Network quorum.Network
	// DBDir is where the ledger state is kept. Empty means in memory.
	DBDir string
	// NodeEndpoint is an alternate network endpoint. It is informative only.
	NodeEndpoint string
	// QueueSize is the capacity of the command queue.
	QueueSize int
	// Timeout limits how long a caller waits for a single command.
	Timeout time.Duration
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Network:   quorum.Testnet,
		QueueSize: 32,
		Timeout:   30 * time.Second,
	}
}

// Validate returns an error if the configuration cannot be used.
func (c Config) Validate() error {
	if _, err := quorum.ParseNetwork(string(c.Network)); err != nil {
		return err
	}
	if c.QueueSize < 1 {
		return errors.Wrap(errors.ErrInput, "queue size must be positive")
	}
	if c.Timeout <= 0 {
		return errors.Wrap(errors.ErrInput, "timeout must be positive")
	}
	return nil
}

// Factory returns a factory opening the ledger engine described by the
// configuration.
func (c Config) Factory(logger log.Logger) Factory {
	return func() (Ledger, error) {
		var (
			db  iavl.CommitStore
			err error
		)
		if c.DBDir == "" {
			db = iavl.MockCommitStore()
		} else if db, err = iavl.NewCommitStore(c.DBDir, "ledger"); err != nil {
			return nil, errors.Wrap(err, "open ledger")
		}
		if err := db.LoadLatestVersion(); err != nil {
			return nil, errors.Wrap(err, "load ledger")
		}
		return ledger.NewEngine(db, c.Network, logger), nil
	}
}
