package client

import (
	"context"
	"runtime"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/x/ledger"
	"github.com/iov-one/quorum/x/multisig"
	"github.com/tendermint/tendermint/libs/log"
)

// Ledger is the execution resource owned by the actor.
type Ledger interface {
	multisig.Ledger
	Sync() (int64, error)
	Height() int64
	Network() quorum.Network
	CreateFaucet(symbol string, decimals uint32, maxSupply uint64) (*ledger.Account, error)
	ConsumableNotes(id quorum.AccountID) ([]*ledger.Note, error)
	Balances(id quorum.AccountID) ([]*ledger.Asset, error)
}

var _ Ledger = (*ledger.Engine)(nil)

// Factory creates the ledger. It is called on the actor goroutine.
type Factory func() (Ledger, error)

type initResult struct {
	height int64
	err    error
}

// Start creates the ledger using factory on a dedicated goroutine and
// returns a handle to it once the initial sync completed. A failure to
// create or sync the ledger is returned and the actor does not run.
//
// The actor stops when ctx is cancelled. Calls made through the handle after
// that fail with ErrResource.
func Start(ctx context.Context, factory Factory, queueSize int, logger log.Logger) (Handle, int64, error) {
	if queueSize < 1 {
		return Handle{}, 0, errors.Wrap(errors.ErrInput, "queue size must be positive")
	}
	logger = quorum.LoggerOrDefault(logger).With("module", "actor")
	queue := make(chan command, queueSize)
	ready := make(chan initResult, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		l, err := factory()
		if err != nil {
			ready <- initResult{err: errors.Wrap(err, "create ledger")}
			return
		}
		height, err := l.Sync()
		if err != nil {
			ready <- initResult{err: errors.Wrap(errors.ErrResource, err.Error())}
			return
		}
		ready <- initResult{height: height}

		a := &actor{ledger: l, queue: queue, logger: logger}
		a.loop(ctx)
	}()

	select {
	case r := <-ready:
		if r.err != nil {
			return Handle{}, 0, r.err
		}
		logger.Info("Actor ready", "height", r.height)
		return Handle{queue: queue, done: done}, r.height, nil
	case <-ctx.Done():
		return Handle{}, 0, errors.Wrapf(errors.ErrResource, "start: %s", ctx.Err())
	}
}

type actor struct {
	ledger Ledger
	queue  <-chan command
	logger log.Logger
}

// loop executes commands one at a time, in the order they were queued.
func (a *actor) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Actor stopped")
			return
		case cmd := <-a.queue:
			a.handle(cmd)
		}
	}
}

func (a *actor) handle(cmd command) {
	a.logger.Debug("Command", "name", cmd.name())
	value, err := a.run(cmd)
	if err != nil {
		a.logger.Debug("Command failed", "name", cmd.name(), "err", err)
	}
	select {
	case cmd.replyTo() <- reply{value: value, err: err}:
	default:
		a.logger.Debug("Reply dropped", "name", cmd.name())
	}
}

func (a *actor) run(cmd command) (value interface{}, err error) {
	defer errors.Recover(&err)

	if cmd.needsSync() {
		if _, err := a.ledger.Sync(); err != nil {
			return nil, errors.Wrapf(errors.ErrResource, "sync: %s", err)
		}
	}
	return cmd.run(a.ledger, a.logger)
}
