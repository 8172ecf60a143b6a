// Package ledger provides the append-only, totally ordered transaction log
// that the name registry runs on. It stamps every transaction with an index,
// an ID and the ledger time, journals it, executes it against the registry
// and settles the resulting value movements between accounts.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jathurchan/namereg/logger"
	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/types"
)

// Ledger executes transactions one at a time. Each Submit is atomic: the
// registry either applies the command and every resulting transfer happens,
// or nothing but the journal entry changes.
type Ledger struct {
	mu sync.Mutex // Serializes execution; guards bank and closed.

	registry   registry.Registry
	journal    Journal
	bank       *bank
	clock      *monotonicClock
	config     Config
	serializer registry.Serializer
	logger     logger.Logger
	metrics    Metrics

	tail         entryRef    // Last journaled entry.
	lastSnapshot types.Index // Last index covered by the snapshot on disk.
	closed       bool
}

// New creates a Ledger executing against reg, which must be freshly
// constructed. Existing journal entries are replayed before New returns.
func New(ctx context.Context, reg registry.Registry, opts ...Option) (*Ledger, error) {
	if reg == nil {
		return nil, errors.New("ledger: registry is required")
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Journal == nil {
		cfg.Journal = NewMemoryJournal()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewNoOpMetrics()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Ledger{
		registry:   reg,
		journal:    cfg.Journal,
		bank:       newBank(),
		clock:      newMonotonicClock(cfg.Clock),
		config:     cfg,
		serializer: cfg.Serializer,
		logger:     cfg.Logger.WithComponent("ledger"),
		metrics:    cfg.Metrics,
	}

	if err := l.replay(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// replay restores the snapshot, if any, then re-executes every later
// journaled entry with its recorded timestamp. Entries that failed when
// submitted fail again here and change nothing.
func (l *Ledger) replay(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := l.config.Clock.Now()
	snap, err := l.restoreSnapshotLocked(ctx)
	if err != nil {
		return err
	}

	var total, failed int
	err = l.journal.ForEach(ctx, func(e Entry) error {
		l.clock.observe(e.Timestamp)
		l.tail = entryRef{Index: e.Index, ID: e.ID}
		if snap != nil && e.Index <= snap.LastIndex {
			if e.Index == snap.LastIndex && e.ID != snap.LastID {
				return fmt.Errorf("%w: entry %d has ID %s, snapshot expects %s",
					ErrSnapshotMismatch, e.Index, e.ID, snap.LastID)
			}
			return nil
		}
		if _, err := l.execute(ctx, e); err != nil {
			if errors.Is(err, registry.ErrAlreadyApplied) || errors.Is(err, registry.ErrClosed) {
				return fmt.Errorf("ledger: replay entry %d: %w", e.Index, err)
			}
			failed++
		}
		total++
		return nil
	})
	if err != nil {
		return err
	}

	last := l.journal.LastIndex()
	l.metrics.SetLastIndex(last)
	l.metrics.SetRegistryBalance(l.bank.balance(l.config.RegistryAccount))
	if total > 0 || snap != nil {
		l.logger.Infow("Journal replayed",
			"snapshotIndex", l.lastSnapshot,
			"entries", total,
			"failedEntries", failed,
			"lastIndex", last,
			"duration", l.config.Clock.Since(start))
	}
	return nil
}

// Submit journals tx and executes it.
//
// Returns:
//   - ErrInvalidTransaction or ErrDepositsDisabled before anything is journaled.
//   - ErrInsufficientFunds if the caller cannot fund tx.Value.
//   - any registry error, unchanged, when the registry rejects the command.
//
// A rejected transaction still consumes its index.
func (l *Ledger) Submit(ctx context.Context, tx Transaction) (*Result, error) {
	start := l.config.Clock.Now()
	op := tx.Command.Op

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if op == types.OperationDeposit && tx.Command.Owner == "" {
		tx.Command.Owner = tx.Caller
	}
	if err := tx.validate(l.config.RegistryAccount); err != nil {
		l.metrics.IncrSubmit(op, false, Reason(err))
		return nil, err
	}
	if op == types.OperationDeposit && !l.config.AllowDeposits {
		l.metrics.IncrSubmit(op, false, Reason(ErrDepositsDisabled))
		return nil, ErrDepositsDisabled
	}

	data, err := l.serializer.EncodeCommand(tx.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: encode command: %v", ErrInvalidTransaction, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}

	entry := Entry{
		Index:     l.journal.LastIndex() + 1,
		ID:        uuid.NewString(),
		Timestamp: l.clock.Now(),
		Caller:    tx.Caller,
		Value:     tx.Value,
		Command:   data,
	}

	appendStart := l.config.Clock.Now()
	if err := l.journal.Append(ctx, entry); err != nil {
		l.logger.Errorw("Journal append failed", "index", entry.Index, "error", err)
		return nil, fmt.Errorf("ledger: journal append: %w", err)
	}
	l.metrics.ObserveJournalAppend(l.config.Clock.Since(appendStart))
	l.metrics.SetLastIndex(entry.Index)
	l.tail = entryRef{Index: entry.Index, ID: entry.ID}

	// The entry is durable; execution must not be cut short by the caller.
	ctx = context.WithoutCancel(ctx)
	receipt, err := l.execute(ctx, entry)
	l.maybeSnapshotLocked(ctx)
	l.metrics.IncrSubmit(op, err == nil, Reason(err))
	l.metrics.ObserveSubmitLatency(op, l.config.Clock.Since(start))
	if err != nil {
		l.logger.WithTx(uint64(entry.Index)).Debugw("Transaction rejected",
			"op", op, "caller", tx.Caller, "reason", Reason(err), "error", err)
		return nil, err
	}
	l.metrics.SetRegistryBalance(l.bank.balance(l.config.RegistryAccount))

	return &Result{
		Index:     entry.Index,
		ID:        entry.ID,
		Timestamp: entry.Timestamp,
		Receipt:   receipt,
	}, nil
}

// execute runs one journaled entry. Callers must hold l.mu.
func (l *Ledger) execute(ctx context.Context, e Entry) (*types.Receipt, error) {
	cmd, err := l.serializer.DecodeCommand(e.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: decode command: %v", ErrInvalidTransaction, err)
	}
	if cmd.Op == types.OperationDeposit {
		return l.depositLocked(e, cmd)
	}

	account := l.config.RegistryAccount
	if err := l.bank.canTransfer(e.Caller, account, e.Value); err != nil {
		return nil, err
	}

	receipt, err := l.registry.Apply(ctx, types.TxContext{
		Index:  e.Index,
		ID:     e.ID,
		Caller: e.Caller,
		Value:  e.Value,
		Now:    e.Timestamp,
	}, e.Command)
	if err != nil {
		return nil, err
	}

	if err := l.settle(e, receipt); err != nil {
		// The registry has already committed; the books no longer balance.
		l.logger.WithTx(uint64(e.Index)).Errorw("Settlement failed after apply",
			"op", cmd.Op, "caller", e.Caller, "error", err)
		l.metrics.IncrAuditFailure()
		return nil, err
	}
	return receipt, nil
}

// settle moves the tendered value into the registry account, then pays the
// refund back and any released escrow out.
func (l *Ledger) settle(e Entry, r *types.Receipt) error {
	account := l.config.RegistryAccount
	if err := l.bank.transfer(e.Caller, account, e.Value); err != nil {
		return err
	}
	if err := l.bank.transfer(account, e.Caller, r.Refund); err != nil {
		return err
	}
	if r.Payout > 0 {
		if err := l.bank.transfer(account, r.PayoutTo, r.Payout); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) depositLocked(e Entry, cmd types.Command) (*types.Receipt, error) {
	if err := l.bank.mint(cmd.Owner, cmd.Amount); err != nil {
		return nil, err
	}
	l.logger.WithTx(uint64(e.Index)).Debugw("Deposit minted", "account", cmd.Owner, "amount", cmd.Amount)
	return &types.Receipt{
		Op:       types.OperationDeposit,
		Payout:   cmd.Amount,
		PayoutTo: cmd.Owner,
	}, nil
}

// Deposit mints amount into account. Deposits must be enabled.
func (l *Ledger) Deposit(ctx context.Context, account types.Address, amount types.Amount) (*Result, error) {
	return l.Submit(ctx, Transaction{
		Caller:  account,
		Command: types.Command{Op: types.OperationDeposit, Owner: account, Amount: amount},
	})
}

// Balance returns account's balance.
func (l *Ledger) Balance(account types.Address) types.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bank.balance(account)
}

// Balances returns every account holding a non-zero balance, sorted by
// account, read at a single ledger position.
func (l *Ledger) Balances() []types.AccountBalance {
	l.mu.Lock()
	defer l.mu.Unlock()
	accounts := l.bank.accounts()
	out := make([]types.AccountBalance, len(accounts))
	for i, a := range accounts {
		out[i] = types.AccountBalance{Account: a, Balance: l.bank.balance(a)}
	}
	return out
}

// Record returns the record for name as of the current ledger time.
func (l *Ledger) Record(ctx context.Context, name string) (*types.RecordInfo, error) {
	return l.registry.GetRecord(ctx, name, l.clock.peek())
}

// Records lists records as of the current ledger time.
func (l *Ledger) Records(ctx context.Context, filter registry.RecordFilter, limit, offset int) ([]*types.RecordInfo, int, error) {
	return l.registry.GetRecords(ctx, l.clock.peek(), filter, limit, offset)
}

// Commitment returns the admission of fp.
func (l *Ledger) Commitment(ctx context.Context, fp types.Fingerprint) (*types.CommitmentInfo, error) {
	return l.registry.GetCommitment(ctx, fp)
}

// Registry exposes the registry for read-only helpers such as RentPrice.
func (l *Ledger) Registry() registry.Registry {
	return l.registry
}

// Now returns the current ledger time without consuming a timestamp.
func (l *Ledger) Now() time.Time {
	return l.clock.peek()
}

// LastIndex returns the index of the last journaled entry.
func (l *Ledger) LastIndex() types.Index {
	return l.journal.LastIndex()
}

// Audit verifies that the registry account holds exactly what the registry
// owes: retained fees, escrow in records and lapsed bonds, and that no
// value was created outside deposits.
func (l *Ledger) Audit() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	holdings := l.registry.Holdings()
	owed, err := holdings.Total()
	if err != nil {
		l.metrics.IncrAuditFailure()
		return fmt.Errorf("%w: holdings overflow: %v", ErrAuditFailed, err)
	}
	held := l.bank.balance(l.config.RegistryAccount)
	if held != owed {
		l.metrics.IncrAuditFailure()
		l.logger.Errorw("Audit mismatch",
			"held", held, "fees", holdings.Fees, "escrow", holdings.Escrow, "lapsedBonds", holdings.LapsedBonds)
		return fmt.Errorf("%w: registry account holds %d, registry owes %d", ErrAuditFailed, held, owed)
	}
	supply, err := l.bank.supply()
	if err != nil || supply != l.bank.minted {
		l.metrics.IncrAuditFailure()
		return fmt.Errorf("%w: balances sum to %d, deposits total %d", ErrAuditFailed, supply, l.bank.minted)
	}
	return nil
}

// Tick drives the registry's periodic maintenance. The tick time is stamped
// like a transaction time: every later transaction is stamped at or after
// it, so a commitment pruned here could not have been revealed anyway.
func (l *Ledger) Tick(ctx context.Context) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0
	}
	return l.registry.Tick(ctx, l.clock.Now())
}

// RunTicker calls Tick every interval until ctx is done.
func (l *Ledger) RunTicker(ctx context.Context, interval time.Duration) {
	ticker := l.config.Clock.NewTicker(interval)
	defer ticker.Stop()

	l.logger.Infow("Tick loop started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			l.logger.Infow("Tick loop stopped")
			return
		case <-ticker.Chan():
			if expired := l.Tick(ctx); expired > 0 {
				l.logger.Infow("Registrations lapsed", "count", expired)
			}
		}
	}
}

// Close stops accepting transactions, writes a final snapshot when
// snapshots are configured, and closes the journal and registry.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var snapErr error
	if l.config.SnapshotPath != "" {
		snapErr = l.snapshotLocked(context.Background())
	}
	return errors.Join(snapErr, l.journal.Close(), l.registry.Close())
}
