package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/jathurchan/namereg/types"
)

// snapshotFile is the image of a ledger after the entry at LastIndex: the
// registry tables, every non-zero balance and the ledger time floor.
type snapshotFile struct {
	LastIndex types.Index                    `json:"last_index"`
	LastID    string                         `json:"last_id"`
	Floor     time.Time                      `json:"floor"`
	Minted    types.Amount                   `json:"minted"`
	Balances  map[types.Address]types.Amount `json:"balances"`
	Registry  []byte                         `json:"registry"`
}

// entryRef identifies a journaled entry.
type entryRef struct {
	Index types.Index
	ID    string
}

// writeSnapshotFile replaces the snapshot at path. The image is written and
// synced to a temporary file first, then renamed over the previous one.
func writeSnapshotFile(path string, snap *snapshotFile) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrSnapshot, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), ownRWXOthRX); err != nil {
		return fmt.Errorf("%w: create directory: %v", ErrSnapshot, err)
	}

	tmp := path + ".tmp"
	if err := writeAndSync(tmp, data); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: write: %v", ErrSnapshot, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: rename: %v", ErrSnapshot, err)
	}
	return nil
}

func writeAndSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, ownRWOthR)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// readSnapshotFile loads the snapshot at path, or returns nil if none exists.
func readSnapshotFile(path string) (*snapshotFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrSnapshot, err)
	}
	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSnapshot, err)
	}
	if snap.LastIndex == 0 {
		return nil, fmt.Errorf("%w: snapshot has no last index", ErrSnapshot)
	}
	return &snap, nil
}

// Snapshot writes the current state to the configured snapshot path.
// Returns ErrSnapshotsDisabled when no path is configured.
func (l *Ledger) Snapshot(ctx context.Context) error {
	if l.config.SnapshotPath == "" {
		return ErrSnapshotsDisabled
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	return l.snapshotLocked(ctx)
}

// snapshotLocked writes a snapshot covering every journaled entry. It does
// nothing if the last snapshot is already current. Callers must hold l.mu.
func (l *Ledger) snapshotLocked(ctx context.Context) error {
	if l.tail.Index == 0 || l.tail.Index == l.lastSnapshot {
		return nil
	}

	_, data, err := l.registry.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshot, err)
	}
	snap := &snapshotFile{
		LastIndex: l.tail.Index,
		LastID:    l.tail.ID,
		Floor:     l.clock.floor(),
		Minted:    l.bank.minted,
		Balances:  maps.Clone(l.bank.balances),
		Registry:  data,
	}
	if err := writeSnapshotFile(l.config.SnapshotPath, snap); err != nil {
		return err
	}

	l.lastSnapshot = snap.LastIndex
	l.logger.Infow("Snapshot written",
		"lastIndex", snap.LastIndex,
		"accounts", len(snap.Balances),
		"size", len(data))
	return nil
}

// maybeSnapshotLocked writes a snapshot once SnapshotEvery entries have been
// journaled since the last one. Failures are logged; the journal still holds
// every entry. Callers must hold l.mu.
func (l *Ledger) maybeSnapshotLocked(ctx context.Context) {
	every := types.Index(l.config.SnapshotEvery)
	if every == 0 || l.tail.Index-l.lastSnapshot < every {
		return
	}
	if err := l.snapshotLocked(ctx); err != nil {
		l.logger.Warnw("Snapshot failed", "lastIndex", l.tail.Index, "error", err)
	}
}

// restoreSnapshotLocked loads the configured snapshot into the registry and
// the bank. It returns nil if snapshots are disabled or none exists yet.
// Callers must hold l.mu.
func (l *Ledger) restoreSnapshotLocked(ctx context.Context) (*snapshotFile, error) {
	if l.config.SnapshotPath == "" {
		return nil, nil
	}
	snap, err := readSnapshotFile(l.config.SnapshotPath)
	if err != nil || snap == nil {
		return nil, err
	}
	if last := l.journal.LastIndex(); snap.LastIndex > last {
		return nil, fmt.Errorf("%w: snapshot covers index %d, journal ends at %d",
			ErrSnapshotMismatch, snap.LastIndex, last)
	}

	if err := l.registry.RestoreSnapshot(ctx, snap.Registry); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshot, err)
	}
	l.bank.balances = maps.Clone(snap.Balances)
	if l.bank.balances == nil {
		l.bank.balances = make(map[types.Address]types.Amount)
	}
	l.bank.minted = snap.Minted
	l.clock.observe(snap.Floor)
	l.lastSnapshot = snap.LastIndex

	l.logger.Infow("Snapshot restored", "lastIndex", snap.LastIndex, "accounts", len(l.bank.balances))
	return snap, nil
}
