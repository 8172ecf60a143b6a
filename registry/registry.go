package registry

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jathurchan/namereg/logger"
	"github.com/jathurchan/namereg/types"
)

// registry provides a concrete implementation of the Registry interface.
// It owns the commitment table, the record table and the lapsed bonds.
type registry struct {
	mu sync.RWMutex // Protects all shared state within the registry.

	commitments *commitmentStore
	records     map[types.Name]*recordState
	lapsed      map[bondKey]types.Amount // Unclaimed bonds of recycled records.
	expirations *expirationHeap

	fees        types.Amount // Rent retained so far.
	lastApplied types.Index  // Index of the last ledger entry applied.
	closed      bool

	config     RegistryConfig
	serializer Serializer
	logger     logger.Logger
	metrics    Metrics
}

// NewRegistry creates a Registry with the provided options.
// It returns a *ConfigError if the resulting configuration is invalid.
func NewRegistry(opts ...RegistryOption) (Registry, error) {
	config := DefaultRegistryConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.Logger == nil {
		config.Logger = logger.NewNoOpLogger()
	}
	if config.Metrics == nil {
		config.Metrics = NewNoOpMetrics()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	expHeap := make(expirationHeap, 0)
	heap.Init(&expHeap)

	r := &registry{
		commitments: newCommitmentStore(),
		records:     make(map[types.Name]*recordState),
		lapsed:      make(map[bondKey]types.Amount),
		expirations: &expHeap,
		config:      config,
		serializer:  config.Serializer,
		logger:      config.Logger.WithComponent("registry"),
		metrics:     config.Metrics,
	}

	r.logger.Infow("Registry created",
		"lockAmount", config.LockAmount,
		"lockPeriod", config.LockPeriod,
		"minCommitmentAge", config.MinCommitmentAge,
		"maxCommitmentAge", config.MaxCommitmentAge,
		"priceFloor", config.Pricing.Floor())

	return r, nil
}

// Apply routes a journaled command to the appropriate registry operation.
func (r *registry) Apply(ctx context.Context, tx types.TxContext, command []byte) (*types.Receipt, error) {
	cmd, err := r.serializer.DecodeCommand(command)
	if err != nil {
		return nil, fmt.Errorf("registry: decode command at index %d: %w", tx.Index, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if tx.Index != 0 {
		if tx.Index <= r.lastApplied {
			return nil, fmt.Errorf("%w: index %d, last applied %d", ErrAlreadyApplied, tx.Index, r.lastApplied)
		}
		// A failed transaction still consumes its index.
		r.lastApplied = tx.Index
	}

	switch cmd.Op {
	case types.OperationCommit:
		return r.commitLocked(tx, cmd.Fingerprint)
	case types.OperationRegister:
		return r.registerLocked(tx, cmd.Name, cmd.Owner, cmd.Salt)
	case types.OperationRenew:
		return r.renewLocked(tx, cmd.Name)
	case types.OperationWithdraw:
		return r.withdrawLocked(tx, cmd.Name)
	default:
		r.metrics.IncrApply(cmd.Op, false, Reason(ErrUnknownOperation))
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, cmd.Op)
	}
}

// MakeCommitment canonicalizes name and computes its fingerprint.
func (r *registry) MakeCommitment(name string, owner types.Address, salt types.Salt) (types.Fingerprint, error) {
	canonical, err := CanonicalName(name)
	if err != nil {
		return types.Fingerprint{}, err
	}
	if err := validateOwner(owner); err != nil {
		return types.Fingerprint{}, err
	}
	return ComputeFingerprint(canonical, owner, salt), nil
}

// RentPrice quotes the rent for name. It reads no mutable state.
func (r *registry) RentPrice(name string) (types.Amount, error) {
	canonical, err := CanonicalName(name)
	if err != nil {
		return 0, err
	}
	return r.config.Pricing.RentPrice(canonical), nil
}

// ApplyCommit admits a commitment fingerprint.
func (r *registry) ApplyCommit(ctx context.Context, tx types.TxContext, fp types.Fingerprint) (*types.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	return r.commitLocked(tx, fp)
}

// ApplyRegister reveals a commitment and claims the name.
func (r *registry) ApplyRegister(ctx context.Context, tx types.TxContext, name string, owner types.Address, salt types.Salt) (*types.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	return r.registerLocked(tx, name, owner, salt)
}

// ApplyRenew extends an active registration from the current ledger time.
func (r *registry) ApplyRenew(ctx context.Context, tx types.TxContext, name string) (*types.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	return r.renewLocked(tx, name)
}

func (r *registry) commitLocked(tx types.TxContext, fp types.Fingerprint) (*types.Receipt, error) {
	admittedAt := r.commitments.submit(fp, tx.Now)

	r.metrics.IncrApply(types.OperationCommit, true, "")
	r.logger.WithTx(uint64(tx.Index)).Debugw("Commitment admitted",
		"fingerprint", fp, "caller", tx.Caller, "admittedAt", admittedAt)

	return &types.Receipt{
		Op:         types.OperationCommit,
		Refund:     tx.Value,
		AdmittedAt: admittedAt,
	}, nil
}

func (r *registry) registerLocked(tx types.TxContext, rawName string, owner types.Address, salt types.Salt) (*types.Receipt, error) {
	const op = types.OperationRegister
	log := r.logger.WithTx(uint64(tx.Index))

	name, err := CanonicalName(rawName)
	if err != nil {
		return nil, r.reject(op, err)
	}
	if err := validateOwner(owner); err != nil {
		return nil, r.reject(op, err)
	}

	fp := ComputeFingerprint(name, owner, salt)
	if err := r.commitments.checkAge(fp, tx.Now, r.config.MinCommitmentAge, r.config.MaxCommitmentAge); err != nil {
		log.Debugw("Reveal rejected", "name", name, "fingerprint", fp, "error", err)
		return nil, r.reject(op, err)
	}

	prev, exists := r.records[name]
	if exists && prev.active(tx.Now) {
		return nil, r.reject(op, fmt.Errorf("%w: %q held until %s", ErrNameNotAvailable, name, prev.expiresAt.UTC().Format(time.RFC3339)))
	}

	price := r.config.Pricing.RentPrice(name)
	if tx.Value < price {
		return nil, r.reject(op, fmt.Errorf("%w: tendered %d, price %d", ErrInsufficientPayment, tx.Value, price))
	}

	// Compute every new total before touching state so that an overflow
	// cannot leave a half-applied registration behind.
	lockAmount := r.config.LockAmount
	fee := price - lockAmount // Validate guarantees price >= floor >= lockAmount.
	newFees, err := r.fees.Add(fee)
	if err != nil {
		return nil, r.reject(op, err)
	}
	var carried bondKey
	var newLapsed types.Amount
	if exists && prev.escrow > 0 {
		carried = bondKey{name: name, owner: prev.owner}
		if newLapsed, err = r.lapsed[carried].Add(prev.escrow); err != nil {
			return nil, r.reject(op, err)
		}
	}

	if exists && prev.escrow > 0 {
		r.lapsed[carried] = newLapsed
		log.Infow("Unclaimed bond carried over from recycled record",
			"name", name, "previousOwner", prev.owner, "amount", prev.escrow)
	}
	rec := &recordState{
		name:         name,
		owner:        owner,
		registeredAt: tx.Now,
		expiresAt:    tx.Now.Add(r.config.LockPeriod),
		escrow:       lockAmount,
	}
	r.records[name] = rec
	r.fees = newFees
	heap.Push(r.expirations, &expirationItem{name: name, expiresAt: rec.expiresAt})

	r.metrics.IncrApply(op, true, "")
	r.metrics.ObserveFee(op, fee)
	log.Infow("Name registered",
		"name", name, "owner", owner, "expiresAt", rec.expiresAt, "price", price, "refund", tx.Value-price)

	return &types.Receipt{
		Op:       op,
		Fee:      fee,
		Escrowed: lockAmount,
		Refund:   tx.Value - price,
		Record:   rec.info(tx.Now),
	}, nil
}

func (r *registry) renewLocked(tx types.TxContext, rawName string) (*types.Receipt, error) {
	const op = types.OperationRenew

	name, err := CanonicalName(rawName)
	if err != nil {
		return nil, r.reject(op, err)
	}

	rec, exists := r.records[name]
	if !exists || !rec.active(tx.Now) {
		return nil, r.reject(op, fmt.Errorf("%w: %q", ErrNameNotActive, name))
	}

	price := r.config.Pricing.RentPrice(name)
	if tx.Value < price {
		return nil, r.reject(op, fmt.Errorf("%w: tendered %d, price %d", ErrInsufficientPayment, tx.Value, price))
	}
	newFees, err := r.fees.Add(price)
	if err != nil {
		return nil, r.reject(op, err)
	}

	// Extension starts from now; unused time from the previous period is not stacked.
	rec.expiresAt = tx.Now.Add(r.config.LockPeriod)
	rec.renewals++
	r.fees = newFees
	heap.Push(r.expirations, &expirationItem{name: name, expiresAt: rec.expiresAt})

	r.metrics.IncrApply(op, true, "")
	r.metrics.ObserveFee(op, price)
	r.logger.WithTx(uint64(tx.Index)).Infow("Name renewed",
		"name", name, "caller", tx.Caller, "expiresAt", rec.expiresAt, "renewals", rec.renewals)

	return &types.Receipt{
		Op:     op,
		Fee:    price,
		Refund: tx.Value - price,
		Record: rec.info(tx.Now),
	}, nil
}

// reject records a failed operation and returns err unchanged.
func (r *registry) reject(op types.Operation, err error) error {
	r.metrics.IncrApply(op, false, Reason(err))
	return err
}

// GetRecord retrieves the record for name, evaluated at `at`.
func (r *registry) GetRecord(ctx context.Context, name string, at time.Time) (*types.RecordInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	canonical, err := CanonicalName(name)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[canonical]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRecordNotFound, canonical)
	}
	return rec.info(at), nil
}

// GetRecords returns a sorted, paginated list of records matching filter.
func (r *registry) GetRecords(ctx context.Context, at time.Time, filter RecordFilter, limit, offset int) ([]*types.RecordInfo, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if filter == nil {
		filter = FilterAll
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	matched := make([]*types.RecordInfo, 0, len(r.records))
	for _, rec := range r.records {
		if info := rec.info(at); filter(info) {
			matched = append(matched, info)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := len(matched)
	if offset >= total {
		return []*types.RecordInfo{}, total, nil
	}
	end := total
	if limit > 0 && limit < total-offset {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

// GetCommitment returns when fp was admitted.
func (r *registry) GetCommitment(ctx context.Context, fp types.Fingerprint) (*types.CommitmentInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	at, ok := r.commitments.lookup(fp)
	if !ok {
		return nil, ErrCommitmentNotFound
	}
	return &types.CommitmentInfo{Fingerprint: fp, AdmittedAt: at}, nil
}

// Holdings sums the value the registry is accountable for.
func (r *registry) Holdings() Holdings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.holdingsLocked()
}

func (r *registry) holdingsLocked() Holdings {
	h := Holdings{Fees: r.fees}
	for _, rec := range r.records {
		h.Escrow += rec.escrow
	}
	for _, amount := range r.lapsed {
		h.LapsedBonds += amount
	}
	return h
}

// Policy returns the deployment constants.
func (r *registry) Policy() Policy {
	return Policy{
		LockAmount:       r.config.LockAmount,
		LockPeriod:       r.config.LockPeriod,
		MinCommitmentAge: r.config.MinCommitmentAge,
		MaxCommitmentAge: r.config.MaxCommitmentAge,
	}
}

// Tick pops every scheduled expiration up to now and prunes stale commitments.
func (r *registry) Tick(ctx context.Context, now time.Time) int {
	start := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0
	}

	expired := 0
	for {
		item := r.expirations.peek()
		if item == nil || item.expiresAt.After(now) {
			break
		}
		heap.Pop(r.expirations)

		rec, ok := r.records[item.name]
		if !ok || !rec.expiresAt.Equal(item.expiresAt) {
			continue // renewed or recycled since this item was scheduled
		}
		expired++
		r.logger.Debugw("Registration lapsed", "name", rec.name, "owner", rec.owner, "escrow", rec.escrow)
	}

	pruned := r.commitments.prune(now, r.config.MaxCommitmentAge)

	if expired > 0 {
		r.metrics.IncrExpiredRecords(expired)
	}
	if pruned > 0 {
		r.metrics.IncrPrunedCommitments(pruned)
		r.logger.Debugw("Pruned unredeemable commitments", "count", pruned)
	}
	r.publishGaugesLocked(now)
	r.metrics.ObserveTickDuration(time.Since(start))

	return expired
}

func (r *registry) publishGaugesLocked(now time.Time) {
	active := 0
	for _, rec := range r.records {
		if rec.active(now) {
			active++
		}
	}
	h := r.holdingsLocked()
	r.metrics.SetRecordGauges(active, r.commitments.len(), h.Escrow+h.LapsedBonds)
}

// Snapshot serializes the registry's tables.
func (r *registry) Snapshot(ctx context.Context) (types.Index, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	r.mu.RLock()
	snap := registrySnapshot{
		LastApplied: r.lastApplied,
		Records:     make([]snapshotRecord, 0, len(r.records)),
		Commitments: make([]snapshotCommitment, 0, r.commitments.len()),
		LapsedBonds: make([]snapshotBond, 0, len(r.lapsed)),
		Fees:        r.fees,
	}
	for _, rec := range r.records {
		snap.Records = append(snap.Records, snapshotRecord{
			Name:         rec.name,
			Owner:        rec.owner,
			RegisteredAt: rec.registeredAt,
			ExpiresAt:    rec.expiresAt,
			Escrow:       rec.escrow,
			Renewals:     rec.renewals,
		})
	}
	for fp, at := range r.commitments.admitted {
		snap.Commitments = append(snap.Commitments, snapshotCommitment{Fingerprint: fp, AdmittedAt: at})
	}
	for key, amount := range r.lapsed {
		snap.LapsedBonds = append(snap.LapsedBonds, snapshotBond{Name: key.name, Owner: key.owner, Amount: amount})
	}
	r.mu.RUnlock()

	// Sorted so identical state always produces identical bytes.
	sort.Slice(snap.Records, func(i, j int) bool { return snap.Records[i].Name < snap.Records[j].Name })
	sort.Slice(snap.Commitments, func(i, j int) bool {
		return snap.Commitments[i].Fingerprint.String() < snap.Commitments[j].Fingerprint.String()
	})
	sort.Slice(snap.LapsedBonds, func(i, j int) bool {
		a, b := snap.LapsedBonds[i], snap.LapsedBonds[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Owner < b.Owner
	})

	data, err := r.serializer.EncodeSnapshot(snap)
	r.metrics.IncrSnapshotEvent(SnapshotCreate, err == nil)
	if err != nil {
		return 0, nil, fmt.Errorf("registry: encode snapshot: %w", err)
	}
	return snap.LastApplied, data, nil
}

// RestoreSnapshot replaces the registry state with the snapshot contents.
func (r *registry) RestoreSnapshot(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snap, err := r.serializer.DecodeSnapshot(data)
	if err != nil {
		r.metrics.IncrSnapshotEvent(SnapshotRestore, false)
		return fmt.Errorf("registry: decode snapshot: %w", err)
	}

	records := make(map[types.Name]*recordState, len(snap.Records))
	expHeap := make(expirationHeap, 0, len(snap.Records))
	for _, sr := range snap.Records {
		records[sr.Name] = &recordState{
			name:         sr.Name,
			owner:        sr.Owner,
			registeredAt: sr.RegisteredAt,
			expiresAt:    sr.ExpiresAt,
			escrow:       sr.Escrow,
			renewals:     sr.Renewals,
		}
		expHeap = append(expHeap, &expirationItem{name: sr.Name, expiresAt: sr.ExpiresAt, index: len(expHeap)})
	}
	heap.Init(&expHeap)

	commitments := newCommitmentStore()
	for _, sc := range snap.Commitments {
		commitments.admitted[sc.Fingerprint] = sc.AdmittedAt
	}
	lapsed := make(map[bondKey]types.Amount, len(snap.LapsedBonds))
	for _, sb := range snap.LapsedBonds {
		lapsed[bondKey{name: sb.Name, owner: sb.Owner}] = sb.Amount
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = records
	r.expirations = &expHeap
	r.commitments = commitments
	r.lapsed = lapsed
	r.fees = snap.Fees
	r.lastApplied = snap.LastApplied

	r.metrics.IncrSnapshotEvent(SnapshotRestore, true)
	r.logger.Infow("Registry restored from snapshot",
		"lastApplied", snap.LastApplied, "records", len(records), "commitments", commitments.len())
	return nil
}

// Close marks the registry closed. Subsequent mutations fail with ErrClosed.
func (r *registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
