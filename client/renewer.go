package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jathurchan/namereg/clock"
	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/types"
)

// ErrNameNotHeld is reported by an AutoRenewer whose name is no longer active
// or has passed to an owner other than the expected one.
var ErrNameNotHeld = errors.New("name is not active")

// AutoRenewer defines a background mechanism for keeping a name registered.
// It handles lifecycle management, graceful shutdown, and error reporting.
type AutoRenewer interface {
	// Start begins the auto-renewal process in a background goroutine.
	// The provided context is used to control the lifecycle of the renewal process.
	Start(ctx context.Context)

	// Stop gracefully stops the auto-renewal loop and waits for it to exit.
	// Returns any terminal error from the renewal process or shutdown.
	Stop(ctx context.Context) error

	// Done returns a channel that's closed when the auto-renewer has stopped.
	Done() <-chan struct{}

	// Err returns the error that caused the renewer to stop, if any.
	Err() error

	// Renewals returns how many renewals the renewer has submitted.
	Renewals() int
}

// autoRenewer checks the record on every tick and renews it once the ledger
// reports it within window of expiring. Expiry is judged against the
// ledger's time, not the local clock.
type autoRenewer struct {
	client   RegistryClient
	caller   types.Address
	owner    types.Address // Empty accepts any owner.
	name     string
	interval time.Duration
	window   time.Duration

	clock clock.Clock

	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	wg       sync.WaitGroup
	err      error
	renewals int
}

// AutoRenewerOptions holds optional configuration for an AutoRenewer.
type AutoRenewerOptions struct {
	Clock clock.Clock
	Owner types.Address
}

// AutoRenewerOption is a function that applies a configuration option to an AutoRenewer.
type AutoRenewerOption func(*AutoRenewerOptions)

// WithClock provides a custom clock implementation to the AutoRenewer,
// which is primarily useful for testing time-dependent behavior.
func WithClock(clk clock.Clock) AutoRenewerOption {
	return func(opts *AutoRenewerOptions) {
		opts.Clock = clk
	}
}

// WithOwner makes the AutoRenewer stop with ErrNameNotHeld as soon as the
// record's owner is anyone other than owner. Without it the renewer pays for
// the name whoever holds it.
func WithOwner(owner types.Address) AutoRenewerOption {
	return func(opts *AutoRenewerOptions) {
		opts.Owner = owner
	}
}

// NewAutoRenewer creates an AutoRenewer that pays for renewals of name from
// caller's balance. The record is checked every interval and renewed when
// it expires within window.
func NewAutoRenewer(client RegistryClient, caller types.Address, name string, interval, window time.Duration, opts ...AutoRenewerOption) (AutoRenewer, error) {
	if client == nil {
		return nil, errors.New("registry client cannot be nil")
	}
	if caller == "" || name == "" {
		return nil, errors.New("caller and name are required")
	}
	if interval <= 0 {
		return nil, errors.New("renewal interval must be positive")
	}
	if window <= interval {
		return nil, fmt.Errorf("renewal window (%v) must be greater than check interval (%v)", window, interval)
	}

	options := &AutoRenewerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.NewStandardClock()
	}

	return &autoRenewer{
		client:   client,
		caller:   caller,
		owner:    options.Owner,
		name:     name,
		interval: interval,
		window:   window,
		clock:    clk,
	}, nil
}

// Start begins the auto-renewal process in a background goroutine.
func (r *autoRenewer) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	// Created here so ticks after Start returns are never missed.
	ticker := r.clock.NewTicker(r.interval)

	r.wg.Add(1)
	go r.run(ticker)
}

// Stop gracefully stops the auto-renewal process.
func (r *autoRenewer) Stop(ctx context.Context) error {
	r.mu.RLock()
	cancel := r.cancel
	r.mu.RUnlock()

	if cancel == nil {
		return nil
	}

	cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return r.Err()
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for auto-renewer to stop: %w", ctx.Err())
	}
}

// Done returns a channel that is closed when the renewer stops.
func (r *autoRenewer) Done() <-chan struct{} {
	r.mu.RLock()
	done := r.done
	r.mu.RUnlock()

	if done == nil {
		closedCh := make(chan struct{})
		close(closedCh)
		return closedCh
	}
	return done
}

// Err returns the error that caused the renewer to stop.
func (r *autoRenewer) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

func (r *autoRenewer) Renewals() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.renewals
}

func (r *autoRenewer) setError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// run is the main renewal loop.
func (r *autoRenewer) run(ticker clock.Ticker) {
	defer r.wg.Done()
	defer close(r.done)
	defer r.cancel()
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if err := r.check(); err != nil {
				r.setError(err)
				return
			}
		case <-r.ctx.Done():
			r.setError(r.ctx.Err())
			return
		}
	}
}

// check renews the name if it is within the renewal window.
func (r *autoRenewer) check() error {
	resp, err := r.client.GetRecord(r.ctx, r.name)
	if errors.Is(err, registry.ErrRecordNotFound) {
		return fmt.Errorf("auto-renewal stopped: %w", ErrNameNotHeld)
	}
	if err != nil {
		return fmt.Errorf("auto-renewal lookup failed: %w", err)
	}
	rec := resp.Record
	if rec == nil || rec.State != types.StateActive {
		return fmt.Errorf("auto-renewal stopped: %w", ErrNameNotHeld)
	}
	if r.owner != "" && rec.Owner != r.owner {
		return fmt.Errorf("auto-renewal stopped: %q is held by %s: %w", r.name, rec.Owner, ErrNameNotHeld)
	}
	if rec.ExpiresAt.Sub(resp.AsOf) > r.window {
		return nil
	}

	quote, err := r.client.RentPrice(r.ctx, r.name)
	if err != nil {
		return fmt.Errorf("auto-renewal quote failed: %w", err)
	}
	if _, err := r.client.Renew(r.ctx, r.caller, r.name, quote.Price); err != nil {
		return fmt.Errorf("auto-renewal failed: %w", err)
	}

	r.mu.Lock()
	r.renewals++
	r.mu.Unlock()
	return nil
}
