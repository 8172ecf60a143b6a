package client

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/jathurchan/namereg/api"
	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/types"
)

// Default slack added to the minimum commitment age before revealing.
const defaultRevealDelay = time.Second

// maxRevealAttempts bounds how often Register is retried when the ledger
// still considers the commitment too young.
const maxRevealAttempts = 3

var (
	// NewSaltFunc generates registration salts. Replaceable in tests.
	NewSaltFunc = NewSalt

	// WaitFunc blocks between commit and reveal. Replaceable in tests.
	WaitFunc = sleepContext

	// NewAutoRenewerFunc is a function variable for mocking the auto-renewer.
	NewAutoRenewerFunc = func(client RegistryClient, caller types.Address, name string, interval, window time.Duration, opts ...AutoRenewerOption) (AutoRenewer, error) {
		return NewAutoRenewer(client, caller, name, interval, window, opts...)
	}
)

// NewSalt returns 32 random bytes for hiding a commitment.
func NewSalt() (types.Salt, error) {
	var salt types.Salt
	if _, err := rand.Read(salt[:]); err != nil {
		return types.Salt{}, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// Registration describes a name to claim through commit-reveal.
type Registration struct {
	// Caller pays for the registration.
	Caller types.Address

	// Owner receives the name. Defaults to Caller.
	Owner types.Address

	Name string

	// Salt hides the commitment. A random salt is generated when zero.
	Salt types.Salt

	// Value is tendered with Register. Defaults to the quoted rent price.
	Value types.Amount

	// RevealDelay is waited on top of the minimum commitment age to absorb
	// skew between the client's and the ledger's clocks.
	RevealDelay time.Duration
}

// RegistrationResult holds everything needed to audit a completed registration.
type RegistrationResult struct {
	Fingerprint types.Fingerprint
	Salt        types.Salt
	Commit      *api.TxResponse
	Register    *api.TxResponse
}

// CommitAndRegister runs the full commit-reveal flow: it commits to the
// name, waits out the minimum commitment age and reveals.
func CommitAndRegister(ctx context.Context, client RegistryClient, reg Registration) (*RegistrationResult, error) {
	if reg.Owner == "" {
		reg.Owner = reg.Caller
	}
	if reg.RevealDelay <= 0 {
		reg.RevealDelay = defaultRevealDelay
	}
	if reg.Salt == (types.Salt{}) {
		salt, err := NewSaltFunc()
		if err != nil {
			return nil, err
		}
		reg.Salt = salt
	}

	policy, err := client.Policy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch policy: %w", err)
	}
	if reg.Value == 0 {
		quote, err := client.RentPrice(ctx, reg.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to quote %q: %w", reg.Name, err)
		}
		reg.Value = quote.Price
	}

	fp, err := client.MakeCommitment(ctx, reg.Name, reg.Owner, reg.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to compute commitment: %w", err)
	}
	commit, err := client.Commit(ctx, reg.Caller, fp)
	if err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	result := &RegistrationResult{Fingerprint: fp, Salt: reg.Salt, Commit: commit}
	if err := WaitFunc(ctx, policy.MinCommitmentAge+reg.RevealDelay); err != nil {
		return result, err
	}

	req := &api.RegisterRequest{
		Caller: reg.Caller,
		Value:  reg.Value,
		Name:   reg.Name,
		Owner:  reg.Owner,
		Salt:   reg.Salt,
	}
	for attempt := 1; ; attempt++ {
		result.Register, err = client.Register(ctx, req)
		if err == nil || !errors.Is(err, registry.ErrCommitmentTooYoung) || attempt == maxRevealAttempts {
			break
		}
		if err := WaitFunc(ctx, reg.RevealDelay); err != nil {
			return result, err
		}
	}
	if err != nil {
		return result, fmt.Errorf("failed to register %q: %w", reg.Name, err)
	}
	return result, nil
}

// RunWithRenewal keeps caller's name registered while fn runs, renewing it
// whenever it comes within window of expiring. Renewal stops with
// ErrNameNotHeld if the name passes to another owner.
func RunWithRenewal(ctx context.Context, client RegistryClient, caller types.Address, name string, interval, window time.Duration, fn func(context.Context) error) (err error) {
	renewer, err := NewAutoRenewerFunc(client, caller, name, interval, window, WithOwner(caller))
	if err != nil {
		return fmt.Errorf("failed to create auto-renewer: %w", err)
	}

	renewerCtx, cancel := context.WithCancel(ctx)
	renewer.Start(renewerCtx)

	defer func() {
		cancel()
		stopErr := renewer.Stop(context.Background())
		if err == nil && !errors.Is(stopErr, context.Canceled) {
			err = stopErr
		}
	}()

	return fn(renewerCtx)
}
