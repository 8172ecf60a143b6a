package registry

import (
	"time"

	"github.com/jathurchan/namereg/types"
)

// recordState is the registry's internal, mutable view of one name.
type recordState struct {
	name  types.Name
	owner types.Address

	// Ledger time of the registration that created this record.
	registeredAt time.Time

	// The record is active while now < expiresAt.
	expiresAt time.Time

	// Bond still locked for owner; zeroed by withdrawal.
	escrow types.Amount

	renewals int
}

func (r *recordState) active(now time.Time) bool {
	return now.Before(r.expiresAt)
}

func (r *recordState) info(now time.Time) *types.RecordInfo {
	state := types.StateExpired
	if r.active(now) {
		state = types.StateActive
	}
	return &types.RecordInfo{
		Name:         r.name,
		Owner:        r.owner,
		RegisteredAt: r.registeredAt,
		ExpiresAt:    r.expiresAt,
		Escrow:       r.escrow,
		Renewals:     r.renewals,
		State:        state,
	}
}

// bondKey identifies a bond left behind when an expired record was recycled.
type bondKey struct {
	name  types.Name
	owner types.Address
}
