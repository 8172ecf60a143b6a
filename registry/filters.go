package registry

import (
	"github.com/jathurchan/namereg/types"
)

// RecordFilter decides whether a record is included in GetRecords results.
type RecordFilter func(*types.RecordInfo) bool

var (
	// FilterByOwner matches records held by owner, active or not.
	FilterByOwner = func(owner types.Address) RecordFilter {
		return func(r *types.RecordInfo) bool {
			return r.Owner == owner
		}
	}

	// FilterActive matches records that are active at the query time.
	FilterActive RecordFilter = func(r *types.RecordInfo) bool {
		return r.State == types.StateActive
	}

	// FilterExpired matches records past their expiry, with or without escrow.
	FilterExpired RecordFilter = func(r *types.RecordInfo) bool {
		return r.State == types.StateExpired
	}

	// FilterWithdrawable matches expired records that still hold escrow.
	FilterWithdrawable RecordFilter = func(r *types.RecordInfo) bool {
		return r.State == types.StateExpired && r.Escrow > 0
	}

	// FilterAll matches every record.
	FilterAll RecordFilter = func(*types.RecordInfo) bool {
		return true
	}
)

// And combines filters; a record must satisfy all of them.
func And(filters ...RecordFilter) RecordFilter {
	return func(r *types.RecordInfo) bool {
		for _, f := range filters {
			if f != nil && !f(r) {
				return false
			}
		}
		return true
	}
}
