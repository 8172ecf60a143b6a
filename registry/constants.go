package registry

import (
	"time"

	"github.com/jathurchan/namereg/types"
)

// Policy defaults, matching the reference deployment.
const (
	// Ether is 10^9 base units (the base unit is a gwei), which keeps every
	// realistic balance inside a uint64.
	Ether types.Amount = 1_000_000_000

	// DefaultLockAmount is the bond locked by every registration.
	DefaultLockAmount = 1 * Ether

	// DefaultLockPeriod is how long a registration or renewal lasts.
	DefaultLockPeriod = 365 * 24 * time.Hour

	// DefaultMinCommitmentAge is the earliest a commitment may be revealed.
	DefaultMinCommitmentAge = 60 * time.Second

	// DefaultMaxCommitmentAge is the latest a commitment may be revealed.
	DefaultMaxCommitmentAge = 24 * time.Hour
)

// Name policy
const (
	// MaxNameLength is the maximum number of runes in a canonical name.
	MaxNameLength = 63

	// MaxOwnerLength bounds the size of an owner address.
	MaxOwnerLength = 128
)

// Default price schedule, by rune count of the canonical name.
const (
	DefaultShortNamePrice  = 5 * Ether       // 1 to 3 runes
	DefaultMediumNamePrice = 2 * Ether       // 4 runes
	DefaultBaseNamePrice   = Ether + Ether/4 // 5 runes and longer
)

// DefaultTickInterval is how often Tick should be driven to account for
// lapsed records and prune unredeemable commitments.
const DefaultTickInterval = 10 * time.Second

// SnapshotOperation represents a type of snapshot-related operation.
type SnapshotOperation string

const (
	// SnapshotCreate indicates a snapshot creation event.
	SnapshotCreate SnapshotOperation = "create"

	// SnapshotRestore indicates a snapshot restoration event.
	SnapshotRestore SnapshotOperation = "restore"
)
