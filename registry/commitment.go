package registry

import (
	"encoding/binary"
	"hash"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/jathurchan/namereg/types"
)

// ComputeFingerprint derives the commitment for (name, owner, salt) as
// Keccak-256 over the length-prefixed name, the length-prefixed owner and
// the raw 32-byte salt. Length prefixes keep ("ab","c") and ("a","bc") apart.
//
// The name must already be canonical; use Registry.MakeCommitment for raw input.
func ComputeFingerprint(name types.Name, owner types.Address, salt types.Salt) types.Fingerprint {
	h := sha3.NewLegacyKeccak256()
	writeField(h, []byte(name))
	writeField(h, []byte(owner))
	h.Write(salt[:])

	var fp types.Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}

func writeField(h hash.Hash, b []byte) {
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(b)))
	h.Write(prefix[:])
	h.Write(b)
}

// commitmentStore maps fingerprints to the ledger time they were admitted.
// Re-admission overwrites, which restarts the age window.
type commitmentStore struct {
	admitted map[types.Fingerprint]time.Time
}

func newCommitmentStore() *commitmentStore {
	return &commitmentStore{admitted: make(map[types.Fingerprint]time.Time)}
}

func (cs *commitmentStore) submit(fp types.Fingerprint, now time.Time) time.Time {
	cs.admitted[fp] = now
	return now
}

func (cs *commitmentStore) lookup(fp types.Fingerprint) (time.Time, bool) {
	at, ok := cs.admitted[fp]
	return at, ok
}

// checkAge enforces minAge <= now-admittedAt <= maxAge (closed interval).
func (cs *commitmentStore) checkAge(fp types.Fingerprint, now time.Time, minAge, maxAge time.Duration) error {
	admittedAt, ok := cs.admitted[fp]
	if !ok {
		return ErrCommitmentNotFound
	}
	age := now.Sub(admittedAt)
	if age < minAge {
		return ErrCommitmentTooYoung
	}
	if age > maxAge {
		return ErrCommitmentTooOld
	}
	return nil
}

// prune drops commitments that can no longer pass checkAge at or after now.
func (cs *commitmentStore) prune(now time.Time, maxAge time.Duration) int {
	pruned := 0
	for fp, at := range cs.admitted {
		if now.Sub(at) > maxAge {
			delete(cs.admitted, fp)
			pruned++
		}
	}
	return pruned
}

func (cs *commitmentStore) len() int { return len(cs.admitted) }
