package registry

import (
	"testing"
	"time"

	"github.com/jathurchan/namereg/testutil"
	"github.com/jathurchan/namereg/types"
)

func TestJSONSerializer_Command(t *testing.T) {
	s := &JSONSerializer{}
	cmd := types.Command{
		Op:    types.OperationRegister,
		Name:  "alpha",
		Owner: alice,
		Salt:  testutil.SaltFromSeed(3),
	}

	data, err := s.EncodeCommand(cmd)
	testutil.RequireNoError(t, err)
	testutil.AssertContains(t, string(data), `"op":"register"`)
	testutil.AssertContains(t, string(data), `"salt":"0x`)

	got, err := s.DecodeCommand(data)
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, cmd, got)

	_, err = s.DecodeCommand([]byte(`{"op":"commit","fingerprint":"0x12"}`))
	testutil.AssertError(t, err, "short fingerprint must be rejected")
}

func TestJSONSerializer_Snapshot(t *testing.T) {
	s := &JSONSerializer{}
	snap := registrySnapshot{
		LastApplied: 7,
		Records: []snapshotRecord{{
			Name: "alpha", Owner: alice, RegisteredAt: genesis, ExpiresAt: genesis.Add(time.Hour), Escrow: Ether, Renewals: 2,
		}},
		Commitments: []snapshotCommitment{{Fingerprint: types.Fingerprint{1}, AdmittedAt: genesis}},
		LapsedBonds: []snapshotBond{{Name: "alpha", Owner: bob, Amount: Ether}},
		Fees:        42,
	}

	data, err := s.EncodeSnapshot(snap)
	testutil.RequireNoError(t, err)
	got, err := s.DecodeSnapshot(data)
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, snap, got)
}
