package registry

import (
	"encoding/json"
	"time"

	"github.com/jathurchan/namereg/types"
)

// Serializer defines the interface for encoding and decoding data.
type Serializer interface {
	// EncodeCommand marshals a types.Command into a byte slice.
	EncodeCommand(cmd types.Command) ([]byte, error)

	// DecodeCommand unmarshals a byte slice into a types.Command.
	DecodeCommand(data []byte) (types.Command, error)

	// EncodeSnapshot serializes a registrySnapshot into a byte slice.
	EncodeSnapshot(snapshot registrySnapshot) ([]byte, error)

	// DecodeSnapshot deserializes a byte slice into a registrySnapshot.
	DecodeSnapshot(data []byte) (registrySnapshot, error)
}

// registrySnapshot is the persisted form of the registry's tables.
type registrySnapshot struct {
	LastApplied types.Index          `json:"last_applied"`
	Records     []snapshotRecord     `json:"records"`
	Commitments []snapshotCommitment `json:"commitments"`
	LapsedBonds []snapshotBond       `json:"lapsed_bonds"`
	Fees        types.Amount         `json:"fees"`
}

type snapshotRecord struct {
	Name         types.Name    `json:"name"`
	Owner        types.Address `json:"owner"`
	RegisteredAt time.Time     `json:"registered_at"`
	ExpiresAt    time.Time     `json:"expires_at"`
	Escrow       types.Amount  `json:"escrow"`
	Renewals     int           `json:"renewals"`
}

type snapshotCommitment struct {
	Fingerprint types.Fingerprint `json:"fingerprint"`
	AdmittedAt  time.Time         `json:"admitted_at"`
}

type snapshotBond struct {
	Name   types.Name    `json:"name"`
	Owner  types.Address `json:"owner"`
	Amount types.Amount  `json:"amount"`
}

// JSONSerializer implements the Serializer interface using JSON encoding.
type JSONSerializer struct{}

// EncodeCommand marshals a ledger command.
func (s *JSONSerializer) EncodeCommand(cmd types.Command) ([]byte, error) {
	return json.Marshal(cmd)
}

// DecodeCommand unmarshals a ledger command.
func (s *JSONSerializer) DecodeCommand(cmdData []byte) (types.Command, error) {
	var cmd types.Command
	err := json.Unmarshal(cmdData, &cmd)
	return cmd, err
}

// EncodeSnapshot marshals a snapshot of the registry state.
func (s *JSONSerializer) EncodeSnapshot(snapshot registrySnapshot) ([]byte, error) {
	return json.Marshal(snapshot)
}

// DecodeSnapshot deserializes a byte slice into a registrySnapshot.
func (s *JSONSerializer) DecodeSnapshot(data []byte) (registrySnapshot, error) {
	var snapshot registrySnapshot
	err := json.Unmarshal(data, &snapshot)
	return snapshot, err
}
