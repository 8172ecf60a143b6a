package types

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrAmountOverflow indicates an arithmetic result that does not fit in an Amount.
var ErrAmountOverflow = errors.New("types: amount overflow")

// String helps with making states readable in logs and debug output.
func (s RecordState) String() string {
	switch s {
	case StateUnclaimed:
		return "Unclaimed"
	case StateActive:
		return "Active"
	case StateExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// Add returns a+b, or ErrAmountOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	if uint64(a) > math.MaxUint64-uint64(b) {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}

// Sub returns a-b, or ErrAmountOverflow when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, ErrAmountOverflow
	}
	return a - b, nil
}

// String renders the fingerprint as 0x-prefixed lowercase hex.
func (f Fingerprint) String() string { return "0x" + hex.EncodeToString(f[:]) }

// IsZero reports whether f is the zero fingerprint.
func (f Fingerprint) IsZero() bool { return f == Fingerprint{} }

// MarshalText implements encoding.TextMarshaler.
func (f Fingerprint) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Fingerprint) UnmarshalText(text []byte) error {
	return decodeHex32(string(text), (*[32]byte)(f))
}

// ParseFingerprint decodes a 32-byte hex string, with or without 0x prefix.
func ParseFingerprint(s string) (Fingerprint, error) {
	var f Fingerprint
	err := f.UnmarshalText([]byte(s))
	return f, err
}

// String renders the salt as 0x-prefixed lowercase hex.
func (s Salt) String() string { return "0x" + hex.EncodeToString(s[:]) }

// MarshalText implements encoding.TextMarshaler.
func (s Salt) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Salt) UnmarshalText(text []byte) error {
	return decodeHex32(string(text), (*[32]byte)(s))
}

// ParseSalt decodes a 32-byte hex string, with or without 0x prefix.
func ParseSalt(s string) (Salt, error) {
	var salt Salt
	err := salt.UnmarshalText([]byte(s))
	return salt, err
}

func decodeHex32(s string, dst *[32]byte) error {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 64 {
		return fmt.Errorf("types: expected 64 hex characters, got %d", len(s))
	}
	if _, err := hex.Decode(dst[:], []byte(s)); err != nil {
		return fmt.Errorf("types: invalid hex: %w", err)
	}
	return nil
}
