package ledger

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jathurchan/namereg/types"
)

// Entry is one journaled transaction. Entries are written before they are
// executed, so failed transactions are journaled too and fail identically
// on replay.
type Entry struct {
	Index     types.Index
	ID        string
	Timestamp time.Time
	Caller    types.Address
	Value     types.Amount
	Command   []byte
}

// Wire field numbers of an encoded Entry.
const (
	fieldIndex     protowire.Number = 1
	fieldID        protowire.Number = 2
	fieldTimestamp protowire.Number = 3
	fieldCaller    protowire.Number = 4
	fieldValue     protowire.Number = 5
	fieldCommand   protowire.Number = 6
)

// MarshalEntry encodes e in protobuf wire format.
func MarshalEntry(e Entry) []byte {
	b := make([]byte, 0, 64+len(e.ID)+len(e.Caller)+len(e.Command))
	b = protowire.AppendTag(b, fieldIndex, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Index))
	b = protowire.AppendTag(b, fieldID, protowire.BytesType)
	b = protowire.AppendString(b, e.ID)
	b = protowire.AppendTag(b, fieldTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(e.Timestamp.UnixNano()))
	b = protowire.AppendTag(b, fieldCaller, protowire.BytesType)
	b = protowire.AppendString(b, string(e.Caller))
	b = protowire.AppendTag(b, fieldValue, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Value))
	b = protowire.AppendTag(b, fieldCommand, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Command)
	return b
}

// UnmarshalEntry decodes an Entry produced by MarshalEntry. Unknown fields are skipped.
func UnmarshalEntry(data []byte) (Entry, error) {
	var e Entry
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Entry{}, fmt.Errorf("%w: tag: %v", ErrCorruptedJournal, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case typ == protowire.VarintType && (num == fieldIndex || num == fieldTimestamp || num == fieldValue):
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return Entry{}, fmt.Errorf("%w: field %d: %v", ErrCorruptedJournal, num, protowire.ParseError(n))
			}
			data = data[n:]
			switch num {
			case fieldIndex:
				e.Index = types.Index(v)
			case fieldTimestamp:
				e.Timestamp = time.Unix(0, protowire.DecodeZigZag(v)).UTC()
			case fieldValue:
				e.Value = types.Amount(v)
			}

		case typ == protowire.BytesType && (num == fieldID || num == fieldCaller || num == fieldCommand):
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return Entry{}, fmt.Errorf("%w: field %d: %v", ErrCorruptedJournal, num, protowire.ParseError(n))
			}
			data = data[n:]
			switch num {
			case fieldID:
				e.ID = string(v)
			case fieldCaller:
				e.Caller = types.Address(v)
			case fieldCommand:
				e.Command = append([]byte(nil), v...)
			}

		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return Entry{}, fmt.Errorf("%w: field %d: %v", ErrCorruptedJournal, num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	if e.Index == 0 {
		return Entry{}, fmt.Errorf("%w: missing index", ErrCorruptedJournal)
	}
	return e, nil
}
