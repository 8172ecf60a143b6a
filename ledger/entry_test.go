package ledger

import (
	"fmt"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jathurchan/namereg/testutil"
	"github.com/jathurchan/namereg/types"
)

func sampleEntry(index types.Index) Entry {
	return Entry{
		Index:     index,
		ID:        fmt.Sprintf("5d0a6c6e-8b1e-4a53-9f7f-%012d", index),
		Timestamp: genesis.Add(1500),
		Caller:    alice,
		Value:     42,
		Command:   []byte(`{"op":"commit"}`),
	}
}

func TestEntryEncoding(t *testing.T) {
	want := sampleEntry(1)

	t.Run("round trip", func(t *testing.T) {
		got, err := UnmarshalEntry(MarshalEntry(want))
		testutil.RequireNoError(t, err)
		testutil.AssertEqual(t, want, got)
	})

	t.Run("pre-epoch timestamps survive", func(t *testing.T) {
		e := want
		e.Timestamp = genesis.AddDate(-80, 0, 0)
		got, err := UnmarshalEntry(MarshalEntry(e))
		testutil.RequireNoError(t, err)
		testutil.AssertTrue(t, e.Timestamp.Equal(got.Timestamp))
	})

	t.Run("unknown fields are skipped", func(t *testing.T) {
		data := MarshalEntry(want)
		data = protowire.AppendTag(data, 99, protowire.BytesType)
		data = protowire.AppendString(data, "future")
		got, err := UnmarshalEntry(data)
		testutil.RequireNoError(t, err)
		testutil.AssertEqual(t, want, got)
	})

	t.Run("truncated", func(t *testing.T) {
		data := MarshalEntry(want)
		_, err := UnmarshalEntry(data[:len(data)-3])
		testutil.AssertErrorIs(t, err, ErrCorruptedJournal)
	})

	t.Run("missing index", func(t *testing.T) {
		_, err := UnmarshalEntry(nil)
		testutil.AssertErrorIs(t, err, ErrCorruptedJournal)
	})
}
