package registry

import (
	"strings"
	"testing"

	"github.com/jathurchan/namereg/testutil"
	"github.com/jathurchan/namereg/types"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  types.Name
		valid bool
	}{
		{"lowercase", "alpha", "alpha", true},
		{"folds case", "ALPHA", "alpha", true},
		{"trims whitespace", "  alpha\t", "alpha", true},
		{"hyphen inside", "my-name", "my-name", true},
		{"digits", "web3", "web3", true},
		{"unicode letters", "Ñandú", "ñandú", true},
		{"decomposed input is composed", "n\u0303", "\u00f1", true},
		{"sharp s folds", "STRASSE", "strasse", true},
		{"max length", strings.Repeat("a", MaxNameLength), types.Name(strings.Repeat("a", MaxNameLength)), true},
		{"empty", "", "", false},
		{"only spaces", "   ", "", false},
		{"too long", strings.Repeat("a", MaxNameLength+1), "", false},
		{"leading hyphen", "-alpha", "", false},
		{"trailing hyphen", "alpha-", "", false},
		{"inner space", "al pha", "", false},
		{"dot", "alpha.eth", "", false},
		{"emoji", "alpha🙂", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CanonicalName(tc.input)
			if !tc.valid {
				testutil.AssertErrorIs(t, err, ErrInvalidName)
				return
			}
			testutil.RequireNoError(t, err)
			testutil.AssertEqual(t, tc.want, got)
		})
	}
}

func TestValidateOwner(t *testing.T) {
	testutil.AssertNoError(t, validateOwner("0xabc"))
	testutil.AssertErrorIs(t, validateOwner(""), ErrInvalidOwner)
	testutil.AssertErrorIs(t, validateOwner("0x a"), ErrInvalidOwner)
	testutil.AssertErrorIs(t, validateOwner(types.Address(strings.Repeat("f", MaxOwnerLength+1))), ErrInvalidOwner)
}
