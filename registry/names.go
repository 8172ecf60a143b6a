package registry

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/jathurchan/namereg/types"
)

// CanonicalName maps user input to the form under which a name is priced,
// committed to and stored: trimmed, NFC-normalized and case-folded.
// Canonical names hold 1 to MaxNameLength letters, digits or hyphens and do
// not start or end with a hyphen.
func CanonicalName(raw string) (types.Name, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidName)
	}

	// Folding can produce non-NFC sequences, so normalize on both sides.
	// A Caser is stateful; never share one across goroutines.
	s = norm.NFC.String(cases.Fold().String(norm.NFC.String(s)))

	if n := utf8.RuneCountInString(s); n > MaxNameLength {
		return "", fmt.Errorf("%w: %d runes exceeds limit of %d", ErrInvalidName, n, MaxNameLength)
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' {
			return "", fmt.Errorf("%w: character %q not allowed", ErrInvalidName, r)
		}
	}
	if strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
		return "", fmt.Errorf("%w: leading or trailing hyphen", ErrInvalidName)
	}
	return types.Name(s), nil
}

// validateOwner checks an owner address is usable as a record owner.
func validateOwner(owner types.Address) error {
	if owner == "" {
		return fmt.Errorf("%w: owner is empty", ErrInvalidOwner)
	}
	if len(owner) > MaxOwnerLength {
		return fmt.Errorf("%w: owner exceeds %d bytes", ErrInvalidOwner, MaxOwnerLength)
	}
	if strings.ContainsFunc(string(owner), unicode.IsSpace) {
		return fmt.Errorf("%w: owner contains whitespace", ErrInvalidOwner)
	}
	return nil
}
