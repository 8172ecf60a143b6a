package registry

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jathurchan/namereg/types"
)

// PricingPolicy maps a canonical name to its rent price.
// Implementations must be pure: the same name always yields the same price,
// with no dependency on ledger state or time.
type PricingPolicy interface {
	// RentPrice returns the price charged per registration or renewal.
	RentPrice(name types.Name) types.Amount

	// Floor returns the lowest price any name can be charged.
	Floor() types.Amount
}

// PriceTier prices every name of up to MaxRunes runes.
// A MaxRunes of 0 marks the catch-all tier and must come last.
type PriceTier struct {
	MaxRunes int          `json:"max_runes"`
	Price    types.Amount `json:"price"`
}

// TieredPricing is a length-tiered PricingPolicy: shorter names cost more.
type TieredPricing struct {
	tiers []PriceTier
}

// NewTieredPricing validates and builds a schedule. Tiers must be ordered by
// strictly increasing MaxRunes, end with a catch-all tier, and carry
// non-zero prices.
func NewTieredPricing(tiers ...PriceTier) (*TieredPricing, error) {
	if len(tiers) == 0 {
		return nil, errors.New("registry: pricing needs at least one tier")
	}
	prev := 0
	for i, tier := range tiers {
		last := i == len(tiers)-1
		switch {
		case tier.Price == 0:
			return nil, fmt.Errorf("registry: pricing tier %d has zero price", i)
		case last && tier.MaxRunes != 0:
			return nil, fmt.Errorf("registry: last pricing tier must be catch-all (MaxRunes 0)")
		case !last && tier.MaxRunes <= prev:
			return nil, fmt.Errorf("registry: pricing tier %d MaxRunes must exceed %d", i, prev)
		}
		prev = tier.MaxRunes
	}
	return &TieredPricing{tiers: append([]PriceTier(nil), tiers...)}, nil
}

// DefaultPricing returns the reference schedule: 1-3 runes, 4 runes, 5+ runes.
func DefaultPricing() *TieredPricing {
	p, err := NewTieredPricing(
		PriceTier{MaxRunes: 3, Price: DefaultShortNamePrice},
		PriceTier{MaxRunes: 4, Price: DefaultMediumNamePrice},
		PriceTier{MaxRunes: 0, Price: DefaultBaseNamePrice},
	)
	if err != nil {
		panic(err) // constants above are known-good
	}
	return p
}

// RentPrice implements PricingPolicy.
func (p *TieredPricing) RentPrice(name types.Name) types.Amount {
	n := utf8.RuneCountInString(string(name))
	for _, tier := range p.tiers {
		if tier.MaxRunes == 0 || n <= tier.MaxRunes {
			return tier.Price
		}
	}
	return p.tiers[len(p.tiers)-1].Price
}

// Floor implements PricingPolicy.
func (p *TieredPricing) Floor() types.Amount {
	floor := p.tiers[0].Price
	for _, tier := range p.tiers[1:] {
		floor = min(floor, tier.Price)
	}
	return floor
}

// Tiers returns a copy of the schedule.
func (p *TieredPricing) Tiers() []PriceTier {
	return append([]PriceTier(nil), p.tiers...)
}
