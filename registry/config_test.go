package registry

import (
	"testing"
	"time"

	"github.com/jathurchan/namereg/testutil"
)

func TestRegistryConfig_Validate(t *testing.T) {
	cheap, err := NewTieredPricing(PriceTier{MaxRunes: 0, Price: 10})
	testutil.RequireNoError(t, err)

	tests := []struct {
		name   string
		mutate func(*RegistryConfig)
		valid  bool
	}{
		{"defaults", func(*RegistryConfig) {}, true},
		{"zero bond", func(c *RegistryConfig) { c.LockAmount = 0 }, true},
		{"equal ages", func(c *RegistryConfig) { c.MinCommitmentAge, c.MaxCommitmentAge = time.Minute, time.Minute }, true},
		{"zero lock period", func(c *RegistryConfig) { c.LockPeriod = 0 }, false},
		{"negative min age", func(c *RegistryConfig) { c.MinCommitmentAge = -time.Second }, false},
		{"max below min", func(c *RegistryConfig) { c.MaxCommitmentAge = time.Second }, false},
		{"nil pricing", func(c *RegistryConfig) { c.Pricing = nil }, false},
		{"floor below bond", func(c *RegistryConfig) { c.Pricing = cheap }, false},
		{"nil serializer", func(c *RegistryConfig) { c.Serializer = nil }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultRegistryConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.valid {
				testutil.AssertNoError(t, err)
			} else {
				testutil.AssertError(t, err)
			}
		})
	}
}

func TestRegistryOptions(t *testing.T) {
	r, _ := createTestRegistry(t,
		WithLockAmount(Ether/2),
		WithLockPeriod(30*24*time.Hour),
		WithCommitmentAge(time.Second, time.Minute),
		WithPricing(nil),
		WithSerializer(nil),
	)

	testutil.AssertAmount(t, Ether/2, r.config.LockAmount)
	testutil.AssertEqual(t, 30*24*time.Hour, r.config.LockPeriod)
	testutil.AssertEqual(t, time.Second, r.config.MinCommitmentAge)
	testutil.AssertEqual(t, time.Minute, r.config.MaxCommitmentAge)
	testutil.AssertNotNil(t, r.config.Pricing, "nil pricing option is ignored")
	testutil.AssertNotNil(t, r.serializer, "nil serializer option is ignored")
}
