package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jathurchan/namereg/api"
	"github.com/jathurchan/namereg/client"
	"github.com/jathurchan/namereg/ledger"
	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/server"
	"github.com/jathurchan/namereg/testutil"
	"github.com/jathurchan/namereg/types"
)

// startServer runs a registry server on a loopback port with no minimum
// commitment age, so register completes without waiting.
func startServer(t *testing.T) string {
	t.Helper()

	reg, err := registry.NewRegistry(registry.WithCommitmentAge(0, time.Hour))
	testutil.RequireNoError(t, err)
	l, err := ledger.New(context.Background(), reg, ledger.WithDeposits(true))
	testutil.RequireNoError(t, err)

	srv, err := server.NewRegistryServerBuilder().
		WithLedger(l).
		WithListenAddress("127.0.0.1:0").
		WithTickInterval(0).
		WithDeposits(true).
		Build()
	testutil.RequireNoError(t, err)
	testutil.RequireNoError(t, srv.Start(context.Background()))

	t.Cleanup(func() {
		_ = srv.Stop(context.Background())
		_ = l.Close()
	})
	return srv.Addr()
}

func runCLI(t *testing.T, addr string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(t.Context(), append([]string{"-endpoints", addr, "-retries", "0"}, args...), &out, io.Discard)
	return out.String(), err
}

func TestCLI_RegistrationLifecycle(t *testing.T) {
	addr := startServer(t)

	_, err := runCLI(t, addr, "deposit", "0xa11ce", "10eth")
	testutil.RequireNoError(t, err)

	out, err := runCLI(t, addr, "balance", "0xa11ce")
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, "10000000000\n", out)

	out, err = runCLI(t, addr, "price", "alpha")
	testutil.RequireNoError(t, err)
	var quote api.RentPriceResponse
	testutil.RequireNoError(t, json.Unmarshal([]byte(out), &quote))
	testutil.AssertEqual(t, registry.DefaultBaseNamePrice, quote.Price)

	out, err = runCLI(t, addr, "register", "-caller", "0xa11ce", "-reveal-delay", "10ms", "alpha")
	testutil.RequireNoError(t, err)
	var res client.RegistrationResult
	testutil.RequireNoError(t, json.Unmarshal([]byte(out), &res))
	testutil.AssertEqual(t, types.Address("0xa11ce"), res.Register.Receipt.Record.Owner)

	out, err = runCLI(t, addr, "record", "alpha")
	testutil.RequireNoError(t, err)
	testutil.AssertContains(t, out, `"owner": "0xa11ce"`)

	out, err = runCLI(t, addr, "list", "-owner", "0xa11ce", "-state", "active")
	testutil.RequireNoError(t, err)
	var list api.ListRecordsResponse
	testutil.RequireNoError(t, json.Unmarshal([]byte(out), &list))
	testutil.AssertEqual(t, 1, list.Total)

	_, err = runCLI(t, addr, "renew", "-caller", "0xa11ce", "alpha")
	testutil.RequireNoError(t, err)

	_, err = runCLI(t, addr, "withdraw", "-caller", "0xa11ce", "alpha")
	testutil.AssertErrorIs(t, err, registry.ErrNotExpired)

	out, err = runCLI(t, addr, "balances")
	testutil.RequireNoError(t, err)
	paid := 2 * registry.DefaultBaseNamePrice
	testutil.AssertEqual(t,
		fmt.Sprintf("0xa11ce %d\n%s %d\n", uint64(10*registry.Ether-paid), ledger.DefaultRegistryAccount, uint64(paid)),
		out)
}

func TestCLI_ManualCommitReveal(t *testing.T) {
	addr := startServer(t)
	salt := testutil.SaltFromSeed(9).String()

	_, err := runCLI(t, addr, "deposit", "0xb0b", "5000000000")
	testutil.RequireNoError(t, err)

	out, err := runCLI(t, addr, "fingerprint", "bravo", "0xb0b", salt)
	testutil.RequireNoError(t, err)
	fp := strings.TrimSpace(out)
	testutil.AssertTrue(t, strings.HasPrefix(fp, "0x"))

	_, err = runCLI(t, addr, "commit", "-caller", "0xb0b", fp)
	testutil.RequireNoError(t, err)

	out, err = runCLI(t, addr, "commitment", fp)
	testutil.RequireNoError(t, err)
	testutil.AssertContains(t, out, fp)

	_, err = runCLI(t, addr, "reveal", "-caller", "0xb0b", "-salt", salt, "bravo")
	testutil.RequireNoError(t, err)

	out, err = runCLI(t, addr, "balance", "0xb0b")
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, "3750000000\n", out)
}

func TestCLI_UsageErrors(t *testing.T) {
	addr := startServer(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"lock", "x"}},
		{"missing caller", []string{"commit", "0x01"}},
		{"wrong arity", []string{"record"}},
		{"balances takes no arguments", []string{"balances", "0xa11ce"}},
		{"bad fingerprint", []string{"commit", "-caller", "0xa11ce", "zz"}},
		{"bad amount", []string{"deposit", "0xa11ce", "lots"}},
		{"bad value flag", []string{"renew", "-caller", "0xa11ce", "-value", "x", "alpha"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runCLI(t, addr, tc.args...)
			testutil.AssertErrorIs(t, err, errUsage)
		})
	}
}

func TestCLI_Help(t *testing.T) {
	var out bytes.Buffer
	testutil.RequireNoError(t, run(t.Context(), []string{"help"}, &out, io.Discard))
	for name := range commands {
		testutil.AssertContains(t, out.String(), commands[name].usage)
	}
}

func TestCLI_EndpointsFromEnv(t *testing.T) {
	addr := startServer(t)
	t.Setenv("NAMEREG_ENDPOINTS", "127.0.0.1:1,"+addr)

	var got globalConfig
	orig := newClientFunc
	newClientFunc = func(cfg globalConfig) (client.RegistryClient, error) {
		got = cfg
		return orig(cfg)
	}
	t.Cleanup(func() { newClientFunc = orig })

	var out bytes.Buffer
	err := run(t.Context(), []string{"health"}, &out, io.Discard)
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, []string{"127.0.0.1:1", addr}, got.Endpoints)
	testutil.AssertContains(t, out.String(), `"healthy": true`)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    types.Amount
		wantErr bool
	}{
		{"0", 0, false},
		{"1250000000", registry.DefaultBaseNamePrice, false},
		{"2eth", 2 * registry.Ether, false},
		{"2 eth", 2 * registry.Ether, false},
		{"1.5eth", 0, true},
		{"-1", 0, true},
		{"99999999999999999999eth", 0, true},
		{"", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseAmount(tc.in)
			if tc.wantErr {
				testutil.AssertError(t, err)
				return
			}
			testutil.RequireNoError(t, err)
			testutil.AssertEqual(t, tc.want, got)
		})
	}
}

func TestSplitEndpoints(t *testing.T) {
	testutil.AssertEqual(t, []string{"a:1", "b:2"}, splitEndpoints(" a:1, ,b:2 "))
	testutil.AssertLen(t, splitEndpoints(""), 0)
}
