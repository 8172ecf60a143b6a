package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/jathurchan/namereg/api"
	"github.com/jathurchan/namereg/client"
	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/types"
)

const (
	defaultEndpoint = "localhost:7420"
	defaultTimeout  = 10 * time.Second
)

// errUsage marks errors caused by malformed command lines.
var errUsage = errors.New("usage error")

// globalConfig holds options shared by every command.
type globalConfig struct {
	Endpoints []string      `env:"NAMEREG_ENDPOINTS" envSeparator:","`
	Timeout   time.Duration `env:"NAMEREG_TIMEOUT"`
	Retries   int           `env:"NAMEREG_RETRIES"`
}

// newClientFunc builds the registry client. Replaceable in tests.
var newClientFunc = func(cfg globalConfig) (client.RegistryClient, error) {
	return client.NewRegistryClientBuilder(cfg.Endpoints).
		WithRequestTimeout(cfg.Timeout).
		WithRetryOptions(cfg.Retries, 0, 0, 0).
		Build()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type command struct {
	usage string
	help  string
	run   func(c *cli, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"salt":        {"salt", "Generate a random 32-byte salt", (*cli).salt},
	"fingerprint": {"fingerprint <name> <owner> <salt>", "Compute a commitment fingerprint", (*cli).fingerprint},
	"price":       {"price <name>", "Quote the rent for a name", (*cli).price},
	"policy":      {"policy", "Show the registry's deployment constants", (*cli).policy},
	"commit":      {"commit -caller <addr> <fingerprint>", "Admit a commitment", (*cli).commit},
	"reveal":      {"reveal -caller <addr> -owner <addr> -salt <hex> [-value <amount>] <name>", "Register a previously committed name", (*cli).reveal},
	"register":    {"register -caller <addr> [-owner <addr>] [-salt <hex>] [-value <amount>] <name>", "Commit, wait, and reveal in one step", (*cli).register},
	"renew":       {"renew -caller <addr> [-value <amount>] <name>", "Extend an active registration", (*cli).renew},
	"withdraw":    {"withdraw -caller <addr> <name>", "Release the escrowed bond of an expired record", (*cli).withdraw},
	"record":      {"record <name>", "Show a name's record", (*cli).record},
	"list":        {"list [-owner <addr>] [-state active|expired|withdrawable] [-limit n] [-offset n]", "List records", (*cli).list},
	"commitment":  {"commitment <fingerprint>", "Show a pending commitment", (*cli).commitment},
	"balance":     {"balance <account>", "Show an account balance", (*cli).balance},
	"balances":    {"balances", "List every funded account", (*cli).balances},
	"deposit":     {"deposit <account> <amount>", "Mint funds (development servers only)", (*cli).deposit},
	"health":      {"health", "Check server health", (*cli).health},
}

// cli executes one command against a registry client.
type cli struct {
	client client.RegistryClient
	out    io.Writer
}

// run parses global options, connects, and dispatches the command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := globalConfig{Endpoints: []string{defaultEndpoint}, Timeout: defaultTimeout, Retries: -1}
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("namereg", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { showUsage(stderr) }
	endpoints := fs.String("endpoints", strings.Join(cfg.Endpoints, ","), "comma-separated server endpoints")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "max retries (-1 keeps the client default)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	cfg.Endpoints = splitEndpoints(*endpoints)

	if fs.NArg() < 1 {
		showUsage(stderr)
		return fmt.Errorf("%w: command required", errUsage)
	}
	name := fs.Arg(0)
	if name == "help" {
		showUsage(stdout)
		return nil
	}
	cmd, ok := commands[name]
	if !ok {
		showUsage(stderr)
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	rc, err := newClientFunc(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer rc.Close()

	return cmd.run(&cli{client: rc, out: stdout}, ctx, fs.Args()[1:])
}

func splitEndpoints(s string) []string {
	var out []string
	for _, ep := range strings.Split(s, ",") {
		if ep = strings.TrimSpace(ep); ep != "" {
			out = append(out, ep)
		}
	}
	return out
}

// parseAmount reads a gwei integer, or whole ether with an "eth" suffix.
func parseAmount(s string) (types.Amount, error) {
	if whole, ok := strings.CutSuffix(s, "eth"); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(whole), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
		if n > math.MaxUint64/uint64(registry.Ether) {
			return 0, fmt.Errorf("invalid amount %q: overflows", s)
		}
		return types.Amount(n) * registry.Ether, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return types.Amount(n), nil
}

// amountFlag is a flag.Value accepting the formats of parseAmount.
type amountFlag struct{ v types.Amount }

func (a *amountFlag) String() string { return strconv.FormatUint(uint64(a.v), 10) }

func (a *amountFlag) Set(s string) error {
	v, err := parseAmount(s)
	if err != nil {
		return err
	}
	a.v = v
	return nil
}

// parseCommand parses a subcommand's flags and checks its positional arity.
func parseCommand(fs *flag.FlagSet, args []string, nargs int) error {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	if fs.NArg() != nargs {
		return fmt.Errorf("%w: %s: expected %d argument(s), got %d", errUsage, fs.Name(), nargs, fs.NArg())
	}
	return nil
}

func requireCaller(fs *flag.FlagSet, caller string) error {
	if caller == "" {
		return fmt.Errorf("%w: %s: -caller is required", errUsage, fs.Name())
	}
	return nil
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) salt(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("salt", flag.ContinueOnError)
	if err := parseCommand(fs, args, 0); err != nil {
		return err
	}
	salt, err := client.NewSalt()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, salt)
	return err
}

func (c *cli) fingerprint(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fingerprint", flag.ContinueOnError)
	if err := parseCommand(fs, args, 3); err != nil {
		return err
	}
	salt, err := types.ParseSalt(fs.Arg(2))
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	fp, err := c.client.MakeCommitment(ctx, fs.Arg(0), types.Address(fs.Arg(1)), salt)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, fp)
	return err
}

func (c *cli) price(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("price", flag.ContinueOnError)
	if err := parseCommand(fs, args, 1); err != nil {
		return err
	}
	resp, err := c.client.RentPrice(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *cli) policy(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("policy", flag.ContinueOnError)
	if err := parseCommand(fs, args, 0); err != nil {
		return err
	}
	resp, err := c.client.Policy(ctx)
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *cli) commit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("commit", flag.ContinueOnError)
	caller := fs.String("caller", "", "paying account")
	if err := parseCommand(fs, args, 1); err != nil {
		return err
	}
	if err := requireCaller(fs, *caller); err != nil {
		return err
	}
	fp, err := types.ParseFingerprint(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	resp, err := c.client.Commit(ctx, types.Address(*caller), fp)
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *cli) reveal(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reveal", flag.ContinueOnError)
	caller := fs.String("caller", "", "paying account")
	owner := fs.String("owner", "", "account receiving the name (defaults to caller)")
	saltHex := fs.String("salt", "", "salt used for the commitment")
	var value amountFlag
	fs.Var(&value, "value", "amount tendered (defaults to the quoted price)")
	if err := parseCommand(fs, args, 1); err != nil {
		return err
	}
	if err := requireCaller(fs, *caller); err != nil {
		return err
	}
	salt, err := types.ParseSalt(*saltHex)
	if err != nil {
		return fmt.Errorf("%w: reveal: -salt: %v", errUsage, err)
	}
	if *owner == "" {
		*owner = *caller
	}
	if value.v == 0 {
		quote, err := c.client.RentPrice(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		value.v = quote.Price
	}

	resp, err := c.client.Register(ctx, &api.RegisterRequest{
		Caller: types.Address(*caller),
		Value:  value.v,
		Name:   fs.Arg(0),
		Owner:  types.Address(*owner),
		Salt:   salt,
	})
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	caller := fs.String("caller", "", "paying account")
	owner := fs.String("owner", "", "account receiving the name (defaults to caller)")
	saltHex := fs.String("salt", "", "commitment salt (random when empty)")
	revealDelay := fs.Duration("reveal-delay", 0, "extra wait on top of the minimum commitment age")
	var value amountFlag
	fs.Var(&value, "value", "amount tendered (defaults to the quoted price)")
	if err := parseCommand(fs, args, 1); err != nil {
		return err
	}
	if err := requireCaller(fs, *caller); err != nil {
		return err
	}

	reg := client.Registration{
		Caller:      types.Address(*caller),
		Owner:       types.Address(*owner),
		Name:        fs.Arg(0),
		Value:       value.v,
		RevealDelay: *revealDelay,
	}
	if *saltHex != "" {
		salt, err := types.ParseSalt(*saltHex)
		if err != nil {
			return fmt.Errorf("%w: register: -salt: %v", errUsage, err)
		}
		reg.Salt = salt
	}

	res, err := client.CommitAndRegister(ctx, c.client, reg)
	if err != nil {
		return err
	}
	return c.print(res)
}

func (c *cli) renew(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("renew", flag.ContinueOnError)
	caller := fs.String("caller", "", "paying account")
	var value amountFlag
	fs.Var(&value, "value", "amount tendered (defaults to the quoted price)")
	if err := parseCommand(fs, args, 1); err != nil {
		return err
	}
	if err := requireCaller(fs, *caller); err != nil {
		return err
	}
	if value.v == 0 {
		quote, err := c.client.RentPrice(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		value.v = quote.Price
	}
	resp, err := c.client.Renew(ctx, types.Address(*caller), fs.Arg(0), value.v)
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *cli) withdraw(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("withdraw", flag.ContinueOnError)
	caller := fs.String("caller", "", "record owner")
	if err := parseCommand(fs, args, 1); err != nil {
		return err
	}
	if err := requireCaller(fs, *caller); err != nil {
		return err
	}
	resp, err := c.client.WithdrawEscrow(ctx, types.Address(*caller), fs.Arg(0))
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *cli) record(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	if err := parseCommand(fs, args, 1); err != nil {
		return err
	}
	resp, err := c.client.GetRecord(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *cli) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	req := &api.ListRecordsRequest{}
	owner := fs.String("owner", "", "only records held by this account")
	fs.StringVar(&req.State, "state", "", "active, expired or withdrawable")
	fs.IntVar(&req.Limit, "limit", 0, "page size")
	fs.IntVar(&req.Offset, "offset", 0, "records to skip")
	if err := parseCommand(fs, args, 0); err != nil {
		return err
	}
	req.Owner = types.Address(*owner)
	resp, err := c.client.ListRecords(ctx, req)
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *cli) commitment(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("commitment", flag.ContinueOnError)
	if err := parseCommand(fs, args, 1); err != nil {
		return err
	}
	fp, err := types.ParseFingerprint(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	info, err := c.client.GetCommitment(ctx, fp)
	if err != nil {
		return err
	}
	return c.print(info)
}

func (c *cli) balance(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	if err := parseCommand(fs, args, 1); err != nil {
		return err
	}
	bal, err := c.client.Balance(ctx, types.Address(fs.Arg(0)))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, uint64(bal))
	return err
}

func (c *cli) balances(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("balances", flag.ContinueOnError)
	if err := parseCommand(fs, args, 0); err != nil {
		return err
	}
	resp, err := c.client.Balances(ctx)
	if err != nil {
		return err
	}
	for _, b := range resp.Balances {
		if _, err := fmt.Fprintf(c.out, "%s %d\n", b.Account, uint64(b.Balance)); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) deposit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("deposit", flag.ContinueOnError)
	if err := parseCommand(fs, args, 2); err != nil {
		return err
	}
	amount, err := parseAmount(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	resp, err := c.client.Deposit(ctx, types.Address(fs.Arg(0)), amount)
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *cli) health(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	if err := parseCommand(fs, args, 0); err != nil {
		return err
	}
	resp, err := c.client.Health(ctx)
	if err != nil {
		return err
	}
	return c.print(resp)
}

func showUsage(w io.Writer) {
	fmt.Fprintln(w, "NameReg CLI")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  namereg [global-options] <command> [command-options] <args>")
	fmt.Fprintln(w, "\nGlobal Options:")
	fmt.Fprintf(w, "  -endpoints string  comma-separated server endpoints (default %q, env NAMEREG_ENDPOINTS)\n", defaultEndpoint)
	fmt.Fprintf(w, "  -timeout duration  per-request timeout (default %s, env NAMEREG_TIMEOUT)\n", defaultTimeout)
	fmt.Fprintln(w, "  -retries int       max retries (env NAMEREG_RETRIES)")
	fmt.Fprintln(w, "\nAmounts are in gwei, or whole ether with an \"eth\" suffix (e.g. 2eth).")
	fmt.Fprintln(w, "\nCommands:")
	for _, name := range []string{
		"salt", "fingerprint", "price", "policy", "commit", "reveal", "register",
		"renew", "withdraw", "record", "list", "commitment", "balance", "deposit", "health",
	} {
		cmd := commands[name]
		fmt.Fprintf(w, "  %s\n      %s\n", cmd.usage, cmd.help)
	}
	fmt.Fprintln(w, "\nExamples:")
	fmt.Fprintln(w, "  namereg register -caller 0xa11ce alice")
	fmt.Fprintln(w, "  namereg renew -caller 0xa11ce alice")
	fmt.Fprintln(w, "  namereg -endpoints host1:7420,host2:7420 record alice")
}
