// Command perp queries the Polynomial venue and places market orders.
//
//	perp [-env .env] [-v] <command> [flags]
//
// Configuration comes from the environment (see params.LoadFromEnv).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/uhyunpark/polyperp/params"
	"github.com/uhyunpark/polyperp/pkg/order"
	"github.com/uhyunpark/polyperp/pkg/sdk"
	"github.com/uhyunpark/polyperp/pkg/sdkerr"
	"github.com/uhyunpark/polyperp/pkg/types"
	"github.com/uhyunpark/polyperp/pkg/units"
	"github.com/uhyunpark/polyperp/pkg/util"
)

type command struct {
	usage string
	run   func(ctx context.Context, s *sdk.SDK, args []string) (any, error)
}

var commands = map[string]command{
	"markets":   {"markets [-symbol S]", runMarkets},
	"market":    {"market <symbol>", runMarket},
	"account":   {"account [wallet]", runAccount},
	"positions": {"positions [wallet]", runPositions},
	"margin":    {"margin [-market ID]", runMargin},
	"simulate":  {"simulate -market ID -size N [-short]", runSimulate},
	"order":     {"order -market ID -size N [-short] [-slippage P] [-price X] [-reduce-only]", runOrder},
	"trade":     {"trade -symbol S -size N [-short] [-slippage P]", runTrade},
}

func main() {
	envPath := flag.String("env", "", "path to .env file (default ./.env)")
	verbose := flag.Bool("v", false, "log requests")
	timeout := flag.Duration("timeout", 30*time.Second, "overall request timeout")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		logger = util.NewLogger(zapcore.DebugLevel)
	}
	defer logger.Sync()

	cfg, err := params.LoadFromEnv(*envPath)
	if err != nil {
		fail(err)
	}
	s, err := sdk.New(cfg, sdk.WithLogger(logger))
	if err != nil {
		fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	out, err := cmd.run(ctx, s, flag.Args()[1:])
	if err != nil {
		fail(err)
	}
	printJSON(out)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: perp [-env FILE] [-v] [-timeout D] <command> [flags]")
	fmt.Fprintln(os.Stderr, "commands:")
	for _, name := range []string{"markets", "market", "account", "positions", "margin", "simulate", "order", "trade"} {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
}

func fail(err error) {
	var e *sdkerr.Error
	if errors.As(err, &e) {
		fmt.Fprintf(os.Stderr, "%s\n", e.Error())
		if len(e.Context) > 0 {
			ctx, _ := json.Marshal(e.Context)
			fmt.Fprintf(os.Stderr, "context: %s\n", ctx)
		}
		if e.Body != nil {
			body, _ := json.Marshal(e.Body)
			fmt.Fprintf(os.Stderr, "body: %s\n", body)
		}
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}

func printJSON(v any) {
	if raw, ok := v.(json.RawMessage); ok {
		var pretty any
		if json.Unmarshal(raw, &pretty) == nil {
			v = pretty
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func runMarkets(ctx context.Context, s *sdk.SDK, args []string) (any, error) {
	fs := flag.NewFlagSet("markets", flag.ExitOnError)
	symbol := fs.String("symbol", "", "filter by symbol")
	fs.Parse(args)

	return s.Markets().GetMarkets(ctx, &types.MarketFilters{Symbol: *symbol})
}

func runMarket(ctx context.Context, s *sdk.SDK, args []string) (any, error) {
	if len(args) != 1 {
		return nil, sdkerr.New(sdkerr.KindValidation, "usage: market <symbol>", nil)
	}
	data, err := s.GetMarketData(ctx, args[0])
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, sdkerr.New(sdkerr.KindMarket, "Market not found for symbol: "+args[0], nil)
	}
	return data.Stats, nil
}

func walletArg(s *sdk.SDK, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return s.Settings().WalletAddress()
}

func runAccount(ctx context.Context, s *sdk.SDK, args []string) (any, error) {
	return s.GetAccountSummary(ctx, walletArg(s, args))
}

func runPositions(ctx context.Context, s *sdk.SDK, args []string) (any, error) {
	acc, err := s.Accounts().GetAccount(ctx, walletArg(s, args))
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return []types.Position{}, nil
	}
	return s.Accounts().GetPositions(ctx, acc.AccountID)
}

func runMargin(ctx context.Context, s *sdk.SDK, args []string) (any, error) {
	fs := flag.NewFlagSet("margin", flag.ExitOnError)
	marketID := fs.String("market", "", "also report max trade sizes for this market")
	fs.Parse(args)

	margin, err := s.GetMyMarginInfo(ctx)
	if err != nil {
		return nil, err
	}
	if *marketID == "" {
		return margin, nil
	}
	sizes, err := s.GetMyMaxPossibleTradeSizes(ctx, *marketID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"margin": margin, "maxTradeSizes": sizes}, nil
}

type orderFlags struct {
	fs         *flag.FlagSet
	market     *string
	symbol     *string
	size       *string
	short      *bool
	slippage   *int64
	price      *string
	reduceOnly *bool
}

func newOrderFlags(name string) orderFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return orderFlags{
		fs:         fs,
		market:     fs.String("market", "", "market id"),
		symbol:     fs.String("symbol", "", "market symbol"),
		size:       fs.String("size", "", "size in display units, e.g. 0.01"),
		short:      fs.Bool("short", false, "sell instead of buy"),
		slippage:   fs.Int64("slippage", -1, "slippage percent (default: configured)"),
		price:      fs.String("price", "", "acceptable price in display units (default: market price with slippage)"),
		reduceOnly: fs.Bool("reduce-only", false, "only reduce an existing position"),
	}
}

func (f orderFlags) side() order.Side {
	if *f.short {
		return order.Short
	}
	return order.Long
}

func (f orderFlags) slippagePct() *int64 {
	if *f.slippage < 0 {
		return nil
	}
	return f.slippage
}

func runSimulate(ctx context.Context, s *sdk.SDK, args []string) (any, error) {
	f := newOrderFlags("simulate")
	f.fs.Parse(args)

	size, err := units.ToBaseUnits(*f.size, units.DefaultDecimals)
	if err != nil {
		return nil, err
	}
	acc, err := s.Accounts().GetAccount(ctx, s.Settings().WalletAddress())
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, sdkerr.New(sdkerr.KindAccount, "Account not found for wallet: "+s.Settings().WalletAddress(), nil)
	}
	if f.side() == order.Short {
		size.Neg(size)
	}
	return s.PostTrade().GetPostTradeDetails(ctx, acc.AccountID, *f.market, size.String())
}

func runOrder(ctx context.Context, s *sdk.SDK, args []string) (any, error) {
	f := newOrderFlags("order")
	f.fs.Parse(args)

	size, err := units.ToBaseUnits(*f.size, units.DefaultDecimals)
	if err != nil {
		return nil, err
	}
	opts := sdk.OrderOptions{
		Side:            f.side(),
		ReduceOnly:      *f.reduceOnly,
		SlippagePercent: f.slippagePct(),
	}
	if *f.price != "" {
		if opts.AcceptablePrice, err = units.ToBaseUnits(*f.price, units.DefaultDecimals); err != nil {
			return nil, err
		}
	}
	return s.CreateMarketOrder(ctx, *f.market, size, opts)
}

func runTrade(ctx context.Context, s *sdk.SDK, args []string) (any, error) {
	f := newOrderFlags("trade")
	f.fs.Parse(args)

	size, err := units.ToBaseUnits(*f.size, units.DefaultDecimals)
	if err != nil {
		return nil, err
	}
	return s.CreateMarketOrderWithSimulation(ctx, *f.symbol, size, f.side(), f.slippagePct())
}
