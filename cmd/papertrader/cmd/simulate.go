package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rustyeddy/papertrader/id"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/portfolio"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the advisory simulation in the foreground",
	Long: `Run the scheduled simulation until interrupted (Ctrl-C) or until
--duration has elapsed, then print a portfolio summary.

Examples:
  papertrader simulate -c papertrader.yaml
  papertrader simulate --symbol ethereum --interval 30s --duration 10m
  papertrader simulate --once`,
	RunE: runSimulate,
}

var (
	simSymbol   string
	simInterval time.Duration
	simDuration time.Duration
	simOnce     bool
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simSymbol, "symbol", "", "coin id to trade (overrides simulation.symbol)")
	simulateCmd.Flags().DurationVar(&simInterval, "interval", 0, "tick interval (overrides simulation.interval)")
	simulateCmd.Flags().DurationVar(&simDuration, "duration", 0, "stop after this long (0 runs until interrupted)")
	simulateCmd.Flags().BoolVar(&simOnce, "once", false, "run a single tick and exit")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	symbol := cfg.Simulation.Symbol
	if simSymbol != "" {
		symbol = simSymbol
	}
	coin, err := market.PresetCoins.Lookup(symbol)
	if err != nil {
		return err
	}
	symbol = coin.ID
	interval := cfg.Simulation.IntervalDuration()
	if simInterval > 0 {
		interval = simInterval
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer a.Close()

	fmt.Printf("Simulating %s every %s\n", symbol, interval)
	fmt.Printf("  Account: %s (fee %.2f%%)\n",
		portfolio.Display(decimal.NewFromFloat(cfg.Account.InitialCash), cfg.Account.Currency), cfg.Account.FeeRate*100)
	fmt.Printf("  Strategy: %s, advisor: %s\n", cfg.Strategy.Name, cfg.Advisor.Type)
	fmt.Println()

	if simOnce {
		tickCtx, cancel := context.WithTimeout(ctx, cfg.Simulation.TickTimeoutDuration())
		defer cancel()
		if err := a.scheduler.Tick(tickCtx, symbol, id.NewRun()); err != nil {
			return fmt.Errorf("tick: %w", err)
		}
	} else {
		if err := a.scheduler.Start(symbol, interval); err != nil {
			return fmt.Errorf("start simulation: %w", err)
		}
		if simDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, simDuration)
			defer cancel()
		}
		<-ctx.Done()
		a.scheduler.Stop()
	}

	return printSummary(a, symbol)
}

func printSummary(a *app, symbol string) error {
	acct := a.engine.Account()
	currency := a.cfg.Account.Currency

	fmt.Println()
	fmt.Println("Simulation Summary")
	fmt.Println("==================")
	fmt.Printf("  Cash:   %s\n", portfolio.Display(acct.Cash, currency))
	fmt.Printf("  Trades: %d\n", len(acct.History))

	syms := make([]string, 0, len(acct.Positions))
	for sym := range acct.Positions {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	for _, sym := range syms {
		p := acct.Positions[sym]
		fmt.Printf("  %-12s %s @ %s\n", sym, p.Quantity.String(), portfolio.Display(p.AverageCost, currency))
	}

	// the command context may be cancelled by now
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Simulation.TickTimeoutDuration())
	defer cancel()
	snap, err := a.feed.GetMarketData(ctx, symbol)
	if err != nil {
		fmt.Printf("  Value:  unavailable (%v)\n", err)
		return nil
	}
	value, rate, err := a.engine.Valuation(map[string]decimal.Decimal{symbol: snap.Price})
	if err != nil {
		return fmt.Errorf("valuation: %w", err)
	}
	fmt.Printf("  Value:  %s (%s%%) at %s %s\n",
		portfolio.Display(value, currency), rate.StringFixed(2), symbol, snap.Price.String())
	return nil
}
