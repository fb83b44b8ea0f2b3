package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display trade journal records from the SQLite or Postgres journal.

Subcommands:
  trade   - Get details of a specific trade by ID
  today   - List trades executed today
  day     - List trades executed on a specific day
  equity  - List the equity snapshots of a simulation run
  trades  - List trades filtered by symbol, side or reason
  pl      - Summarize the realized profit and loss of a symbol

Examples:
  papertrader journal trade <trade-id>
  papertrader journal today
  papertrader journal day 2026-01-15
  papertrader journal equity <run-id>
  papertrader journal trades --symbol BTC --side sell
  papertrader journal pl ethereum`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades executed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades executed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalEquityCmd = &cobra.Command{
	Use:   "equity <run-id>",
	Short: "List equity snapshots of a simulation run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalEquity,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List trades filtered by symbol, side or reason",
	Args:  cobra.NoArgs,
	RunE:  runJournalTrades,
}

var journalPLCmd = &cobra.Command{
	Use:   "pl <symbol>",
	Short: "Summarize the realized profit and loss of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalPL,
}

var (
	journalDBPath string
	tradesFilter  journal.TradeFilter
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalEquityCmd)
	journalCmd.AddCommand(journalTradesCmd)
	journalCmd.AddCommand(journalPLCmd)

	journalTradesCmd.Flags().StringVar(&tradesFilter.Symbol, "symbol", "", "coin id or ticker")
	journalTradesCmd.Flags().StringVar(&tradesFilter.Side, "side", "", "buy or sell")
	journalTradesCmd.Flags().StringVar(&tradesFilter.Reason, "reason", "", "manual, advisory, ...")

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (overrides the config)")
}

// openQuerier opens the configured journal for reading. The returned
// close func must be called when done.
func openQuerier(ctx context.Context) (journal.Querier, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	jc := cfg.Journal
	if journalDBPath != "" {
		jc.Type = "sqlite"
		jc.DBPath = journalDBPath
	}

	store, q, err := openJournal(ctx, jc)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}
	if q == nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("journal type %q cannot be queried, use sqlite or postgres", jc.Type)
	}
	return q, func() { _ = store.Close() }, nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	q, closeFn, err := openQuerier(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	tradeID := args[0]
	rec, err := q.GetTrade(ctx, tradeID)
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	fmt.Println(journal.FormatTradeOrg(rec))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return listDay(time.Now().In(time.Local).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listDay(args[0])
}

func listDay(day string) error {
	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	ctx := context.Background()
	q, closeFn, err := openQuerier(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	recs, err := q.ListTradesBetween(ctx, start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Println(journal.FormatTradesOrg(recs))
	return nil
}

func runJournalEquity(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	q, closeFn, err := openQuerier(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	snaps, err := q.ListEquity(ctx, args[0])
	if err != nil {
		return fmt.Errorf("query equity: %w", err)
	}
	if len(snaps) == 0 {
		fmt.Printf("no equity snapshots for run %s\n", args[0])
		return nil
	}

	fmt.Printf("%-20s %-10s %14s %14s %9s\n", "TIME", "SYMBOL", "PRICE", "VALUE", "RETURN %")
	for _, s := range snaps {
		fmt.Printf("%-20s %-10s %14s %14s %9s\n",
			s.Time.Local().Format("2006-01-02 15:04:05"), s.Symbol, s.Price.StringFixed(2),
			s.Value.StringFixed(2), s.ReturnRate.StringFixed(2))
	}
	return nil
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
	f := tradesFilter
	if f.Symbol != "" {
		coin, err := market.PresetCoins.Lookup(f.Symbol)
		if err != nil {
			return err
		}
		f.Symbol = coin.ID
	}

	ctx := context.Background()
	q, closeFn, err := openQuerier(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	recs, err := q.ListTrades(ctx, f)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	fmt.Println(journal.FormatTradesOrg(recs))
	return nil
}

func runJournalPL(cmd *cobra.Command, args []string) error {
	coin, err := market.PresetCoins.Lookup(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	q, closeFn, err := openQuerier(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	recs, err := q.ListTrades(ctx, journal.TradeFilter{Symbol: coin.ID})
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	sum := journal.Summarize(recs)

	fmt.Printf("%s: %d trades (%d buys, %d sells)\n", coin.ID, sum.Trades, sum.Buys, sum.Sells)
	fmt.Printf("  bought %s, sold %s, volume %s\n", sum.BoughtQty, sum.SoldQty, sum.Volume.StringFixed(2))
	fmt.Printf("  fees %s, realized P/L %s\n", sum.Fees.StringFixed(2), sum.RealizedPL.StringFixed(2))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
