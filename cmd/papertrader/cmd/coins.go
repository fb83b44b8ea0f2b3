package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/portfolio"
	"github.com/spf13/cobra"
)

var coinsCmd = &cobra.Command{
	Use:   "coins",
	Short: "List the supported coins",
	Long: `List the coins papertrader can trade. With --prices the current market
data of every coin is fetched from the configured feed.

Examples:
  papertrader coins
  papertrader coins --prices`,
	Args: cobra.NoArgs,
	RunE: runCoins,
}

var coinsPrices bool

func init() {
	rootCmd.AddCommand(coinsCmd)

	coinsCmd.Flags().BoolVar(&coinsPrices, "prices", false, "fetch current prices")
}

func runCoins(cmd *cobra.Command, args []string) error {
	if !coinsPrices {
		fmt.Printf("%-12s %-6s %-14s %s\n", "ID", "SYMBOL", "NAME", "PAIR")
		for _, c := range market.PresetCoins {
			fmt.Printf("%-12s %-6s %-14s %s\n", c.ID, c.Symbol, c.Name, c.Pair)
		}
		return nil
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	col := &market.Collector{Feed: newFeed(cfg.Feed), Coins: market.PresetCoins, Logger: logger}
	snaps := col.FetchAll(ctx)

	fmt.Printf("%-12s %-6s %16s %10s\n", "ID", "SYMBOL", "PRICE", "24H %")
	for _, s := range snaps {
		fmt.Printf("%-12s %-6s %16s %10s\n", s.CoinID, s.Symbol,
			portfolio.Display(s.Price, cfg.Account.Currency), s.Change24hPercent.StringFixed(2))
	}
	if len(snaps) < len(market.PresetCoins) {
		return fmt.Errorf("%d of %d coins unavailable", len(market.PresetCoins)-len(snaps), len(market.PresetCoins))
	}
	return nil
}
