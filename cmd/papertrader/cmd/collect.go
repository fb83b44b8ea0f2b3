package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/papertrader/market"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Archive one market snapshot of every coin",
	Long: `Fetch the current market data of every supported coin from the configured
feed and record it in the journal. The serve command does this periodically
when collector.enabled is set; collect does it once.

Example:
  papertrader collect -c papertrader.yaml`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, _, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	if err := store.SaveCoins(ctx, market.PresetCoins); err != nil {
		return fmt.Errorf("save coins: %w", err)
	}

	bar := initProgressBar(len(market.PresetCoins))
	col := &market.Collector{
		Feed:     market.Archived(newFeed(cfg.Feed), store, logger),
		Coins:    market.PresetCoins,
		Parallel: cfg.Collector.Parallel,
		Logger:   logger,
		OnFetch: func(market.Coin, error) {
			_ = bar.Add(1)
		},
	}
	snaps := col.FetchAll(ctx)
	_ = bar.Finish()

	fmt.Printf("\n✓ Archived %d of %d coins\n", len(snaps), len(market.PresetCoins))
	if failed := len(market.PresetCoins) - len(snaps); failed > 0 {
		return fmt.Errorf("%d coins could not be fetched", failed)
	}
	return nil
}

func initProgressBar(n int) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Collecting market data..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
