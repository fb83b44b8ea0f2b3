package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/papertrader/api"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the paper-trading HTTP API",
	Long: `Start the HTTP API and, when enabled, the market data collector.

The simulation is controlled over the API (POST /api/simulation/start)
unless --start is given, in which case it starts right away with the
configured symbol and interval.

Example:
  papertrader serve -c papertrader.yaml --addr :3000 --start`,
	RunE: runServe,
}

var (
	serveAddr  string
	serveStart bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveStart, "start", false, "start the simulation immediately")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer a.Close()

	if _, err := a.service.Coins(ctx); err != nil {
		return fmt.Errorf("load coins: %w", err)
	}

	if cfg.Collector.Enabled {
		stopCollector := a.collector.Start(ctx)
		defer stopCollector()
	}

	if serveStart {
		if err := a.startSimulation(); err != nil {
			return fmt.Errorf("start simulation: %w", err)
		}
	}

	srv := api.NewServer(cfg.Server.Addr, a.service, logger)
	fmt.Printf("papertrader listening on %s\n", cfg.Server.Addr)
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	fmt.Println("shutdown complete")
	return nil
}
