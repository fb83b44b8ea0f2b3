package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/rustyeddy/papertrader/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate, check or print configuration",
	Long: `Manage papertrader configuration files.

Subcommands:
  init     - Write the default configuration to a file
  validate - Load a configuration file and report what it sets up
  show     - Print the effective configuration after env and flag overrides

Examples:
  papertrader config init -o papertrader.yaml
  papertrader config validate papertrader.yaml
  papertrader -c papertrader.yaml config show`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a configuration file",
	Long: `Load a configuration file and run the same checks serve and simulate do.
Without an argument the --config flag is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE:  runConfigShow,
}

var (
	configInitOutput string
	configInitForce  bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configValidateCmd, configShowCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "papertrader.yaml", "output file, .json writes JSON")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if !configInitForce {
		if _, err := os.Stat(configInitOutput); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", configInitOutput)
		}
	}
	if err := config.Default().SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Printf("\nSet %s, edit the file and run with:\n", config.EnvDeepSeekKey)
	fmt.Printf("  papertrader serve -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return errors.New("no config file given")
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", path)
	fmt.Printf("  Account: %.2f %s (fee %.2f%%)\n", cfg.Account.InitialCash, cfg.Account.Currency, cfg.Account.FeeRate*100)
	fmt.Printf("  Simulation: %s every %s\n", cfg.Simulation.Symbol, cfg.Simulation.Interval)
	fmt.Printf("  Strategy: %s (buy %.0f%% of cash)\n", cfg.Strategy.Name, cfg.Strategy.BuyFraction*100)
	fmt.Printf("  Feed: %s, advisor: %s\n", cfg.Feed.Type, cfg.Advisor.Type)
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// keys come from the environment more often than not
	if cfg.Advisor.APIKey != "" {
		cfg.Advisor.APIKey = "********"
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	defer enc.Close()
	enc.SetIndent(2)
	return enc.Encode(cfg)
}
