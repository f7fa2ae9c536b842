package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/alanyoungcy/dipbuyer/internal/app"
	"github.com/alanyoungcy/dipbuyer/internal/config"
	"github.com/alanyoungcy/dipbuyer/internal/console"
	"github.com/alanyoungcy/dipbuyer/internal/domain"
	"github.com/alanyoungcy/dipbuyer/internal/platform/replay"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "dipbuyer",
		Short:         "Paper-trade a stock by buying every dip",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to configuration file")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	root.AddCommand(
		newRunCmd(load),
		newQuoteCmd(load),
		newSimulateCmd(load),
		newConfigCmd(load),
	)
	return root
}

type loadFunc func() (*config.Config, error)

func newRunCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "run [SYMBOL]",
		Short: "Watch SYMBOL and buy dips until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)

			symbol := cfg.Strategy.Symbol
			if len(args) == 1 {
				symbol = args[0]
			}
			if strings.TrimSpace(symbol) == "" {
				if symbol, err = console.PromptSymbol(); err != nil {
					return err
				}
			} else {
				symbol = console.ResolveSymbol(symbol)
			}

			a := app.New(cfg, logger, cmd.OutOrStdout())
			defer a.Close()
			return a.Run(cmd.Context(), symbol)
		},
	}
}

func newQuoteCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Fetch one quote from the configured provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			newLogger(cfg.LogLevel)

			provider, err := app.NewProvider(cfg.Quote)
			if err != nil {
				return err
			}
			symbol := console.ResolveSymbol(args[0])
			display := console.NewDisplay(cmd.OutOrStdout())

			if d, ok := provider.(domain.QuoteDetailer); ok {
				q, err := d.Quote(cmd.Context(), symbol)
				if err != nil {
					return err
				}
				display.Quote(q)
				return nil
			}
			price, err := provider.Price(cmd.Context(), symbol)
			if err != nil {
				return err
			}
			display.Quote(domain.Quote{Symbol: symbol, Price: price, Provider: cfg.Quote.Provider})
			return nil
		},
	}
}

func newSimulateCmd(load loadFunc) *cobra.Command {
	var (
		prices string
		symbol string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run cycles against a scripted price sequence",
		Example: `  dipbuyer simulate --prices 100,90,95,80
  dipbuyer simulate --symbol AAPL --prices 180,175.5,176,170`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			cfg.Strategy.FreshValuationQuote = false
			logger := newLogger(cfg.LogLevel)

			src, err := replay.Parse(prices)
			if err != nil {
				return err
			}
			sym := console.ResolveSymbol(symbol)
			a := app.New(cfg, logger, cmd.OutOrStdout())
			session := a.NewSession(sym, app.SimulationDependencies(src, logger))

			session.RunCycles(cmd.Context(), src.Remaining())

			snap := session.Snapshot()
			display := console.NewDisplay(cmd.OutOrStdout())
			display.Ledger(sym, snap.Ledger)
			if snap.Valuation != nil {
				display.Valuation(*snap.Valuation)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prices, "prices", "", "comma-separated price sequence, one per cycle")
	cmd.Flags().StringVar(&symbol, "symbol", console.DefaultSymbol, "symbol to label the simulation with")
	_ = cmd.MarkFlagRequired("prices")
	return cmd
}

func newConfigCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			redacted := config.RedactedConfig(cfg)
			if err := toml.NewEncoder(cmd.OutOrStdout()).Encode(redacted); err != nil {
				return fmt.Errorf("config: encode: %w", err)
			}
			return nil
		},
	}
}
