package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/internal/display"
	"github.com/dyike/StockPilot/internal/graph"
	"github.com/dyike/StockPilot/internal/metrics"
	"github.com/dyike/StockPilot/pkg/app"
	"github.com/dyike/StockPilot/pkg/dataflows"
	"github.com/dyike/StockPilot/pkg/logger"
	"github.com/dyike/StockPilot/pkg/utils"
)

// env is what every command shares once flags are parsed.
type env struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics *metrics.Recorder
}

func (e *env) builder() app.Builder {
	return app.Builder{Log: e.log, Metrics: e.metrics}
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(config.DefaultConfig())
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	e := &env{cfg: cfg, log: zerolog.Nop()}

	var debug bool
	var budget float64
	var workers int

	rootCmd := &cobra.Command{
		Use:   "stockpilot",
		Short: "StockPilot - market scanning and LLM-assisted stock recommendations",
		Long: `StockPilot ranks a stock universe, gathers quotes, fundamentals, price history,
analyst trends and 13F filings for each pick, derives trend and timing signals,
and asks a language model for a budget-aware recommendation.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				cfg.Debug = true
				cfg.LogLevel = "debug"
			}
			if cmd.Flags().Changed("budget") {
				cfg.Budget = budget
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			e.log = logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Output: cmd.ErrOrStderr()})
			logger.SetGlobalLogger(e.log)
			e.metrics = metrics.New()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractiveMode(cmd, e)
		},
	}

	rootCmd.AddCommand(newScanCmd(e))
	rootCmd.AddCommand(newAnalyzeCmd(e))
	rootCmd.AddCommand(newRankCmd(e))
	rootCmd.AddCommand(newFilingsCmd(e))
	rootCmd.AddCommand(newRunsCmd(e))
	rootCmd.AddCommand(newServeCmd(e))
	rootCmd.AddCommand(newConfigCmd(e))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().Float64Var(&budget, "budget", cfg.Budget, "Investment budget in dollars")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", cfg.Workers, "Tickers processed concurrently")

	return rootCmd
}

func newScanCmd(e *env) *cobra.Command {
	var opts graph.RunOptions
	var output string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Rank the universe and analyze every ranked ticker",
		Long: `Rank the S&P 500 (or the given --tickers), run the full per-ticker pipeline
and print the report. Example: stockpilot scan --limit 5 --allocate --output`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, e, opts, output, asJSON)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum tickers to scan (0 uses the configured limit)")
	cmd.Flags().BoolVar(&opts.Allocate, "allocate", false, "Balance buys and ask for a portfolio allocation")
	cmd.Flags().StringSliceVar(&opts.Tickers, "tickers", nil, "Scan these tickers instead of the index")
	cmd.Flags().StringVar(&output, "output", "", "Write report.json and report.md under DIR/<run_id>/")
	cmd.Flags().Lookup("output").NoOptDefVal = e.cfg.ResultsDir
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}

func runScan(cmd *cobra.Command, e *env, opts graph.RunOptions, output string, asJSON bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := e.builder().Build(*e.cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	report, err := engine.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		display.Report(out, report)
	}

	if output != "" {
		dir, err := utils.WriteReport(output, report)
		if err != nil {
			return err
		}
		DisplaySuccess(out, "Report saved to "+dir)
	}
	return nil
}

func newAnalyzeCmd(e *env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze [TICKER]",
		Short: "Run the per-ticker pipeline for one symbol",
		Long: `Fetch data, derive signals and timing, and ask for a recommendation for a
single ticker. Prompts for the ticker when it is omitted.
Example: stockpilot analyze AAPL --budget 500`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ticker string
			if len(args) == 1 {
				ticker = args[0]
			} else {
				var err error
				if ticker, err = PromptForTicker(); err != nil {
					return err
				}
			}
			return runAnalyze(cmd, e, ticker, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func runAnalyze(cmd *cobra.Command, e *env, ticker string, asJSON bool) error {
	if err := dataflows.ValidateSymbol(ticker); err != nil {
		return err
	}

	engine, err := e.builder().Build(*e.cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	res, err := engine.AnalyzeTicker(cmd.Context(), ticker)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	display.Ticker(cmd.OutOrStdout(), res)
	return nil
}

func newRankCmd(e *env) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "rank [TICKERS...]",
		Short: "Score and rank tickers without calling the model",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			market, err := e.builder().BuildMarket(*e.cfg)
			if err != nil {
				return err
			}
			defer market.Close()

			if limit == 0 {
				limit = e.cfg.ScanLimit
			}
			ranked, err := market.Scanner.ScanUniverse(cmd.Context(), args, limit)
			if err != nil {
				return err
			}
			display.Rankings(cmd.OutOrStdout(), ranked)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum tickers to rank (0 uses the configured limit)")
	return cmd
}

func newFilingsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "filings TICKER",
		Short: "Download and show the latest 13F-HR holdings for a filer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker := dataflows.NormalizeSymbol(args[0])
			market, err := e.builder().BuildMarket(*e.cfg)
			if err != nil {
				return err
			}
			defer market.Close()

			filing, err := dataflows.LatestHoldings(cmd.Context(), market.Providers.Filings, ticker)
			if dataflows.IsNotFound(err) {
				return fmt.Errorf("%s is not a known SEC filer: %w", ticker, err)
			}
			if err != nil {
				return fmt.Errorf("filings for %s: %w", ticker, err)
			}
			display.Filing(cmd.OutOrStdout(), ticker, filing)
			return nil
		},
	}
}

func newRunsCmd(e *env) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent scan runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			market, err := e.builder().BuildMarket(*e.cfg)
			if err != nil {
				return err
			}
			defer market.Close()

			runs, err := market.Store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				DisplayInfo(out, "No runs recorded yet.")
				return nil
			}
			for _, r := range runs {
				line := fmt.Sprintf("%s  %-7s  %3d tickers  %s", r.ID, r.Status, r.TickerCount, r.StartedAt)
				if r.Error != "" {
					line += "  " + r.Error
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "StockPilot %s\n", Version)
		},
	}
}

func newConfigCmd(e *env) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cmd.OutOrStdout(), e.cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd.OutOrStdout(), e.cfg)
		},
	})

	return configCmd
}

func showConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Current StockPilot configuration:")
	fmt.Fprintf(w, "Results directory:    %s\n", cfg.ResultsDir)
	fmt.Fprintf(w, "Data directory:       %s\n", cfg.DataDir)
	fmt.Fprintf(w, "Database:             %s\n", cfg.DBPath)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "LLM provider:         %s\n", cfg.LLMProvider)
	fmt.Fprintf(w, "Recommendation model: %s\n", cfg.LLMModel)
	fmt.Fprintf(w, "Summary model:        %s\n", cfg.SummaryLLM)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Budget:               $%.2f\n", cfg.Budget)
	fmt.Fprintf(w, "Scan limit:           %d\n", cfg.ScanLimit)
	fmt.Fprintf(w, "Workers:              %d\n", cfg.Workers)
	fmt.Fprintf(w, "History:              %s %s via %s\n", cfg.HistoryPeriod, cfg.HistoryInterval, cfg.HistoryProvider)
	fmt.Fprintf(w, "Scanner estimator:    %s\n", cfg.ScannerEstimator)
	fmt.Fprintf(w, "Reconcile sector cap: %t\n", cfg.ReconcileSectorCap)
	fmt.Fprintf(w, "Retry attempts:       %d\n", cfg.RetryAttempts)
	fmt.Fprintf(w, "HTTP timeout:         %s\n", cfg.HTTPTimeout)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "OpenAI key:           %s\n", configured(cfg.OpenAIAPIKey))
	fmt.Fprintf(w, "DeepSeek key:         %s\n", configured(cfg.DeepSeekAPIKey))
	fmt.Fprintf(w, "Finnhub key:          %s\n", configured(cfg.FinnhubAPIKey))
	fmt.Fprintf(w, "Longport token:       %s\n", configured(cfg.LongportAccessToken))
}

func configured(secret string) string {
	if secret == "" {
		return "not configured"
	}
	return "configured"
}

func validateConfig(w io.Writer, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		DisplayError(w, err)
		return err
	}
	if err := cfg.RequireLLMCredential(); err != nil {
		DisplayError(w, err)
		return err
	}
	if cfg.FinnhubAPIKey == "" {
		DisplayInfo(w, "Finnhub key not configured: analyst trends will be reported as failed and news is disabled")
	}
	DisplaySuccess(w, "Configuration is valid")
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// runInteractiveMode asks what to do and loops until the user exits.
func runInteractiveMode(cmd *cobra.Command, e *env) error {
	DisplayWelcomeBanner(cmd.OutOrStdout())

	for {
		action, err := PromptForAction()
		if err != nil {
			return err
		}
		if action == actionExit {
			return nil
		}

		budget, err := PromptForBudget(e.cfg.Budget)
		if err != nil {
			return err
		}
		e.cfg.Budget = budget

		switch action {
		case actionScan:
			err = runScan(cmd, e, graph.RunOptions{}, "", false)
		case actionAnalyze:
			ticker, perr := PromptForTicker()
			if perr != nil {
				return perr
			}
			err = runAnalyze(cmd, e, ticker, false)
		}
		if err != nil {
			DisplayError(cmd.OutOrStdout(), err)
		}
	}
}
