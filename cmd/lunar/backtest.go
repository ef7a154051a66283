package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/lunar/internal/backtest"
	"github.com/newthinker/lunar/internal/config"
	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/llm"
	"github.com/newthinker/lunar/internal/llm/factory"
	"github.com/newthinker/lunar/internal/logger"
	"github.com/newthinker/lunar/internal/storage/archive"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	backtestUniverse []string
	backtestFields   []string
	backtestFrom     string
	backtestTo       string
	backtestReview   bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [strategy]",
	Short: "Run a historical backtest",
	Long:  "Evaluate a strategy over historical data and print performance statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacktestCmd,
}

func init() {
	backtestCmd.Flags().StringSliceVar(&backtestUniverse, "universe", nil, "Instruments to trade (required)")
	backtestCmd.Flags().StringSliceVar(&backtestFields, "fields", []string{core.FieldClose}, "Panel fields to fetch")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD (required)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD (required)")
	backtestCmd.Flags().BoolVar(&backtestReview, "review", false, "Ask the configured LLM to review the results")

	backtestCmd.MarkFlagRequired("universe")
	backtestCmd.MarkFlagRequired("from")
	backtestCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktestCmd(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	req, err := parseDataRequest(cfg.Provider.Interval)
	if err != nil {
		return err
	}

	reg, err := buildRegistry(cfg, log)
	if err != nil {
		return err
	}
	strat, err := reg.Get(args[0])
	if err != nil {
		return err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	runner := backtest.New(provider, log, nil)
	res, err := runner.Run(cmd.Context(), strat, req)
	if err != nil {
		return err
	}

	printStats(res)

	if store, err := buildArchive(cfg); err != nil {
		return err
	} else if store != nil {
		if err := archive.SaveResult(cmd.Context(), store, res); err != nil {
			return fmt.Errorf("archiving results: %w", err)
		}
		log.Info("results archived",
			zap.String("run_id", res.RunID),
			zap.String("backend", cfg.Archive.Type),
		)
	}

	if backtestReview {
		if err := reviewStats(cmd, cfg, res); err != nil {
			// A failed review should not fail the backtest
			log.Warn("LLM review failed", zap.Error(err))
		}
	}

	return nil
}

func parseDataRequest(interval string) (core.DataRequest, error) {
	var req core.DataRequest

	fromDate, err := time.Parse("2006-01-02", backtestFrom)
	if err != nil {
		return req, fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err)
	}
	toDate, err := time.Parse("2006-01-02", backtestTo)
	if err != nil {
		return req, fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err)
	}
	if toDate.Before(fromDate) {
		return req, fmt.Errorf("end date must be after start date")
	}

	return core.DataRequest{
		Universe: backtestUniverse,
		Fields:   backtestFields,
		Start:    fromDate,
		End:      toDate,
		Interval: interval,
	}, nil
}

func printStats(res *backtest.Result) {
	fmt.Println("=== LUNAR Backtest ===")
	fmt.Printf("Strategy:    %s\n", res.Strategy)
	fmt.Printf("Run ID:      %s\n", res.RunID)
	fmt.Printf("Universe:    %s\n", strings.Join(res.Pipeline.Returns.Instruments(), ", "))
	fmt.Printf("Periods:     %d\n", res.Stats.Periods)
	fmt.Println()
	fmt.Printf("Total return:      %8.2f%%\n", res.Stats.TotalReturn*100)
	fmt.Printf("Annualized return: %8.2f%%\n", res.Stats.AnnualizedReturn*100)
	fmt.Printf("Volatility:        %8.2f%%\n", res.Stats.Volatility*100)
	fmt.Printf("Sharpe ratio:      %8.2f\n", res.Stats.SharpeRatio)
	fmt.Printf("Max drawdown:      %8.2f%%\n", res.Stats.MaxDrawdown*100)
}

func reviewStats(cmd *cobra.Command, cfg *config.Config, res *backtest.Result) error {
	provider, err := factory.New(cfg.LLM)
	if err != nil {
		return err
	}

	summary, err := json.Marshal(map[string]any{
		"strategy": res.Strategy,
		"universe": res.Pipeline.Returns.Instruments(),
		"stats":    res.Stats,
	})
	if err != nil {
		return err
	}

	review, err := llm.Review(cmd.Context(), provider, string(summary))
	if err != nil {
		return core.WrapError(core.ErrLLMFailed, err)
	}

	fmt.Println()
	fmt.Printf("=== Review (%s) ===\n", provider.Name())
	fmt.Println(review)
	return nil
}
