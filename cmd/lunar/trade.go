package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/newthinker/lunar/internal/backtest"
	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/logger"
	"github.com/spf13/cobra"
)

var (
	tradeUniverse []string
	tradeFields   []string
	tradeLookback int
	tradeJSON     bool
)

var tradeCmd = &cobra.Command{
	Use:   "trade [strategy]",
	Short: "Generate the live order batch",
	Long: `Run the strategy pipeline over data up to now and emit the target
orders for the upcoming period. Instruments being flattened appear with
an explicit zero target.`,
	Args: cobra.ExactArgs(1),
	RunE: runTradeCmd,
}

func init() {
	tradeCmd.Flags().StringSliceVar(&tradeUniverse, "universe", nil, "Instruments to trade (required)")
	tradeCmd.Flags().StringSliceVar(&tradeFields, "fields", []string{core.FieldClose}, "Panel fields to fetch")
	tradeCmd.Flags().IntVar(&tradeLookback, "history-days", 365, "Calendar days of history to fetch")
	tradeCmd.Flags().BoolVar(&tradeJSON, "json", false, "Emit the order batch as JSON")

	tradeCmd.MarkFlagRequired("universe")

	rootCmd.AddCommand(tradeCmd)
}

func runTradeCmd(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
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

	now := time.Now()
	req := core.DataRequest{
		Universe: tradeUniverse,
		Fields:   tradeFields,
		Start:    now.AddDate(0, 0, -tradeLookback),
		End:      now,
		Interval: cfg.Provider.Interval,
	}

	runner := backtest.New(provider, log, nil)
	batch, err := runner.Trade(cmd.Context(), strat, req)
	if err != nil {
		return err
	}

	if tradeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	}

	fmt.Println("=== LUNAR Order Batch ===")
	fmt.Printf("Strategy: %s\n", batch.Strategy)
	fmt.Printf("As of:    %s\n", batch.AsOf.Format("2006-01-02"))
	fmt.Println()
	for _, o := range batch.Orders {
		fmt.Printf("  %-10s  target %+.4f\n", o.Instrument, o.TargetWeight)
	}
	if batch.IsFlat() {
		fmt.Println("  (all targets zero: strategy is flat)")
	}

	return nil
}
