package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "lunar",
	Short: "LUNAR - vectorized strategy backtesting and live order generation",
	Long: `LUNAR evaluates trading strategies over aligned panels of historical
price data. One deterministic pipeline serves both backtesting and live
trading: a live order batch is simply the position the backtest would
hold on the next bar.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
