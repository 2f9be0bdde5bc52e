package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "trader",
		Short:        "Uniswap v1/v2/v3 command line trader",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap without sending anything",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("in", "", "input token, symbol or address")
	quoteCmd.Flags().String("out", "", "output token, symbol or address")
	quoteCmd.Flags().String("amount", "", "size of the fixed side, in token units")
	quoteCmd.Flags().String("side", "in", "which side the amount fixes (in, out)")
	quoteCmd.Flags().String("version", "v2", "protocol version (v1, v2, v3)")
	quoteCmd.Flags().Uint32("fee", 0, "v3 fee tier in hundredths of a bip (500, 3000, 10000)")
	quoteCmd.Flags().Bool("raw", false, "treat amounts as raw integers in base units")
	addClientFlags(quoteCmd)

	root.AddCommand(quoteCmd)

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Exchange rate for one whole token in ETH",
		RunE:  runPrice,
	}

	priceCmd.Flags().String("token", "", "token to price, symbol or address")
	priceCmd.Flags().String("version", "v2", "protocol version (v1, v2, v3)")
	priceCmd.Flags().Uint32("fee", 0, "v3 fee tier in hundredths of a bip (500, 3000, 10000)")
	addClientFlags(priceCmd)

	root.AddCommand(priceCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Execute a swap with the configured wallet",
		RunE:  runSwap,
	}

	swapCmd.Flags().String("in", "", "input token, symbol or address")
	swapCmd.Flags().String("out", "", "output token, symbol or address")
	swapCmd.Flags().String("amount", "", "size of the fixed side, in token units")
	swapCmd.Flags().String("side", "in", "which side the amount fixes (in, out)")
	swapCmd.Flags().String("version", "v2", "protocol version (v1, v2, v3)")
	swapCmd.Flags().Uint32("fee", 0, "v3 fee tier in hundredths of a bip (500, 3000, 10000)")
	swapCmd.Flags().Bool("raw", false, "treat amounts as raw integers in base units")
	swapCmd.Flags().Float64("slippage", 0.01, "input ceiling margin for exact-output swaps (0 disables)")
	swapCmd.Flags().String("recipient", "", "output recipient, defaults to the wallet address")
	swapCmd.Flags().StringSlice("path", nil, "explicit route as token addresses, input first (v2 only)")
	swapCmd.Flags().Bool("fee-on-transfer", false, "use the fee-on-transfer router variants (v2 exact input)")
	swapCmd.Flags().Bool("wait", false, "block until the swap transaction is mined")
	addClientFlags(swapCmd)

	root.AddCommand(swapCmd)

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Read a token balance",
		RunE:  runBalance,
	}

	balanceCmd.Flags().String("token", "ETH", "token to read, symbol or address")
	balanceCmd.Flags().String("address", "", "account to read, defaults to the wallet address")
	addClientFlags(balanceCmd)

	root.AddCommand(balanceCmd)

	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "List the known tokens for a network",
		RunE:  runTokens,
	}

	addClientFlags(tokensCmd)

	root.AddCommand(tokensCmd)

	liquidityCmd := &cobra.Command{
		Use:   "liquidity",
		Short: "Provision v1 exchange pools",
	}

	addLiquidityCmd := &cobra.Command{
		Use:   "add",
		Short: "Deposit ETH plus matching tokens into a v1 pool",
		RunE:  runLiquidityAdd,
	}

	addLiquidityCmd.Flags().String("token", "", "pool token, symbol or address")
	addLiquidityCmd.Flags().String("native", "", "ETH to deposit, in ether units")
	addLiquidityCmd.Flags().Bool("raw", false, "treat the deposit as raw wei")
	addLiquidityCmd.Flags().Bool("wait", false, "block until the deposit is mined")
	addClientFlags(addLiquidityCmd)

	liquidityCmd.AddCommand(addLiquidityCmd)

	removeLiquidityCmd := &cobra.Command{
		Use:   "remove",
		Short: "Burn v1 pool shares and withdraw both sides",
		RunE:  runLiquidityRemove,
	}

	removeLiquidityCmd.Flags().String("token", "", "pool token, symbol or address")
	removeLiquidityCmd.Flags().String("shares", "", "pool shares to burn, in whole units")
	removeLiquidityCmd.Flags().Bool("raw", false, "treat shares as a raw integer")
	removeLiquidityCmd.Flags().Bool("wait", false, "block until the withdrawal is mined")
	addClientFlags(removeLiquidityCmd)

	liquidityCmd.AddCommand(removeLiquidityCmd)

	root.AddCommand(liquidityCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// addClientFlags attaches the chain access flags shared by every command.
// Empty defaults keep the config file and environment in charge unless the
// flag is set explicitly.
func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc-url", "", "Ethereum JSON-RPC endpoint")
	cmd.Flags().String("network", "", "token registry network (mainnet, arbitrum)")
	cmd.Flags().String("tokens-file", "", "extra tokens to register, JSON file")
	cmd.Flags().String("wallet-key", "", "hex private key for signing")
	cmd.Flags().String("log-level", "", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
