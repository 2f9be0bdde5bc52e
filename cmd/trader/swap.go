package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
	"github.com/antibagr/uniswap-go/internal/domain/services"
)

func runSwap(cmd *cobra.Command, _ []string) error {
	v, err := versionFlag(cmd)
	if err != nil {
		return err
	}

	eng, err := newEngine(cmd, true)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inRef, _ := cmd.Flags().GetString("in")
	outRef, _ := cmd.Flags().GetString("out")
	if inRef == "" || outRef == "" {
		return errors.New("both in and out tokens are required")
	}

	tokenIn, err := eng.tokens.GetToken(ctx, inRef)
	if err != nil {
		return err
	}
	tokenOut, err := eng.tokens.GetToken(ctx, outRef)
	if err != nil {
		return err
	}

	amountFlag, _ := cmd.Flags().GetString("amount")
	side, _ := cmd.Flags().GetString("side")
	fee, _ := cmd.Flags().GetUint32("fee")
	raw, _ := cmd.Flags().GetBool("raw")

	opts := &services.TradeOptions{FeeTier: entities.FeeTier(fee)}
	opts.FeeOnTransfer, _ = cmd.Flags().GetBool("fee-on-transfer")

	// An unchanged flag keeps opts.Slippage nil so the exchange default
	// applies; an explicit --slippage 0 disables the margin.
	if cmd.Flags().Changed("slippage") {
		s, _ := cmd.Flags().GetFloat64("slippage")
		opts.Slippage = &s
	}

	if recipient, _ := cmd.Flags().GetString("recipient"); recipient != "" {
		if !common.IsHexAddress(recipient) {
			return fmt.Errorf("invalid recipient %q", recipient)
		}
		opts.Recipient = common.HexToAddress(recipient)
	}

	if path, _ := cmd.Flags().GetStringSlice("path"); len(path) > 0 {
		for _, hop := range path {
			if !common.IsHexAddress(hop) {
				return fmt.Errorf("invalid path element %q", hop)
			}
			opts.Path = append(opts.Path, common.HexToAddress(hop))
		}
	}

	ex, err := eng.exchange(v)
	if err != nil {
		return err
	}

	var receipt *entities.TradeReceipt
	switch side {
	case "", "in", "exact_input":
		amount, err := parseAmount(amountFlag, tokenIn, raw)
		if err != nil {
			return err
		}
		receipt, err = ex.MakeTrade(ctx, tokenIn, tokenOut, amount, opts)
		if err != nil {
			return err
		}
	case "out", "exact_output":
		amount, err := parseAmount(amountFlag, tokenOut, raw)
		if err != nil {
			return err
		}
		receipt, err = ex.MakeTradeForExactOutput(ctx, tokenIn, tokenOut, amount, opts)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown side %q, expected in or out", side)
	}

	fmt.Printf("submitted %s\n", receipt.TxHash.Hex())
	fmt.Printf("in:        %s %s\n", formatUnits(receipt.AmountIn, tokenIn.Decimals), tokenIn.Symbol)
	fmt.Printf("out:       %s %s (quoted)\n", formatUnits(receipt.AmountOut, tokenOut.Decimals), tokenOut.Symbol)
	if receipt.AmountInMax != nil {
		fmt.Printf("max in:    %s %s\n", formatUnits(receipt.AmountInMax, tokenIn.Decimals), tokenIn.Symbol)
	}
	fmt.Printf("recipient: %s\n", receipt.Recipient.Hex())

	return eng.waitMined(ctx, cmd, receipt.TxHash)
}
