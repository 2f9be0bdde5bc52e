package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
	"github.com/antibagr/uniswap-go/internal/domain/services"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	v, err := versionFlag(cmd)
	if err != nil {
		return err
	}

	eng, err := newEngine(cmd, false)
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

	ex, err := eng.exchange(v)
	if err != nil {
		return err
	}
	opts := &services.QuoteOptions{FeeTier: entities.FeeTier(fee)}

	var quote *entities.Quote
	switch side {
	case "", "in", "exact_input":
		amount, err := parseAmount(amountFlag, tokenIn, raw)
		if err != nil {
			return err
		}
		quote, err = ex.QuoteExactInput(ctx, tokenIn, tokenOut, amount, opts)
		if err != nil {
			return err
		}
	case "out", "exact_output":
		amount, err := parseAmount(amountFlag, tokenOut, raw)
		if err != nil {
			return err
		}
		quote, err = ex.QuoteExactOutput(ctx, tokenIn, tokenOut, amount, opts)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown side %q, expected in or out", side)
	}

	fmt.Printf("%s %s -> %s %s on %s\n",
		formatUnits(quote.AmountIn, tokenIn.Decimals), tokenIn.Symbol,
		formatUnits(quote.AmountOut, tokenOut.Decimals), tokenOut.Symbol,
		v)
	fmt.Printf("route:        %s\n", eng.routeString(ctx, quote.Route))
	fmt.Printf("price impact: %s bps\n", quote.PriceImpact)
	fmt.Printf("gas estimate: %d\n", quote.GasEstimate)
	return nil
}
