package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/antibagr/uniswap-go/internal/domain/entities"
	"github.com/antibagr/uniswap-go/internal/domain/services"
)

func runPrice(cmd *cobra.Command, _ []string) error {
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

	ref, _ := cmd.Flags().GetString("token")
	if ref == "" {
		return errors.New("token is required")
	}
	token, err := eng.tokens.GetToken(ctx, ref)
	if err != nil {
		return err
	}

	fee, _ := cmd.Flags().GetUint32("fee")

	ex, err := eng.exchange(v)
	if err != nil {
		return err
	}

	rate, err := ex.GetExchangeRate(ctx, token, &services.QuoteOptions{FeeTier: entities.FeeTier(fee)})
	if err != nil {
		return err
	}

	fmt.Printf("1 %s = %s ETH on %s\n", token.Symbol, decimal.NewFromBigInt(rate, -18), v)
	return nil
}
