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
)

func runLiquidityAdd(cmd *cobra.Command, _ []string) error {
	eng, err := newEngine(cmd, true)
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

	nativeFlag, _ := cmd.Flags().GetString("native")
	raw, _ := cmd.Flags().GetBool("raw")
	deposit, err := parseAmount(nativeFlag, entities.ETH, raw)
	if err != nil {
		return err
	}

	ex, err := eng.exchange(entities.V1)
	if err != nil {
		return err
	}

	txHash, err := ex.AddLiquidity(ctx, token, deposit)
	if err != nil {
		return err
	}

	fmt.Printf("submitted %s\n", txHash.Hex())
	return eng.waitMined(ctx, cmd, txHash)
}

func runLiquidityRemove(cmd *cobra.Command, _ []string) error {
	eng, err := newEngine(cmd, true)
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

	sharesFlag, _ := cmd.Flags().GetString("shares")
	raw, _ := cmd.Flags().GetBool("raw")
	// v1 pool shares carry 18 decimals regardless of the paired token.
	shares, err := parseAmount(sharesFlag, entities.Token{Decimals: 18}, raw)
	if err != nil {
		return err
	}

	ex, err := eng.exchange(entities.V1)
	if err != nil {
		return err
	}

	txHash, err := ex.RemoveLiquidity(ctx, token, shares)
	if err != nil {
		return err
	}

	fmt.Printf("submitted %s\n", txHash.Hex())
	return eng.waitMined(ctx, cmd, txHash)
}
