package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

func runBalance(cmd *cobra.Command, _ []string) error {
	eng, err := newEngine(cmd, false)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ref, _ := cmd.Flags().GetString("token")
	token, err := eng.tokens.GetToken(ctx, ref)
	if err != nil {
		return err
	}

	var account common.Address
	if addr, _ := cmd.Flags().GetString("address"); addr != "" {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid address %q", addr)
		}
		account = common.HexToAddress(addr)
	} else {
		if eng.wallet == nil {
			return errors.New("pass --address or configure a wallet key")
		}
		account = eng.wallet.Address()
	}

	var balance *big.Int
	if token.IsNative() {
		balance, err = eng.client.NativeBalance(ctx, account)
	} else {
		balance, err = eng.client.TokenBalance(ctx, token.Address, account)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s %s\n", account.Hex(), formatUnits(balance, token.Decimals), token.Symbol)
	return nil
}
