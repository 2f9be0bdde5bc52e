package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/antibagr/uniswap-go/internal/config"
	"github.com/antibagr/uniswap-go/internal/domain/entities"
	"github.com/antibagr/uniswap-go/internal/domain/services"
	"github.com/antibagr/uniswap-go/internal/infrastructure/cache"
	"github.com/antibagr/uniswap-go/internal/infrastructure/dex"
	"github.com/antibagr/uniswap-go/internal/infrastructure/ethereum"
)

// engine carries the wiring every command shares: config, chain access,
// token resolution and the optional signing wallet.
type engine struct {
	cfg    config.Config
	logger *zap.Logger
	client *ethereum.Client
	tokens *services.TokenService
	wallet *ethereum.Wallet
}

func newEngine(cmd *cobra.Command, needWallet bool) (*engine, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	client, err := ethereum.NewClient(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	registry, err := entities.RegistryForNetwork(cfg.Network)
	if err != nil {
		client.Close()
		return nil, err
	}
	if cfg.TokensFile != "" {
		if err := registry.LoadFromFile(cfg.TokensFile); err != nil {
			client.Close()
			return nil, fmt.Errorf("load tokens: %w", err)
		}
	}

	var wallet *ethereum.Wallet
	if cfg.WalletKey != "" {
		wallet, err = ethereum.NewWallet(client, cfg.WalletKey)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("load wallet: %w", err)
		}
	}
	if needWallet && wallet == nil {
		client.Close()
		return nil, errors.New("this command needs a wallet, set wallet-key or UNISWAP_WALLET_KEY")
	}

	tokens := services.NewTokenService(registry, client, cache.NewInMemoryCache(), logger)

	return &engine{
		cfg:    cfg,
		logger: logger,
		client: client,
		tokens: tokens,
		wallet: wallet,
	}, nil
}

func (e *engine) Close() {
	e.client.Close()
	_ = e.logger.Sync()
}

// exchange builds a dispatcher for one protocol version. The wallet is
// attached only when one was loaded, so pricing works key-less.
func (e *engine) exchange(v entities.Version) (*services.Exchange, error) {
	adapter, err := dex.ForVersion(v, e.client)
	if err != nil {
		return nil, err
	}

	var submitter services.TransactionSubmitter
	if e.wallet != nil {
		submitter = e.wallet
	}

	ex := services.NewExchange(adapter, e.client, submitter, e.logger)
	ex.SetDefaultSlippage(e.cfg.DefaultSlippage)
	return ex, nil
}

// routeString renders a route as symbols where the registry knows them,
// addresses where it does not.
func (e *engine) routeString(ctx context.Context, route *entities.Route) string {
	path := route.Path()
	parts := make([]string, 0, len(path))
	for _, addr := range path {
		token, err := e.tokens.GetToken(ctx, addr.Hex())
		if err != nil {
			parts = append(parts, addr.Hex())
			continue
		}
		parts = append(parts, token.Symbol)
	}
	return strings.Join(parts, " -> ")
}

func versionFlag(cmd *cobra.Command) (entities.Version, error) {
	name, _ := cmd.Flags().GetString("version")
	return entities.ParseVersion(name)
}

// parseAmount converts a human figure like "1.5" into base units of the
// token, or passes a raw base-unit integer through unchanged.
func parseAmount(value string, token entities.Token, raw bool) (*big.Int, error) {
	if value == "" {
		return nil, errors.New("amount is required")
	}
	if raw {
		amount, ok := new(big.Int).SetString(value, 10)
		if !ok || amount.Sign() <= 0 {
			return nil, fmt.Errorf("invalid raw amount %q", value)
		}
		return amount, nil
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	scaled := d.Shift(int32(token.Decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %s carries more than %d decimal places", value, token.Decimals)
	}
	if scaled.Sign() <= 0 {
		return nil, errors.New("amount must be positive")
	}
	return scaled.BigInt(), nil
}

// formatUnits renders a base-unit amount in the token's human scale.
func formatUnits(amount *big.Int, decimals uint8) string {
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// waitMined blocks until the transaction lands when the command carries
// --wait.
func (e *engine) waitMined(ctx context.Context, cmd *cobra.Command, txHash common.Hash) error {
	if wait, _ := cmd.Flags().GetBool("wait"); !wait {
		return nil
	}
	fmt.Println("waiting for confirmation...")
	if err := e.wallet.WaitMined(ctx, txHash); err != nil {
		return err
	}
	fmt.Println("mined")
	return nil
}
