package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/antibagr/uniswap-go/internal/config"
	"github.com/antibagr/uniswap-go/internal/domain/entities"
)

// runTokens prints the registry for the configured network. No RPC access
// is needed so no client is dialed.
func runTokens(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	registry, err := entities.RegistryForNetwork(cfg.Network)
	if err != nil {
		return err
	}
	if cfg.TokensFile != "" {
		if err := registry.LoadFromFile(cfg.TokensFile); err != nil {
			return err
		}
	}

	for _, token := range registry.GetAll() {
		fmt.Printf("%-8s %s  %d\n", token.Symbol, token.Address.Hex(), token.Decimals)
	}
	return nil
}
