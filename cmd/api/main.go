package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/antibagr/uniswap-go/internal/config"
	"github.com/antibagr/uniswap-go/internal/domain/entities"
	"github.com/antibagr/uniswap-go/internal/domain/services"
	"github.com/antibagr/uniswap-go/internal/infrastructure/cache"
	"github.com/antibagr/uniswap-go/internal/infrastructure/dex"
	"github.com/antibagr/uniswap-go/internal/infrastructure/ethereum"
	"github.com/antibagr/uniswap-go/internal/presentation/handlers"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	flags := pflag.NewFlagSet("api", pflag.ExitOnError)
	cfgFile := flags.String("config", "", "config file path")
	flags.String("rpc-url", "https://eth.llamarpc.com", "Ethereum JSON-RPC endpoint")
	flags.String("network", "mainnet", "token registry network (mainnet, arbitrum)")
	flags.String("tokens-file", "", "extra tokens to register, JSON file")
	flags.StringSlice("versions", []string{"v1", "v2", "v3"}, "protocol versions to serve")
	flags.String("redis-addr", "", "Redis address for the token cache, empty for in-memory")
	flags.String("port", "8080", "HTTP listen port")
	flags.Bool("trading-enabled", false, "expose the trade endpoint (requires wallet-key)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(*cfgFile, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ethClient, err := ethereum.NewClient(cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer ethClient.Close()
	logger.Info("connected",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", ethClient.ChainID().String()))

	var tokenCache cache.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory cache", zap.Error(err))
			tokenCache = cache.NewInMemoryCache()
		} else {
			tokenCache = redisCache
			logger.Info("token cache on redis", zap.String("addr", cfg.RedisAddr))
		}
	} else {
		tokenCache = cache.NewInMemoryCache()
	}

	// A nil interface, not a nil *Wallet, signals read-only mode downstream.
	var wallet services.TransactionSubmitter
	if cfg.WalletKey != "" {
		w, err := ethereum.NewWallet(ethClient, cfg.WalletKey)
		if err != nil {
			return fmt.Errorf("load wallet: %w", err)
		}
		wallet = w
		logger.Info("wallet loaded", zap.String("address", w.Address().Hex()))
	}

	registry, err := entities.RegistryForNetwork(cfg.Network)
	if err != nil {
		return err
	}
	if cfg.TokensFile != "" {
		if err := registry.LoadFromFile(cfg.TokensFile); err != nil {
			return fmt.Errorf("load tokens: %w", err)
		}
		logger.Info("extra tokens loaded",
			zap.String("file", cfg.TokensFile),
			zap.Int("total", registry.Count()))
	}

	exchanges := make(map[entities.Version]*services.Exchange)
	ordered := make([]*services.Exchange, 0, len(cfg.Versions))
	for _, name := range cfg.Versions {
		v, err := entities.ParseVersion(name)
		if err != nil {
			return err
		}
		if _, ok := exchanges[v]; ok {
			continue
		}
		adapter, err := dex.ForVersion(v, ethClient)
		if err != nil {
			return err
		}
		ex := services.NewExchange(adapter, ethClient, wallet, logger)
		ex.SetDefaultSlippage(cfg.DefaultSlippage)
		exchanges[v] = ex
		ordered = append(ordered, ex)
	}
	if len(exchanges) == 0 {
		return errors.New("no protocol versions configured")
	}

	tokens := services.NewTokenService(registry, ethClient, tokenCache, logger)
	prices := services.NewPriceService(ordered, logger)

	tradingEnabled := cfg.TradingEnabled && wallet != nil
	if cfg.TradingEnabled && wallet == nil {
		logger.Warn("trading requested without a wallet key, trade endpoint disabled")
	}

	healthHandler := handlers.NewHealthHandler(version, ethClient.ChainID())
	quoteHandler := handlers.NewQuoteHandler(exchanges, tokens)
	priceHandler := handlers.NewPriceHandler(prices, tokens)
	tokenHandler := handlers.NewTokenHandler(tokens)
	balanceHandler := handlers.NewBalanceHandler(tokens, ethClient)
	tradeHandler := handlers.NewTradeHandler(exchanges, tokens, tradingEnabled)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))
	r.Use(corsMiddleware)

	r.Get("/health", healthHandler.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/quote", quoteHandler.GetQuote)
		r.Get("/price/{token}", priceHandler.GetPrice)
		r.Get("/prices", priceHandler.GetPrices)
		r.Get("/tokens", tokenHandler.ListTokens)
		r.Get("/tokens/{ref}", tokenHandler.GetToken)
		r.Get("/balance", balanceHandler.GetBalance)
		r.Post("/trade", tradeHandler.ExecuteTrade)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("port", cfg.Port),
			zap.Int("versions", len(exchanges)),
			zap.Bool("trading", tradingEnabled))
		errCh <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-quit:
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stopped")
	return nil
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

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)))
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
