package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/coinfolio/internal/clients/coingecko"
	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/services/portfolio"
	"github.com/bobmcallan/coinfolio/internal/services/prices"
	"github.com/bobmcallan/coinfolio/internal/services/resolver"
	"github.com/bobmcallan/coinfolio/internal/storage"
)

// startupTimeout bounds backend connection and the initial load.
const startupTimeout = 30 * time.Second

// App holds the initialized storage, clients and services shared by every
// cmd/coinfolio command.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Store       interfaces.KeyValueStore
	Investments interfaces.InvestmentStore
	Direct      *coingecko.Client
	Relay       *coingecko.Client // nil when relay_url is empty
	Resolver    interfaces.IdentifierResolver
	Prices      interfaces.PriceFetcher
	Portfolio   interfaces.PortfolioService
	StartupTime time.Time

	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath picks the config file: explicit path, COINFOLIO_CONFIG,
// coinfolio.toml beside the binary, then config/coinfolio.toml.
func resolveConfigPath(configPath, binDir string) string {
	if configPath == "" {
		configPath = os.Getenv("COINFOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "coinfolio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/coinfolio.toml" // fallback for development
		}
	}
	return configPath
}

// rebase makes a relative path relative to dir.
func rebase(path, dir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// NewApp loads configuration, opens storage, builds the clients and services
// and loads the persisted investments. configPath may be empty, in which case
// the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	config, err := common.LoadConfig(resolveConfigPath(configPath, binDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Relative data and log paths live beside the binary
	config.Storage.File.Path = rebase(config.Storage.File.Path, binDir)
	config.Storage.Badger.Path = rebase(config.Storage.Badger.Path, binDir)
	config.Logging.FilePath = rebase(config.Logging.FilePath, binDir)

	logger := common.NewLoggerFromConfig(config.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	kv, err := openKeyValueStore(ctx, logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	investmentStore := storage.NewInvestmentStore(kv, config.Storage.Key, logger)

	cg := config.Clients.CoinGecko
	clientOpts := []coingecko.ClientOption{
		coingecko.WithBaseURL(cg.BaseURL),
		coingecko.WithAPIKey(cg.APIKey),
		coingecko.WithLogger(logger),
		coingecko.WithRateLimit(cg.RateLimit),
		coingecko.WithTimeout(cg.GetTimeout()),
	}
	direct := coingecko.NewClient(clientOpts...)

	var relay *coingecko.Client
	var fallback interfaces.PriceSource
	if cg.RelayURL != "" {
		relay = coingecko.NewClient(append(clientOpts, coingecko.WithRelay(cg.RelayURL))...)
		fallback = relay
	} else {
		logger.Info().Msg("Relay transport disabled - price fetches have no fallback")
	}

	resolverService := resolver.NewService(direct, cg.GetCoinListTTL(), logger)
	priceService := prices.NewService(direct, fallback, config.QuoteCurrency, logger)
	portfolioService := portfolio.NewService(investmentStore, resolverService, priceService, logger,
		portfolio.WithResolveConcurrency(config.Sync.ResolveConcurrency),
		portfolio.WithSuspiciousPriceThreshold(config.Sync.SuspiciousPriceThreshold),
	)

	// A backend failure is logged by Load and leaves the collection empty
	_ = portfolioService.Load(ctx)

	a := &App{
		Config:      config,
		Logger:      logger,
		Store:       kv,
		Investments: investmentStore,
		Direct:      direct,
		Relay:       relay,
		Resolver:    resolverService,
		Prices:      priceService,
		Portfolio:   portfolioService,
		StartupTime: startupStart,
	}

	logger.Debug().
		Str("backend", config.Storage.Backend).
		Int("investments", len(portfolioService.Investments())).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// StartPriceScheduler launches the background refresh loop.
func (a *App) StartPriceScheduler(interval time.Duration) {
	if a.schedulerCancel != nil {
		return
	}
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	a.schedulerCancel = schedulerCancel
	go RunScheduler(schedulerCtx, a.Portfolio, interval, a.Logger)
}

// Close releases all resources held by the App.
// Shutdown order: cancel scheduler, close storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Store = nil
	}
}
