package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/definex/definex-libs/core/state"
	"github.com/definex/definex-libs/native/assets"
	"github.com/definex/definex-libs/native/loan"
	"github.com/definex/definex-libs/observability/logging"
	"github.com/definex/definex-libs/observability/metrics"
	"github.com/definex/definex-libs/storage"
)

func main() {
	configFile := flag.String("config", "./loand.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LOAND_ENV"))
	logger := logging.Setup("loand", env)

	cfg, err := loadConfig(*configFile)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if env == "" {
		env = cfg.Env
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("open database", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	store := loan.NewStore(manager)
	ledger := assets.NewLedger(manager)

	engine := loan.NewEngine()
	engine.SetState(store)
	engine.SetLedger(ledger)
	engine.SetMetrics(metrics.Loan())
	engine.SetLogger(logger.With("component", "loan-engine"))

	if err := bootstrap(cfg, engine, ledger, logger); err != nil {
		logger.Error("bootstrap", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runScanner(ctx, engine, time.Duration(cfg.ScanIntervalSeconds)*time.Second, logger)

	api := &apiServer{engine: engine, log: logger.With("component", "api")}
	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           api.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("api listening", "addr", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown", "error", err)
	}
}

// bootstrap seeds parameters, assets and packages on first boot. A store that
// already carries a price is considered initialized and left untouched.
func bootstrap(cfg *Config, engine *loan.Engine, ledger *assets.Ledger, logger *slog.Logger) error {
	params, err := engine.ParamsView()
	if err != nil {
		return err
	}
	if params.CurrentPrice != 0 {
		return nil
	}

	seeded, err := cfg.Loan.Params()
	if err != nil {
		return fmt.Errorf("loan params: %w", err)
	}
	if err := engine.InitParams(seeded); err != nil {
		return err
	}
	for _, asset := range cfg.Assets {
		if err := ledger.RegisterAsset(asset.ID, asset.Symbol); err != nil {
			if errors.Is(err, assets.ErrSymbolTaken) {
				continue
			}
			return fmt.Errorf("register asset %d: %w", asset.ID, err)
		}
	}
	for _, pkgCfg := range cfg.Packages {
		min, ok := parseDecimal(pkgCfg.MinLoanAmount)
		if !ok {
			return fmt.Errorf("package min amount %q is not a decimal", pkgCfg.MinLoanAmount)
		}
		id, err := engine.CreatePackage(pkgCfg.Terms, pkgCfg.InterestRateHourly, min)
		if err != nil {
			return fmt.Errorf("create package: %w", err)
		}
		logger.Info("seeded loan package", "packageId", id, "terms", pkgCfg.Terms)
	}
	logger.Info("state bootstrapped", "assets", len(cfg.Assets), "packages", len(cfg.Packages))
	return nil
}

func parseDecimal(value string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok || amount.Sign() <= 0 {
		return nil, false
	}
	return amount, true
}

// runScanner drives the health scan once per configured cycle until the
// context is cancelled.
func runScanner(ctx context.Context, engine *loan.Engine, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := engine.RunCycle(); err != nil {
				logger.Error("scan cycle", "error", err)
			}
		}
	}
}
