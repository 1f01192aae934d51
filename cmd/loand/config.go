package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/definex/definex-libs/native/loan"
)

// AssetConfig registers one fungible asset on the ledger at boot.
type AssetConfig struct {
	ID     uint32 `toml:"ID"`
	Symbol string `toml:"Symbol"`
}

// PackageConfig publishes one loan package on first boot.
type PackageConfig struct {
	Terms              uint32 `toml:"Terms"`
	InterestRateHourly uint32 `toml:"InterestRateHourly"`
	MinLoanAmount      string `toml:"MinLoanAmount"`
}

// Config is the daemon configuration file.
type Config struct {
	ListenAddress       string `toml:"ListenAddress"`
	DataDir             string `toml:"DataDir"`
	ScanIntervalSeconds uint64 `toml:"ScanIntervalSeconds"`
	Env                 string `toml:"Env"`

	Loan     loan.Config     `toml:"Loan"`
	Assets   []AssetConfig   `toml:"Assets"`
	Packages []PackageConfig `toml:"Packages"`
}

func loadConfig(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:       ":8640",
		DataDir:             "./loand-data",
		ScanIntervalSeconds: 60,
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if cfg.ScanIntervalSeconds == 0 {
		cfg.ScanIntervalSeconds = 60
	}
	return cfg, nil
}
