package loan

import (
	"errors"
	"math/big"
	"testing"

	"github.com/BurntSushi/toml"
)

const sampleConfig = `
PawnShop = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
ProfitPool = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
LiquidationAccount = "cccccccccccccccccccccccccccccccccccccccc"
CollateralAssetID = 1
LoanAssetID = 2
GlobalLTVLimit = 6500
GlobalWarningThreshold = 8000
GlobalLiquidationThreshold = 9000
PenaltyRate = 200
LiquidationPenalty = 1300
MinimumCollateral = "1"
LoanCap = ""
CurrentPrice = 80000000
`

func TestConfigParams(t *testing.T) {
	var cfg Config
	if err := toml.Unmarshal([]byte(sampleConfig), &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	params, err := cfg.Params()
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	if params.PawnShop[0] != 0xAA || params.PawnShop[19] != 0xAA {
		t.Fatalf("pawn shop = %x", params.PawnShop)
	}
	if params.GlobalLTVLimit != 6500 || params.CurrentPrice != 80000000 {
		t.Fatalf("params mismatch: %+v", params)
	}
	if params.LoanCap != nil {
		t.Fatalf("empty LoanCap must stay uncapped")
	}
	if params.MinimumCollateral.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("minimum collateral = %s", params.MinimumCollateral)
	}
}

func TestConfigValidation(t *testing.T) {
	base := func() Config {
		var cfg Config
		if err := toml.Unmarshal([]byte(sampleConfig), &cfg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.PawnShop = "not-hex"
	if _, err := cfg.Params(); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected hex error, got %v", err)
	}

	cfg = base()
	cfg.PawnShop = "aabb"
	if _, err := cfg.Params(); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected length error, got %v", err)
	}

	cfg = base()
	cfg.GlobalLTVLimit = 0
	if _, err := cfg.Params(); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected LTV limit error, got %v", err)
	}

	cfg = base()
	cfg.GlobalWarningThreshold = 9500
	if _, err := cfg.Params(); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected threshold ordering error, got %v", err)
	}

	cfg = base()
	cfg.CurrentPrice = 0
	if _, err := cfg.Params(); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected price error, got %v", err)
	}

	cfg = base()
	cfg.LoanCap = "-5"
	if _, err := cfg.Params(); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected cap error, got %v", err)
	}
}
