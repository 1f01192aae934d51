package assets

import (
	"errors"
	"math/big"
	"testing"

	"github.com/definex/definex-libs/core/state"
	"github.com/definex/definex-libs/storage"
)

const (
	testCollateralAsset uint32 = 1
	testLoanAsset       uint32 = 2
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedger(state.NewManager(storage.NewMemDB()))
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[0] = b
	return a
}

func TestRegisterAsset(t *testing.T) {
	ledger := newTestLedger(t)
	if err := ledger.RegisterAsset(testCollateralAsset, "SBTC"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := ledger.RegisterAsset(testCollateralAsset, "AGAIN"); !errors.Is(err, ErrSymbolTaken) {
		t.Fatalf("expected ErrSymbolTaken, got %v", err)
	}
	symbol, err := ledger.Symbol(testCollateralAsset)
	if err != nil || symbol != "SBTC" {
		t.Fatalf("unexpected symbol %q err %v", symbol, err)
	}
	if _, err := ledger.Symbol(99); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestMintTransferBurn(t *testing.T) {
	ledger := newTestLedger(t)
	alice, bob := addr(0x01), addr(0x02)

	if err := ledger.Mint(testLoanAsset, alice, big.NewInt(1_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(testLoanAsset, alice, bob, big.NewInt(400)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := ledger.Burn(testLoanAsset, bob, big.NewInt(150)); err != nil {
		t.Fatalf("burn: %v", err)
	}

	aliceBal, _ := ledger.FreeBalance(testLoanAsset, alice)
	bobBal, _ := ledger.FreeBalance(testLoanAsset, bob)
	if aliceBal.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("unexpected alice balance: %s", aliceBal)
	}
	if bobBal.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("unexpected bob balance: %s", bobBal)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	ledger := newTestLedger(t)
	alice, bob := addr(0x01), addr(0x02)

	if err := ledger.Transfer(testLoanAsset, alice, bob, big.NewInt(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := ledger.Transfer(testLoanAsset, alice, bob, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

type vetoHook struct{ err error }

func (h vetoHook) BeforeAssetTransfer(uint32, [20]byte, [20]byte, *big.Int) error { return h.err }

type recordHook struct{ calls int }

func (h *recordHook) OnAssetTransfer(uint32, [20]byte, [20]byte, *big.Int) error {
	h.calls++
	return errors.New("ignored")
}

func TestTransferHooks(t *testing.T) {
	ledger := newTestLedger(t)
	alice, bob := addr(0x01), addr(0x02)
	if err := ledger.Mint(testLoanAsset, alice, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	after := &recordHook{}
	ledger.SubscribeOnTransfer(after)
	if err := ledger.Transfer(testLoanAsset, alice, bob, big.NewInt(1)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if after.calls != 1 {
		t.Fatalf("expected on-hook call, got %d", after.calls)
	}

	veto := errors.New("blocked")
	ledger.SubscribeBeforeTransfer(vetoHook{err: veto})
	if err := ledger.Transfer(testLoanAsset, alice, bob, big.NewInt(1)); !errors.Is(err, veto) {
		t.Fatalf("expected veto error, got %v", err)
	}
	balance, _ := ledger.FreeBalance(testLoanAsset, alice)
	if balance.Cmp(big.NewInt(9)) != 0 {
		t.Fatalf("vetoed transfer mutated balance: %s", balance)
	}
}
