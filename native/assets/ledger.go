package assets

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrUnknownAsset        = errors.New("assets: unknown asset")
	ErrInvalidAmount       = errors.New("assets: amount must be positive")
	ErrInsufficientBalance = errors.New("assets: insufficient balance")
	ErrSymbolTaken         = errors.New("assets: symbol already registered")
)

// Storage abstracts the subset of state manager functionality required by the
// asset ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Ledger keeps fungible asset balances and the per-asset symbol registry. It
// implements the collaborator contract the loan engine operates against:
// FreeBalance, Transfer, Mint and Burn. Mint and burn authorisation is the
// caller's concern; the ledger only enforces balance arithmetic.
//
// Ledger is not safe for concurrent use.
type Ledger struct {
	state  Storage
	before []BeforeTransfer
	on     []OnTransfer
}

// NewLedger constructs an asset ledger backed by the provided state.
func NewLedger(state Storage) *Ledger {
	return &Ledger{state: state}
}

func symbolKey(assetID uint32) []byte {
	return []byte(fmt.Sprintf("assets/symbol/%d", assetID))
}

func balanceKey(assetID uint32, addr [20]byte) []byte {
	return []byte(fmt.Sprintf("assets/balance/%d/%x", assetID, addr))
}

// RegisterAsset records the symbol for a new asset id. Registering the same id
// twice fails with ErrSymbolTaken.
func (l *Ledger) RegisterAsset(assetID uint32, symbol string) error {
	exists, err := l.state.KVGet(symbolKey(assetID), nil)
	if err != nil {
		return err
	}
	if exists {
		return ErrSymbolTaken
	}
	return l.state.KVPut(symbolKey(assetID), symbol)
}

// AssetExists reports whether the asset id has been registered.
func (l *Ledger) AssetExists(assetID uint32) (bool, error) {
	return l.state.KVGet(symbolKey(assetID), nil)
}

// Symbol returns the symbol registered for the asset id.
func (l *Ledger) Symbol(assetID uint32) (string, error) {
	var symbol string
	ok, err := l.state.KVGet(symbolKey(assetID), &symbol)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrUnknownAsset
	}
	return symbol, nil
}

// FreeBalance returns the spendable balance of the account for the asset.
// Unknown accounts hold zero.
func (l *Ledger) FreeBalance(assetID uint32, addr [20]byte) (*big.Int, error) {
	balance := new(big.Int)
	ok, err := l.state.KVGet(balanceKey(assetID, addr), balance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return balance, nil
}

func (l *Ledger) putBalance(assetID uint32, addr [20]byte, balance *big.Int) error {
	return l.state.KVPut(balanceKey(assetID, addr), balance)
}

// Transfer moves amount of the asset between accounts, running the registered
// before-hooks first and the after-hooks on success. Failures from after-hooks
// are ignored, matching the advisory nature of those subscribers.
func (l *Ledger) Transfer(assetID uint32, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	for _, hook := range l.before {
		if err := hook.BeforeAssetTransfer(assetID, from, to, amount); err != nil {
			return err
		}
	}
	fromBalance, err := l.FreeBalance(assetID, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBalance, err := l.FreeBalance(assetID, to)
	if err != nil {
		return err
	}
	if err := l.putBalance(assetID, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	if err := l.putBalance(assetID, to, new(big.Int).Add(toBalance, amount)); err != nil {
		return err
	}
	for _, hook := range l.on {
		_ = hook.OnAssetTransfer(assetID, from, to, amount)
	}
	return nil
}

// Mint credits newly issued units of the asset to the account.
func (l *Ledger) Mint(assetID uint32, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.FreeBalance(assetID, to)
	if err != nil {
		return err
	}
	return l.putBalance(assetID, to, new(big.Int).Add(balance, amount))
}

// Burn destroys amount units of the asset held by the account.
func (l *Ledger) Burn(assetID uint32, from [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.FreeBalance(assetID, from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	return l.putBalance(assetID, from, new(big.Int).Sub(balance, amount))
}
