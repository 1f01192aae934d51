package assets

import "math/big"

// BeforeTransfer subscribers run ahead of every transfer and may veto it by
// returning an error.
type BeforeTransfer interface {
	BeforeAssetTransfer(assetID uint32, from, to [20]byte, amount *big.Int) error
}

// OnTransfer subscribers are notified after a transfer has been applied. Their
// errors are ignored by the ledger.
type OnTransfer interface {
	OnAssetTransfer(assetID uint32, from, to [20]byte, amount *big.Int) error
}

// SubscribeBeforeTransfer appends a veto hook. Subscribers run in registration
// order.
func (l *Ledger) SubscribeBeforeTransfer(hook BeforeTransfer) {
	if l == nil || hook == nil {
		return
	}
	l.before = append(l.before, hook)
}

// SubscribeOnTransfer appends a notification hook. Subscribers run in
// registration order.
func (l *Ledger) SubscribeOnTransfer(hook OnTransfer) {
	if l == nil || hook == nil {
		return
	}
	l.on = append(l.on, hook)
}
