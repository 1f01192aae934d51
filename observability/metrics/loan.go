package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type LoanMetrics struct {
	loansOpened          prometheus.Counter
	scanCycles           prometheus.Counter
	expirationExtensions prometheus.Counter
	liquidationsFlagged  prometheus.Counter
	liquidationsSettled  prometheus.Counter
	penaltySwept         prometheus.Counter
}

var (
	loanOnce     sync.Once
	loanRegistry *LoanMetrics
)

func Loan() *LoanMetrics {
	loanOnce.Do(func() {
		loanRegistry = &LoanMetrics{
			loansOpened: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "loan_opened_total",
				Help: "Count of loans originated.",
			}),
			scanCycles: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "loan_scan_cycles_total",
				Help: "Count of completed health scan cycles.",
			}),
			expirationExtensions: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "loan_expiration_extensions_total",
				Help: "Count of expired loans rolled into a new term.",
			}),
			liquidationsFlagged: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "loan_liquidations_flagged_total",
				Help: "Count of loans flagged for liquidation by the scanner.",
			}),
			liquidationsSettled: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "loan_liquidations_settled_total",
				Help: "Count of liquidations settled with auction proceeds.",
			}),
			penaltySwept: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "loan_penalty_swept_units_total",
				Help: "Cumulative expiration fees swept to the profit pool, in collateral units.",
			}),
		}
		prometheus.MustRegister(
			loanRegistry.loansOpened,
			loanRegistry.scanCycles,
			loanRegistry.expirationExtensions,
			loanRegistry.liquidationsFlagged,
			loanRegistry.liquidationsSettled,
			loanRegistry.penaltySwept,
		)
	})
	return loanRegistry
}

func (m *LoanMetrics) ObserveLoanOpened() {
	if m == nil {
		return
	}
	m.loansOpened.Inc()
}

func (m *LoanMetrics) ObserveScanCycle() {
	if m == nil {
		return
	}
	m.scanCycles.Inc()
}

func (m *LoanMetrics) ObserveExpirationExtended() {
	if m == nil {
		return
	}
	m.expirationExtensions.Inc()
}

func (m *LoanMetrics) ObserveLiquidationFlagged() {
	if m == nil {
		return
	}
	m.liquidationsFlagged.Inc()
}

func (m *LoanMetrics) ObserveLiquidationSettled() {
	if m == nil {
		return
	}
	m.liquidationsSettled.Inc()
}

func (m *LoanMetrics) ObservePenaltySwept(amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	m.penaltySwept.Add(value)
}
