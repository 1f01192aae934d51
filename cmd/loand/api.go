package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/definex/definex-libs/native/loan"
)

type apiServer struct {
	engine *loan.Engine
	log    *slog.Logger
}

func (s *apiServer) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/loans", s.handleLoans)
		r.Get("/loans/{id}", s.handleLoan)
		r.Get("/packages", s.handlePackages)
		r.Get("/totals", s.handleTotals)
	})
	return r
}

type loanView struct {
	ID                  uint64 `json:"id"`
	PackageID           uint64 `json:"packageId"`
	Owner               string `json:"owner"`
	Due                 uint64 `json:"due"`
	DueExtend           uint64 `json:"dueExtend"`
	CollateralOriginal  string `json:"collateralOriginal"`
	CollateralAvailable string `json:"collateralAvailable"`
	LoanBalanceTotal    string `json:"loanBalanceTotal"`
	Health              string `json:"health"`
	LTV                 uint64 `json:"ltv"`
}

func newLoanView(record *loan.Loan) loanView {
	return loanView{
		ID:                  record.ID,
		PackageID:           record.PackageID,
		Owner:               hex.EncodeToString(record.Owner[:]),
		Due:                 record.Due,
		DueExtend:           record.DueExtend,
		CollateralOriginal:  record.CollateralOriginal.String(),
		CollateralAvailable: record.CollateralAvailable.String(),
		LoanBalanceTotal:    record.LoanBalanceTotal.String(),
		Health:              record.Health.State.String(),
		LTV:                 record.Health.LTV,
	}
}

type packageView struct {
	ID                 uint64 `json:"id"`
	Status             string `json:"status"`
	Terms              uint32 `json:"terms"`
	Min                string `json:"min"`
	InterestRateHourly uint32 `json:"interestRateHourly"`
	CollateralAssetID  uint32 `json:"collateralAssetId"`
	LoanAssetID        uint32 `json:"loanAssetId"`
}

type totalsView struct {
	TotalLoan       string `json:"totalLoan"`
	TotalCollateral string `json:"totalCollateral"`
	TotalProfit     string `json:"totalProfit"`
}

func (s *apiServer) handleLoans(w http.ResponseWriter, r *http.Request) {
	var (
		records []*loan.Loan
		err     error
	)
	if ownerParam := r.URL.Query().Get("owner"); ownerParam != "" {
		var owner [20]byte
		raw, decodeErr := hex.DecodeString(ownerParam)
		if decodeErr != nil || len(raw) != len(owner) {
			s.writeError(w, http.StatusBadRequest, "owner must be a 20-byte hex address")
			return
		}
		copy(owner[:], raw)
		records, err = s.engine.LoansByOwner(owner)
	} else {
		records, err = s.engine.Loans()
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]loanView, 0, len(records))
	for _, record := range records {
		views = append(views, newLoanView(record))
	}
	s.writeJSON(w, views)
}

func (s *apiServer) handleLoan(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "id must be a decimal loan id")
		return
	}
	record, err := s.engine.Loan(id)
	if err != nil {
		if errors.Is(err, loan.ErrLoanNotFound) {
			s.writeError(w, http.StatusNotFound, "loan not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, newLoanView(record))
}

func (s *apiServer) handlePackages(w http.ResponseWriter, _ *http.Request) {
	packages, err := s.engine.Packages()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]packageView, 0, len(packages))
	for _, pkg := range packages {
		views = append(views, packageView{
			ID:                 pkg.ID,
			Status:             pkg.Status.String(),
			Terms:              pkg.Terms,
			Min:                pkg.Min.String(),
			InterestRateHourly: pkg.InterestRateHourly,
			CollateralAssetID:  pkg.CollateralAssetID,
			LoanAssetID:        pkg.LoanAssetID,
		})
	}
	s.writeJSON(w, views)
}

func (s *apiServer) handleTotals(w http.ResponseWriter, _ *http.Request) {
	totals, err := s.engine.TotalsView()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, totalsView{
		TotalLoan:       totals.TotalLoan.String(),
		TotalCollateral: totals.TotalCollateral.String(),
		TotalProfit:     totals.TotalProfit.String(),
	})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("encode response", "error", err)
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
