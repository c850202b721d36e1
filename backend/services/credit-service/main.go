package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/trustup-app/trustup/backend/pkg/common"
	"github.com/trustup-app/trustup/backend/pkg/common/api"
	"github.com/trustup-app/trustup/backend/pkg/common/db"
	"github.com/trustup-app/trustup/backend/pkg/common/metrics"
	"github.com/trustup-app/trustup/backend/pkg/common/migrations"
	"github.com/trustup-app/trustup/backend/pkg/fabricclient"
	"github.com/trustup-app/trustup/backend/services/credit-service/models"
)

// ledger is the chaincode surface the service depends on. fabricclient.Client
// satisfies it in production; tests plug in a fake.
type ledger interface {
	SubmitTransaction(name string, args ...string) ([]byte, error)
	EvaluateTransaction(name string, args ...string) ([]byte, error)
}

type Service struct {
	fabric   ledger
	db       *sql.DB
	validate *validator.Validate
	log      zerolog.Logger
}

func (s *Service) CreateLoanHandler(w http.ResponseWriter, r *http.Request) {
	traceID := common.GetRequestID(r.Context())

	var req models.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", traceID)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), traceID)
		return
	}

	result, err := s.submit("CreateLoan",
		req.Borrower, req.Merchant,
		strconv.FormatInt(req.Amount, 10),
		strconv.FormatInt(req.Guarantee, 10),
		strconv.FormatInt(req.DueDate, 10))
	if err != nil {
		s.log.Error().Err(err).Str("borrower", req.Borrower).Msg("loan creation failed")
		metrics.RequestErrorsTotal.WithLabelValues(chainErrorReason(err)).Inc()
		api.WriteError(w, chainErrorStatus(err), "loan_creation_failed", err.Error(), traceID)
		return
	}

	loanID, err := strconv.ParseUint(strings.TrimSpace(string(result)), 10, 64)
	if err != nil {
		s.log.Error().Err(err).Bytes("payload", result).Msg("malformed loan id from chain")
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Malformed chaincode response", traceID)
		return
	}

	loan := s.mirrorLoan(loanID)
	if loan != nil {
		metrics.LoansCreatedTotal.WithLabelValues(strconv.FormatInt(loan.InterestRateBps, 10)).Inc()
	}

	s.log.Info().Uint64("loan_id", loanID).Str("borrower", req.Borrower).Str("merchant", req.Merchant).
		Int64("amount", req.Amount).Msg("loan created")
	api.WriteSuccess(w, http.StatusCreated, models.CreateLoanResponse{LoanID: loanID, Status: "ACTIVE"})
}

func (s *Service) RepayLoanHandler(w http.ResponseWriter, r *http.Request) {
	traceID := common.GetRequestID(r.Context())
	loanID, ok := s.pathLoanID(w, r, traceID)
	if !ok {
		return
	}

	var req models.RepayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", traceID)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), traceID)
		return
	}

	result, err := s.submit("RepayLoan",
		req.Borrower,
		strconv.FormatUint(loanID, 10),
		strconv.FormatInt(req.Amount, 10))
	if err != nil {
		s.log.Error().Err(err).Uint64("loan_id", loanID).Msg("repayment failed")
		metrics.RequestErrorsTotal.WithLabelValues(chainErrorReason(err)).Inc()
		api.WriteError(w, chainErrorStatus(err), "repayment_failed", err.Error(), traceID)
		return
	}

	remaining, err := strconv.ParseInt(strings.TrimSpace(string(result)), 10, 64)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Malformed chaincode response", traceID)
		return
	}

	status := "ACTIVE"
	outcome := "partial"
	if remaining == 0 {
		status = "REPAID"
		outcome = "full"
	}
	metrics.RepaymentsTotal.WithLabelValues(outcome).Inc()
	s.mirrorLoan(loanID)

	s.log.Info().Uint64("loan_id", loanID).Int64("amount", req.Amount).Int64("remaining", remaining).
		Msg("repayment accepted")
	api.WriteSuccess(w, http.StatusOK, models.RepayResponse{LoanID: loanID, Remaining: remaining, Status: status})
}

func (s *Service) MarkDefaultedHandler(w http.ResponseWriter, r *http.Request) {
	traceID := common.GetRequestID(r.Context())
	loanID, ok := s.pathLoanID(w, r, traceID)
	if !ok {
		return
	}

	if _, err := s.submit("MarkDefaulted", strconv.FormatUint(loanID, 10)); err != nil {
		s.log.Error().Err(err).Uint64("loan_id", loanID).Msg("default marking failed")
		metrics.RequestErrorsTotal.WithLabelValues(chainErrorReason(err)).Inc()
		api.WriteError(w, chainErrorStatus(err), "default_failed", err.Error(), traceID)
		return
	}

	metrics.DefaultsTotal.Inc()
	s.mirrorLoan(loanID)

	s.log.Info().Uint64("loan_id", loanID).Msg("loan marked defaulted")
	api.WriteSuccess(w, http.StatusOK, models.DefaultResponse{LoanID: loanID, Status: "DEFAULTED"})
}

func (s *Service) GetLoanHandler(w http.ResponseWriter, r *http.Request) {
	traceID := common.GetRequestID(r.Context())
	loanID, ok := s.pathLoanID(w, r, traceID)
	if !ok {
		return
	}

	// Cache first, chain as fallback.
	if s.db != nil {
		var loan models.Loan
		err := s.db.QueryRow(`
			SELECT id, borrower, merchant, principal, interest_rate_bps, guarantee,
			       due_date, created_at, repaid_amount, status, synced_at
			FROM credit_db.loans WHERE id = $1`, loanID).
			Scan(&loan.ID, &loan.Borrower, &loan.Merchant, &loan.Principal, &loan.InterestRateBps,
				&loan.Guarantee, &loan.DueDate, &loan.CreatedAt, &loan.RepaidAmount, &loan.Status, &loan.SyncedAt)
		if err == nil {
			api.WriteSuccess(w, http.StatusOK, loan)
			return
		}
		if err != sql.ErrNoRows {
			s.log.Error().Err(err).Uint64("loan_id", loanID).Msg("loan cache read failed")
		}
	}

	result, err := s.evaluate("GetLoan", strconv.FormatUint(loanID, 10))
	if err != nil {
		api.WriteError(w, http.StatusNotFound, "loan_not_found", "Loan not found", traceID)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(result)
}

func (s *Service) GetUserLoansHandler(w http.ResponseWriter, r *http.Request) {
	traceID := common.GetRequestID(r.Context())
	borrower := mux.Vars(r)["id"]

	if s.db != nil {
		rows, err := s.db.Query(`
			SELECT id, borrower, merchant, principal, interest_rate_bps, guarantee,
			       due_date, created_at, repaid_amount, status, synced_at
			FROM credit_db.loans WHERE borrower = $1 ORDER BY id`, borrower)
		if err == nil {
			defer rows.Close()
			loans := []models.Loan{}
			for rows.Next() {
				var loan models.Loan
				if err := rows.Scan(&loan.ID, &loan.Borrower, &loan.Merchant, &loan.Principal,
					&loan.InterestRateBps, &loan.Guarantee, &loan.DueDate, &loan.CreatedAt,
					&loan.RepaidAmount, &loan.Status, &loan.SyncedAt); err == nil {
					loans = append(loans, loan)
				}
			}
			api.WriteSuccess(w, http.StatusOK, loans)
			return
		}
		s.log.Error().Err(err).Str("borrower", borrower).Msg("loan cache query failed")
	}

	result, err := s.evaluate("GetUserLoans", borrower)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to fetch loans", traceID)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(result)
}

// mirrorLoan refreshes the cached row from the chain. Cache failures are
// logged, never surfaced: the transaction already committed.
func (s *Service) mirrorLoan(loanID uint64) *models.Loan {
	result, err := s.evaluate("GetLoan", strconv.FormatUint(loanID, 10))
	if err != nil {
		s.log.Warn().Err(err).Uint64("loan_id", loanID).Msg("loan mirror read failed")
		return nil
	}
	var loan models.Loan
	if err := json.Unmarshal(result, &loan); err != nil {
		s.log.Warn().Err(err).Uint64("loan_id", loanID).Msg("loan mirror decode failed")
		return nil
	}
	if s.db == nil {
		return &loan
	}
	_, err = s.db.Exec(`
		INSERT INTO credit_db.loans (
			id, borrower, merchant, principal, interest_rate_bps, guarantee,
			due_date, created_at, repaid_amount, status, synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			repaid_amount = EXCLUDED.repaid_amount,
			status = EXCLUDED.status,
			synced_at = EXCLUDED.synced_at`,
		loan.ID, loan.Borrower, loan.Merchant, loan.Principal, loan.InterestRateBps,
		loan.Guarantee, loan.DueDate, loan.CreatedAt, loan.RepaidAmount, loan.Status, time.Now())
	if err != nil {
		s.log.Warn().Err(err).Uint64("loan_id", loanID).Msg("loan mirror write failed")
	}
	return &loan
}

func (s *Service) pathLoanID(w http.ResponseWriter, r *http.Request, traceID string) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Loan id must be a positive integer", traceID)
		return 0, false
	}
	return id, true
}

func (s *Service) submit(fn string, args ...string) ([]byte, error) {
	timer := time.Now()
	result, err := s.fabric.SubmitTransaction(fn, args...)
	metrics.ChaincodeDuration.WithLabelValues(fn).Observe(time.Since(timer).Seconds())
	return result, err
}

func (s *Service) evaluate(fn string, args ...string) ([]byte, error) {
	timer := time.Now()
	result, err := s.fabric.EvaluateTransaction(fn, args...)
	metrics.ChaincodeDuration.WithLabelValues(fn).Observe(time.Since(timer).Seconds())
	return result, err
}

// chainErrorStatus maps the contract's error taxonomy onto HTTP codes by
// matching the sentinel text carried through the gateway.
func chainErrorStatus(err error) int {
	switch chainErrorReason(err) {
	case "loan_not_found":
		return http.StatusNotFound
	case "unauthorized", "not_borrower":
		return http.StatusForbidden
	case "merchant_inactive", "reputation_too_low", "insufficient_guarantee",
		"overpayment", "loan_not_active", "not_yet_overdue", "invalid_input",
		"insufficient_liquidity":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func chainErrorReason(err error) string {
	msg := strings.ToLower(err.Error())
	for reason, needle := range map[string]string{
		"loan_not_found":         "loan not found",
		"not_borrower":           "not the borrower",
		"unauthorized":           "unauthorized",
		"merchant_inactive":      "merchant inactive",
		"reputation_too_low":     "reputation too low",
		"insufficient_guarantee": "insufficient guarantee",
		"overpayment":            "overpayment",
		"loan_not_active":        "loan not active",
		"not_yet_overdue":        "not yet overdue",
		"invalid_input":          "invalid input",
		"insufficient_liquidity": "insufficient liquidity",
	} {
		if strings.Contains(msg, needle) {
			return reason
		}
	}
	return "chain_error"
}

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		panic(err)
	}
	log := common.NewLogger("credit-service", cfg.LogLevel, cfg.Env)

	database, err := db.Connect(cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := migrations.Run(database, "backend/migrations/credit", log); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	fabric, err := fabricclient.NewClient(
		cfg.Fabric.ConfigPath,
		cfg.Fabric.Channel,
		"creditline",
		cfg.Fabric.MSPID,
		cfg.Fabric.CertPath,
		cfg.Fabric.KeyPath,
	)
	if err != nil {
		log.Warn().Err(err).Msg("fabric connection failed")
	} else {
		defer fabric.Close()
	}

	svc := &Service{fabric: fabric, db: database, validate: validator.New(), log: log}

	r := mux.NewRouter()
	r.Use(common.RequestID)
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	auth := common.AuthMiddleware(cfg.JWTSecret)
	r.Handle("/loans", auth(http.HandlerFunc(svc.CreateLoanHandler))).Methods("POST")
	r.Handle("/loans/{id}/repayments", auth(http.HandlerFunc(svc.RepayLoanHandler))).Methods("POST")
	r.Handle("/loans/{id}/default", auth(http.HandlerFunc(svc.MarkDefaultedHandler))).Methods("POST")
	r.HandleFunc("/loans/{id}", svc.GetLoanHandler).Methods("GET")
	r.HandleFunc("/users/{id}/loans", svc.GetUserLoansHandler).Methods("GET")

	log.Info().Str("port", cfg.Port).Msg("credit service running")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
