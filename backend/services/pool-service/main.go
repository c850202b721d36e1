package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/trustup-app/trustup/backend/pkg/common"
	"github.com/trustup-app/trustup/backend/pkg/common/api"
	"github.com/trustup-app/trustup/backend/pkg/common/db"
	"github.com/trustup-app/trustup/backend/pkg/common/migrations"
	"github.com/trustup-app/trustup/backend/pkg/fabricclient"
	"github.com/trustup-app/trustup/backend/services/pool-service/models"
)

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

func (s *Service) DepositHandler(w http.ResponseWriter, r *http.Request) {
	traceID := common.GetRequestID(r.Context())

	var req models.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", traceID)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), traceID)
		return
	}

	movementID := s.recordMovement(req.Provider, "DEPOSIT", req.Amount)

	result, err := s.fabric.SubmitTransaction("Deposit", req.Provider, strconv.FormatInt(req.Amount, 10))
	if err != nil {
		s.log.Error().Err(err).Str("provider", req.Provider).Msg("deposit failed")
		s.finishMovement(movementID, "Failed", 0)
		api.WriteError(w, poolErrorStatus(err), "deposit_failed", err.Error(), traceID)
		return
	}
	shares, err := strconv.ParseInt(strings.TrimSpace(string(result)), 10, 64)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Malformed chaincode response", traceID)
		return
	}
	s.finishMovement(movementID, "Confirmed", shares)

	s.log.Info().Str("provider", req.Provider).Int64("amount", req.Amount).Int64("shares", shares).
		Msg("deposit accepted")
	api.WriteSuccess(w, http.StatusCreated, models.DepositResponse{MovementID: movementID, Shares: shares})
}

func (s *Service) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	traceID := common.GetRequestID(r.Context())

	var req models.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", traceID)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), traceID)
		return
	}

	movementID := s.recordMovement(req.Provider, "WITHDRAWAL", 0)

	result, err := s.fabric.SubmitTransaction("Withdraw", req.Provider, strconv.FormatInt(req.Shares, 10))
	if err != nil {
		s.log.Error().Err(err).Str("provider", req.Provider).Msg("withdrawal failed")
		s.finishMovement(movementID, "Failed", req.Shares)
		api.WriteError(w, poolErrorStatus(err), "withdrawal_failed", err.Error(), traceID)
		return
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(string(result)), 10, 64)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Malformed chaincode response", traceID)
		return
	}
	s.finishMovement(movementID, "Confirmed", req.Shares)

	s.log.Info().Str("provider", req.Provider).Int64("shares", req.Shares).Int64("amount", amount).
		Msg("withdrawal accepted")
	api.WriteSuccess(w, http.StatusOK, models.WithdrawResponse{MovementID: movementID, Amount: amount})
}

func (s *Service) StatsHandler(w http.ResponseWriter, r *http.Request) {
	traceID := common.GetRequestID(r.Context())

	result, err := s.fabric.EvaluateTransaction("GetPoolStats")
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to read pool stats", traceID)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(result)
}

func (s *Service) ProviderSharesHandler(w http.ResponseWriter, r *http.Request) {
	traceID := common.GetRequestID(r.Context())
	provider := mux.Vars(r)["id"]

	result, err := s.fabric.EvaluateTransaction("GetProviderShares", provider)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to read shares", traceID)
		return
	}
	shares, err := strconv.ParseInt(strings.TrimSpace(string(result)), 10, 64)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Malformed chaincode response", traceID)
		return
	}
	api.WriteSuccess(w, http.StatusOK, models.ProviderShares{Provider: provider, Shares: shares})
}

func (s *Service) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	traceID := common.GetRequestID(r.Context())
	if s.db == nil {
		api.WriteSuccess(w, http.StatusOK, []models.Movement{})
		return
	}

	rows, err := s.db.Query(`
		SELECT id, provider, kind, amount, shares, status, created_at
		FROM pool_db.movements ORDER BY created_at DESC LIMIT 50`)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to fetch history", traceID)
		return
	}
	defer rows.Close()

	history := []models.Movement{}
	for rows.Next() {
		var m models.Movement
		if err := rows.Scan(&m.ID, &m.Provider, &m.Kind, &m.Amount, &m.Shares, &m.Status, &m.CreatedAt); err == nil {
			history = append(history, m)
		}
	}
	api.WriteSuccess(w, http.StatusOK, history)
}

// recordMovement writes a Pending row before the chain call; finishMovement
// settles it afterwards. Row failures are logged, never surfaced.
func (s *Service) recordMovement(provider, kind string, amount int64) string {
	id := uuid.NewString()
	if s.db == nil {
		return id
	}
	_, err := s.db.Exec(`
		INSERT INTO pool_db.movements (id, provider, kind, amount, shares, status)
		VALUES ($1, $2, $3, $4, 0, 'Pending')`,
		id, provider, kind, amount)
	if err != nil {
		s.log.Warn().Err(err).Str("movement", id).Msg("failed to record movement")
	}
	return id
}

func (s *Service) finishMovement(id, status string, shares int64) {
	if s.db == nil {
		return
	}
	_, err := s.db.Exec("UPDATE pool_db.movements SET status = $1, shares = $2 WHERE id = $3", status, shares, id)
	if err != nil {
		s.log.Warn().Err(err).Str("movement", id).Msg("failed to settle movement")
	}
}

func poolErrorStatus(err error) int {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthorized"):
		return http.StatusForbidden
	case strings.Contains(msg, "insufficient") || strings.Contains(msg, "zero shares") ||
		strings.Contains(msg, "invalid amount"):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		panic(err)
	}
	log := common.NewLogger("pool-service", cfg.LogLevel, cfg.Env)

	database, err := db.Connect(cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := migrations.Run(database, "backend/migrations/pool", log); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	fabric, err := fabricclient.NewClient(
		cfg.Fabric.ConfigPath,
		cfg.Fabric.Channel,
		"liquidity-pool",
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
	r.Handle("/pool/deposits", auth(http.HandlerFunc(svc.DepositHandler))).Methods("POST")
	r.Handle("/pool/withdrawals", auth(http.HandlerFunc(svc.WithdrawHandler))).Methods("POST")
	r.HandleFunc("/pool/stats", svc.StatsHandler).Methods("GET")
	r.HandleFunc("/pool/providers/{id}/shares", svc.ProviderSharesHandler).Methods("GET")
	r.HandleFunc("/pool/history", svc.HistoryHandler).Methods("GET")

	log.Info().Str("port", cfg.Port).Msg("pool service running")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
