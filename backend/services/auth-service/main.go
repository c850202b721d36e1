package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/trustup-app/trustup/backend/pkg/common"
	"github.com/trustup-app/trustup/backend/pkg/common/api"
	"github.com/trustup-app/trustup/backend/pkg/common/db"
	"github.com/trustup-app/trustup/backend/pkg/common/migrations"
	"github.com/trustup-app/trustup/backend/services/auth-service/models"
)

const tokenTTL = 24 * time.Hour

type Service struct {
	db       *sql.DB
	secret   []byte
	validate *validator.Validate
	log      zerolog.Logger
}

func (s *Service) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	traceID := common.GetRequestID(r.Context())

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", traceID)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), traceID)
		return
	}
	if req.Role == "" {
		req.Role = "borrower"
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to hash password", traceID)
		return
	}

	userID := "user-" + uuid.NewString()
	_, err = s.db.Exec(`
		INSERT INTO auth_db.users (id, username, password_hash, full_name, email, role, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		userID, req.Username, string(hashedPassword), req.FullName, req.Email, req.Role, "ACTIVE")
	if err != nil {
		s.log.Warn().Err(err).Str("username", req.Username).Msg("registration failed")
		api.WriteError(w, http.StatusConflict, "user_exists", "Username or email already exists", traceID)
		return
	}

	s.log.Info().Str("user_id", userID).Str("role", req.Role).Msg("user registered")
	api.WriteSuccess(w, http.StatusCreated, map[string]string{"user_id": userID, "status": "created"})
}

func (s *Service) LoginHandler(w http.ResponseWriter, r *http.Request) {
	traceID := common.GetRequestID(r.Context())

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", traceID)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), traceID)
		return
	}

	var user models.User
	err := s.db.QueryRow(`
		SELECT id, password_hash, role, status
		FROM auth_db.users WHERE username = $1`, req.Username).
		Scan(&user.ID, &user.PasswordHash, &user.Role, &user.Status)
	if err == sql.ErrNoRows {
		api.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password", traceID)
		return
	} else if err != nil {
		s.log.Error().Err(err).Msg("user lookup failed")
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Database error", traceID)
		return
	}

	if user.Status != "ACTIVE" {
		api.WriteError(w, http.StatusForbidden, "account_inactive", "Account is not active", traceID)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		api.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password", traceID)
		return
	}

	go func() {
		s.db.Exec("UPDATE auth_db.users SET last_login_at = $1 WHERE id = $2", time.Now(), user.ID)
	}()

	token, expiresAt, err := s.issueToken(user.ID, req.Username, user.Role)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to generate token", traceID)
		return
	}
	api.WriteSuccess(w, http.StatusOK, models.TokenResponse{Token: token, ExpiresAt: expiresAt})
}

func (s *Service) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	traceID := common.GetRequestID(r.Context())

	claims, ok := s.parseToken(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token", traceID)
		return
	}

	token, expiresAt, err := s.issueToken(claims.UserID, claims.Username, claims.Role)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to refresh token", traceID)
		return
	}
	api.WriteSuccess(w, http.StatusOK, models.TokenResponse{Token: token, ExpiresAt: expiresAt})
}

func (s *Service) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	traceID := common.GetRequestID(r.Context())

	claims, ok := s.parseToken(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token", traceID)
		return
	}

	api.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"valid":    true,
		"user_id":  claims.UserID,
		"username": claims.Username,
		"role":     claims.Role,
	})
}

func (s *Service) issueToken(userID, username, role string) (string, int64, error) {
	expirationTime := time.Now().Add(tokenTTL)
	claims := &models.Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			Issuer:    "trustup-auth-service",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, expirationTime.Unix(), nil
}

func (s *Service) parseToken(r *http.Request) (*models.Claims, bool) {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		return nil, false
	}
	parts := strings.SplitN(tokenString, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		tokenString = parts[1]
	}

	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	return claims, true
}

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		panic(err)
	}
	log := common.NewLogger("auth-service", cfg.LogLevel, cfg.Env)

	database, err := db.Connect(cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := migrations.Run(database, "backend/migrations/auth", log); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	svc := &Service{
		db:       database,
		secret:   []byte(cfg.JWTSecret),
		validate: validator.New(),
		log:      log,
	}

	r := mux.NewRouter()
	r.Use(common.RequestID)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	r.HandleFunc("/auth/register", svc.RegisterHandler).Methods("POST")
	r.HandleFunc("/auth/login", svc.LoginHandler).Methods("POST")
	r.HandleFunc("/auth/refresh", svc.RefreshHandler).Methods("POST")
	r.HandleFunc("/auth/verify", svc.VerifyHandler).Methods("GET")

	log.Info().Str("port", cfg.Port).Msg("auth service running")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
