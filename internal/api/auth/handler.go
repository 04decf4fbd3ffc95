package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pairpad/pairpad/internal/models"
	"github.com/pairpad/pairpad/internal/storage"
)

// Handler handles authentication endpoints.
type Handler struct {
	storage    storage.Storage
	jwtService *JWTService
}

// NewHandler creates a new auth handler.
func NewHandler(store storage.Storage, jwt *JWTService) *Handler {
	return &Handler{
		storage:    store,
		jwtService: jwt,
	}
}

// Response helpers (local to avoid import cycle with api package)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type dataResponse struct {
	Data any `json:"data"`
}

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// Error codes
const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeUnauthorized     = "UNAUTHORIZED"
	errCodeConflict         = "CONFLICT"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeInternalError    = "INTERNAL_ERROR"
)

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the request body for registration.
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// SessionResponse is returned on successful login or registration.
type SessionResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	User        *models.User `json:"user"`
}

// Login handles user login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "username and password required")
		return
	}

	ctx := r.Context()
	user, err := h.storage.Users().GetByUsername(ctx, req.Username)
	if err != nil {
		log.Printf("login error: get user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if user == nil {
		log.Printf("login failed: user %s not found", req.Username)
		jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Printf("login failed: invalid password for user %s", req.Username)
		jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid credentials")
		return
	}

	h.issueSession(w, http.StatusOK, user)
}

// Register handles account creation.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "username and password required")
		return
	}

	if err := ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()
	existing, err := h.storage.Users().GetByUsername(ctx, req.Username)
	if err != nil {
		log.Printf("register error: check user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if existing != nil {
		jsonError(w, http.StatusConflict, errCodeConflict, "username already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("register error: hash password: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	user := models.NewUser(req.Username, req.DisplayName)
	user.ID = uuid.New().String()
	user.PasswordHash = string(hash)
	user.CreatedAt = time.Now()

	if err := h.storage.Users().Create(ctx, user); err != nil {
		log.Printf("register error: create user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("registered user %s", user.Username)
	h.issueSession(w, http.StatusCreated, user)
}

func (h *Handler) issueSession(w http.ResponseWriter, status int, user *models.User) {
	accessToken, err := h.jwtService.GenerateToken(user)
	if err != nil {
		log.Printf("auth error: generate access token: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonData(w, status, SessionResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   h.jwtService.TTLSeconds(),
		User:        user,
	})
}
