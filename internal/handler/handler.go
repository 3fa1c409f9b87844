package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Dan9191/finance-tracker/internal/export"
	"github.com/Dan9191/finance-tracker/internal/middleware"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/service"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc    *service.Service
	auth   *service.AuthService
	health Pinger
	log    *logrus.Logger
	now    func() time.Time
}

func NewHandler(svc *service.Service, auth *service.AuthService, health Pinger, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, auth: auth, health: health, log: log, now: time.Now}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Router registers every route and wraps them with access logging and CORS
func (h *Handler) Router(allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Public routes
	r.HandleFunc("/", h.Root).Methods("GET")
	r.HandleFunc("/healthz", h.Health).Methods("GET")
	r.HandleFunc("/api/auth/register", h.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", h.Login).Methods("POST")

	// Protected routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(h.auth, h.log))
	api.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	api.HandleFunc("/transactions", h.CreateTransaction).Methods("POST")
	api.HandleFunc("/transactions", h.DeleteAllTransactions).Methods("DELETE")
	api.HandleFunc("/transactions/export", h.ExportTransactions).Methods("GET")
	api.HandleFunc("/transactions/{id}", h.DeleteTransaction).Methods("DELETE")
	api.HandleFunc("/summary", h.Summary).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.ExposedHeaders([]string{"Content-Disposition", "X-Request-ID"}),
	)
	return middleware.RequestLogger(h.log)(cors(r))
}

// Root answers liveness probes from browsers and load balancers
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Expense Tracker API Running"))
}

// Health checks store connectivity
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			h.log.WithError(err).Warn("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !h.decode(w, r, &req) {
		return
	}
	user, token, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !h.decode(w, r, &req) {
		return
	}
	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// ListTransactions returns the caller's transactions, optionally for one month
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, month, ok := h.ownerAndMonth(w, r)
	if !ok {
		return
	}
	txs, err := h.svc.ListMonth(r.Context(), owner, month)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// CreateTransaction stores a new transaction owned by the caller
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.UserID(r.Context())
	var in models.TransactionInput
	if !h.decode(w, r, &in) {
		return
	}
	tx, err := h.svc.Create(r.Context(), owner, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// DeleteTransaction removes one of the caller's transactions
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.UserID(r.Context())
	if err := h.svc.Delete(r.Context(), owner, mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Transaction deleted successfully")
}

// DeleteAllTransactions removes every transaction of the caller
func (h *Handler) DeleteAllTransactions(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.UserID(r.Context())
	n, err := h.svc.DeleteAll(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "All transactions deleted successfully",
		"deleted": n,
	})
}

// Summary returns totals, the category breakdown and monthly figures
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	owner, month, ok := h.ownerAndMonth(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.Summary(r.Context(), owner, month)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ExportTransactions streams the caller's transactions as csv, xlsx or xml
func (h *Handler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	owner, month, ok := h.ownerAndMonth(w, r)
	if !ok {
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := h.svc.ListMonth(r.Context(), owner, month)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Encode fully before writing headers so a failure can still become a 500.
	var buf bytes.Buffer
	if err := export.Write(&buf, format, txs); err != nil {
		h.log.WithError(err).WithField("format", format).Error("Failed to export transactions")
		writeMessage(w, http.StatusInternalServerError, "Failed to export transactions")
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(h.now())+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) ownerAndMonth(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	owner, ok := middleware.UserID(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return "", "", false
	}
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if month != "" && !service.ValidMonth(month) {
		writeMessage(w, http.StatusBadRequest, "month must be formatted YYYY-MM")
		return "", "", false
	}
	return owner, month, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeMessage(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, service.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Transaction not found or not yours")
	case errors.Is(err, service.ErrUnauthenticated):
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrEmailTaken):
		writeMessage(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, service.ErrUnavailable):
		writeMessage(w, http.StatusServiceUnavailable, "Service unavailable")
	default:
		h.log.WithError(err).Error("Unhandled error")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
