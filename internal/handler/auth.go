package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/authkeep/authkeep-go/internal/middleware"
	"github.com/authkeep/authkeep-go/internal/model"
	"github.com/authkeep/authkeep-go/internal/service"
)

// AuthObserver counts auth outcomes.
type AuthObserver interface {
	ObserveAuth(operation, outcome string)
}

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	service *service.AuthService
	obs     AuthObserver
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, obs AuthObserver, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, obs: obs, logger: logger}
}

// HandleRegister handles POST /api/v1/auth/register requests.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.obs.ObserveAuth("register", service.KindBadRequest.String())
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "register", err)
		return
	}

	h.obs.ObserveAuth("register", "ok")
	writeJSON(w, http.StatusCreated, resp)
}

// HandleLogin handles POST /api/v1/auth/login requests.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.obs.ObserveAuth("login", service.KindBadRequest.String())
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "login", err)
		return
	}

	h.obs.ObserveAuth("login", "ok")
	writeJSON(w, http.StatusOK, resp)
}

// HandleValidateEmail handles GET /api/v1/auth/validate-email/{token} requests.
func (h *AuthHandler) HandleValidateEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := h.service.ConfirmEmail(r.Context(), token); err != nil {
		h.writeServiceError(w, r, "confirm_email", err)
		return
	}

	h.obs.ObserveAuth("confirm_email", "ok")
	writeJSON(w, http.StatusOK, messageResponse("email validated"))
}

// HandleMe handles GET /api/v1/auth/me requests.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	resp, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, "me", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) writeServiceError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	kind := service.KindOf(err)
	h.obs.ObserveAuth(operation, kind.String())

	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "auth operation failed", "operation", operation, "error", err)
		writeJSON(w, status, errorResponse("internal server error"))
		return
	}
	writeJSON(w, status, errorResponse(err.Error()))
}

func statusForKind(k service.Kind) int {
	switch k {
	case service.KindBadRequest, service.KindInvalidCredentials:
		return http.StatusBadRequest
	case service.KindConflict:
		return http.StatusConflict
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Routes returns the auth router, to be mounted at /api/v1/auth. requireAuth
// guards the routes that need a session token.
func (h *AuthHandler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.Get("/validate-email/{token}", h.HandleValidateEmail)
	r.With(requireAuth).Get("/me", h.HandleMe)
	return r
}
