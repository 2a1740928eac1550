package handlers

import (
	"errors"
	"net/http"

	"github.com/pafrisco/clinic-booking/internal/directory"
	"github.com/pafrisco/clinic-booking/pkg/logging"
)

// ProviderHandler serves the provider directory and demo login.
type ProviderHandler struct {
	directory *directory.Directory
	logger    *logging.Logger
}

func NewProviderHandler(dir *directory.Directory, logger *logging.Logger) *ProviderHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ProviderHandler{directory: dir, logger: logger}
}

type providerView struct {
	ProviderID string `json:"providerId"`
	Name       string `json:"name"`
	Username   string `json:"username"`
}

// ListProviders handles GET /api/providers.
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers := h.directory.List()
	if len(providers) == 0 {
		jsonError(w, "No providers available", http.StatusNotFound)
		return
	}
	out := make([]providerView, 0, len(providers))
	for _, p := range providers {
		out = append(out, providerView{ProviderID: p.ProviderID, Name: p.Name, Username: p.Username})
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Message  string `json:"message"`
}

// Login handles POST /api/login.
func (h *ProviderHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	p, err := h.directory.Authenticate(req.Username, req.Password)
	if errors.Is(err, directory.ErrInvalidCredentials) {
		h.logger.Info("login rejected", "username", req.Username)
		jsonError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.logger.Error("login failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Name:     p.Name,
		Username: p.Username,
		Role:     "doctor",
		Message:  directory.WelcomeMessage(p.Name),
	})
}
