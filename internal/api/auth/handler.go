package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Vasu1712/algonomic-backend/internal/api/respond"
	"github.com/Vasu1712/algonomic-backend/internal/apperr"
	"github.com/Vasu1712/algonomic-backend/internal/middleware"
	"github.com/Vasu1712/algonomic-backend/internal/models"
)

// Accounts is the account service behind the handlers.
type Accounts interface {
	SignUp(ctx context.Context, email, password string) (models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
}

// AuthHandler serves sign-up, login and the protected endpoint.
type AuthHandler struct {
	Accounts Accounts
	Log      logrus.FieldLogger
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func decodeCredentials(r *http.Request) (credentials, error) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return credentials{}, apperr.New(apperr.CodeInvalidInput, "Invalid request body")
	}
	return req, nil
}

// SignUp handles POST /api/signup.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if _, err := h.Accounts.SignUp(r.Context(), req.Email, req.Password); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	token, err := h.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"token": token})
}

// Protected handles GET /api/protected behind RequireAuth.
func (h *AuthHandler) Protected(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, respond.ErrorBody{Error: "No token"})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "You are authenticated",
		"user":    id,
	})
}
