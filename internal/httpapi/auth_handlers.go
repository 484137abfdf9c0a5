package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"bazara.org/internal/auth"
	"bazara.org/internal/fault"
	"bazara.org/internal/ids"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
	Actor any    `json:"actor"`
}

// handleRegister creates an account. Self-service registration mints OWNER
// and CUSTOMER accounts; ADMIN and VENDOR exist only through store
// assignments, so those roles are rejected here.
func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "valid email is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "role must be owner or customer")
		return
	}
	if role != auth.RoleOwner && role != auth.RoleCustomer {
		writeError(w, http.StatusBadRequest, "role must be owner or customer")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		handleFault(w, err)
		return
	}
	actor := &auth.Actor{
		ID:           ids.New(),
		Email:        req.Email,
		Role:         role,
		PasswordHash: hash,
		Active:       true,
	}
	if err := a.cfg.Actors.CreateActor(r.Context(), actor); err != nil {
		if errors.Is(err, fault.ErrConflict) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		handleFault(w, err)
		return
	}

	token, err := a.cfg.Signer.Generate(actor.ID, actor.Role, a.cfg.SessionTTL)
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, Actor: actor})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	actor, err := a.cfg.Actors.FindByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		// Same answer for unknown email and bad password.
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := auth.VerifyPassword(actor.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !actor.Active {
		writeError(w, http.StatusForbidden, "account disabled")
		return
	}
	token, err := a.cfg.Signer.Generate(actor.ID, actor.Role, a.cfg.SessionTTL)
	if err != nil {
		handleFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, Actor: actor})
}
