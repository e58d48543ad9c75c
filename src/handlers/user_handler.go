package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/tokentracker/src/logger"
	"github.com/username/tokentracker/src/models"
	"github.com/username/tokentracker/src/security/validation"
	"github.com/username/tokentracker/src/services"
	"github.com/username/tokentracker/src/utils"
)

type UserHandler struct {
	auth services.AuthProvider
}

func NewUserHandler(auth services.AuthProvider) *UserHandler {
	return &UserHandler{auth: auth}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sendAuthResult writes res with status on success and failStatus otherwise.
// Internal errors are logged and always answered with 500.
func sendAuthResult(w http.ResponseWriter, r *http.Request, res models.AuthResult, err error, status, failStatus int) {
	if err != nil {
		logger.FromContext(r.Context()).Error("Auth operation failed", "path", r.URL.Path, "error", err)
		utils.SendJSON(w, res, http.StatusInternalServerError)
		return
	}
	if !res.Success {
		utils.SendJSON(w, res, failStatus)
		return
	}
	utils.SendJSON(w, res, status)
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		logger.FromContext(r.Context()).Debug("Invalid auth request body", "error", err)
		utils.SendJSON(w, models.AuthResult{Error: "Invalid request body"}, http.StatusBadRequest)
		return c, false
	}
	c.Email = validation.StripUnprintable(c.Email)
	return c, true
}

func (h *UserHandler) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	res, err := h.auth.SignUp(r.Context(), c.Email, c.Password, sessionMeta(r))
	failStatus := http.StatusBadRequest
	if res.Error == services.MsgEmailInUse {
		failStatus = http.StatusConflict
	}
	sendAuthResult(w, r, res, err, http.StatusCreated, failStatus)
}

func (h *UserHandler) SignInHandler(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	res, err := h.auth.SignIn(r.Context(), c.Email, c.Password, sessionMeta(r))
	sendAuthResult(w, r, res, err, http.StatusOK, http.StatusUnauthorized)
}

func (h *UserHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSON(w, models.AuthResult{Error: "Invalid request body"}, http.StatusBadRequest)
		return
	}
	res, err := h.auth.Refresh(r.Context(), body.RefreshToken, sessionMeta(r))
	sendAuthResult(w, r, res, err, http.StatusOK, http.StatusUnauthorized)
}

// SignOutHandler is mounted behind AuthMiddleware, so the token is known to
// belong to a live session.
func (h *UserHandler) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	res := h.auth.SignOut(r.Context(), bearerToken(r))
	sendAuthResult(w, r, res, nil, http.StatusOK, http.StatusInternalServerError)
}
