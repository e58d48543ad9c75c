package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/username/tokentracker/src/logger"
	"github.com/username/tokentracker/src/services"
	"github.com/username/tokentracker/src/utils"
	"golang.org/x/oauth2"
)

const oauthStateCookie = "oauthstate"

// OAuthHandler drives the Google authorization code flow. The callback ends
// with a redirect to the frontend carrying either the token pair or an error.
type OAuthHandler struct {
	auth        services.AuthProvider
	google      *oauth2.Config
	frontendURL string
}

// NewOAuthHandler accepts a nil google config, in which case both routes
// report that Google sign-in is unavailable.
func NewOAuthHandler(auth services.AuthProvider, google *oauth2.Config, frontendURL string) *OAuthHandler {
	return &OAuthHandler{auth: auth, google: google, frontendURL: strings.TrimRight(frontendURL, "/")}
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (h *OAuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		utils.SendJSONError(w, services.MsgGoogleUnavailable, http.StatusServiceUnavailable)
		return
	}
	state, err := generateState()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to generate OAuth state", "error", err)
		utils.SendJSONError(w, services.MsgUnexpected, http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *OAuthHandler) redirect(w http.ResponseWriter, r *http.Request, params url.Values) {
	http.Redirect(w, r, h.frontendURL+"/auth/google/callback?"+params.Encode(), http.StatusTemporaryRedirect)
}

func (h *OAuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	if h.google == nil {
		h.redirect(w, r, url.Values{"error": {services.MsgGoogleUnavailable}})
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || r.FormValue("state") != cookie.Value {
		log.Warn("Invalid OAuth state from Google callback")
		h.redirect(w, r, url.Values{"error": {"invalid_state"}})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/api/auth/google", MaxAge: -1})

	code := r.FormValue("code")
	if code == "" {
		h.redirect(w, r, url.Values{"error": {services.MsgGoogleFailed}})
		return
	}

	res, err := h.auth.SignInWithGoogle(r.Context(), code, sessionMeta(r))
	if err != nil {
		log.Error("Google sign-in failed", "error", err)
	}
	if !res.Success {
		h.redirect(w, r, url.Values{"error": {res.Error}})
		return
	}
	h.redirect(w, r, url.Values{
		"access_token":  {res.AccessToken},
		"refresh_token": {res.RefreshToken},
	})
}
