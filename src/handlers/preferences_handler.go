package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/username/tokentracker/src/logger"
	"github.com/username/tokentracker/src/models"
	"github.com/username/tokentracker/src/services"
	"github.com/username/tokentracker/src/utils"
)

// PreferencesHandler serves the favorites list and the theme choice.
type PreferencesHandler struct {
	favorites *services.FavoritesService
	themes    *services.ThemeService
}

func NewPreferencesHandler(favorites *services.FavoritesService, themes *services.ThemeService) *PreferencesHandler {
	return &PreferencesHandler{favorites: favorites, themes: themes}
}

type favoritesResponse struct {
	Favorites []string `json:"favorites"`
}

func coinIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	coinID := strings.TrimSpace(chi.URLParam(r, "coinID"))
	if coinID == "" {
		utils.SendJSONError(w, "coin id is required", http.StatusBadRequest)
		return "", false
	}
	return coinID, true
}

func (h *PreferencesHandler) HandleListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	utils.SendJSON(w, favoritesResponse{Favorites: h.favorites.List(r.Context(), userID)}, http.StatusOK)
}

func (h *PreferencesHandler) HandleAddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	coinID, ok := coinIDParam(w, r)
	if !ok {
		return
	}
	favs, err := h.favorites.Add(r.Context(), userID, coinID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Error saving favorites", "coinID", coinID, "error", err)
		utils.SendJSONError(w, "Failed to save favorites", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, favoritesResponse{Favorites: favs}, http.StatusOK)
}

func (h *PreferencesHandler) HandleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	coinID, ok := coinIDParam(w, r)
	if !ok {
		return
	}
	favs, err := h.favorites.Remove(r.Context(), userID, coinID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Error saving favorites", "coinID", coinID, "error", err)
		utils.SendJSONError(w, "Failed to save favorites", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, favoritesResponse{Favorites: favs}, http.StatusOK)
}

func (h *PreferencesHandler) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	coinID, ok := coinIDParam(w, r)
	if !ok {
		return
	}
	isFavorite, err := h.favorites.Toggle(r.Context(), userID, coinID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Error saving favorites", "coinID", coinID, "error", err)
		utils.SendJSONError(w, "Failed to save favorites", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]interface{}{"coin_id": coinID, "favorite": isFavorite}, http.StatusOK)
}

// systemDark reads the device appearance the client reports with ?systemDark=.
func systemDark(r *http.Request) bool {
	dark, _ := strconv.ParseBool(r.URL.Query().Get("systemDark"))
	return dark
}

func (h *PreferencesHandler) HandleGetTheme(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	theme := h.themes.Get(r.Context(), userID)
	utils.SendJSON(w, services.ResolveTheme(theme, systemDark(r)), http.StatusOK)
}

func (h *PreferencesHandler) HandleSetTheme(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body struct {
		Theme models.Theme `json:"theme"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.themes.Set(r.Context(), userID, body.Theme); err != nil {
		if errors.Is(err, services.ErrUnknownTheme) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.FromContext(r.Context()).Error("Error saving theme", "error", err)
		utils.SendJSONError(w, "Failed to save theme", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, services.ResolveTheme(body.Theme, systemDark(r)), http.StatusOK)
}

func (h *PreferencesHandler) HandleToggleTheme(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	dark := systemDark(r)
	theme, err := h.themes.Toggle(r.Context(), userID, dark)
	if err != nil {
		logger.FromContext(r.Context()).Error("Error saving theme", "error", err)
		utils.SendJSONError(w, "Failed to save theme", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, services.ResolveTheme(theme, dark), http.StatusOK)
}
