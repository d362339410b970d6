package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	app "github.com/quest4deals/quest4deals/internal/app"
	"github.com/quest4deals/quest4deals/internal/app/domain/game"
	"github.com/quest4deals/quest4deals/internal/app/domain/watchlist"
	"github.com/quest4deals/quest4deals/internal/app/services/users"
	"github.com/quest4deals/quest4deals/internal/app/storage"
	"github.com/quest4deals/quest4deals/internal/app/metrics"
	"github.com/quest4deals/quest4deals/internal/nexarda"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", h.health)

	mux.HandleFunc("/auth/register", h.register)
	mux.HandleFunc("/auth/login", h.login)
	mux.HandleFunc("/auth/password-reset/request", h.passwordResetRequest)
	mux.HandleFunc("/auth/password-reset/confirm", h.passwordResetConfirm)
	mux.Handle("/auth/me", h.requireAuth(http.HandlerFunc(h.me)))

	mux.HandleFunc("/games", h.games)
	mux.HandleFunc("/games/", h.gameResource)
	mux.HandleFunc("/price-history", h.recordPrice)
	mux.HandleFunc("/price-history/", h.priceHistory)

	mux.Handle("/watchlist", h.requireAuth(http.HandlerFunc(h.watchlistCollection)))
	mux.Handle("/watchlist/", h.requireAuth(http.HandlerFunc(h.watchlistResource)))

	mux.HandleFunc("/nexarda/", h.nexardaProxy)

	return mux
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, err := h.app.Users.Register(r.Context(), payload.Email, payload.DisplayName, payload.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	token, u, err := h.app.Users.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": u})
}

func (h *handler) passwordResetRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if _, err := h.app.Users.RequestPasswordReset(r.Context(), payload.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *handler) passwordResetConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.app.Users.ResetPassword(r.Context(), payload.Token, payload.Password); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	switch r.Method {
	case http.MethodGet:
		u, err := h.app.Users.Get(r.Context(), userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)

	case http.MethodPatch:
		var payload struct {
			DisplayName *string `json:"display_name"`
			Email       *string `json:"email"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		u, err := h.app.Users.UpdateProfile(r.Context(), userID, payload.DisplayName, payload.Email)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)

	case http.MethodDelete:
		if err := h.app.Users.Delete(r.Context(), userID); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) games(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			ExternalID string  `json:"external_id"`
			Title      string  `json:"title"`
			Genre      string  `json:"genre"`
			Platform   string  `json:"platform"`
			Price      float64 `json:"price"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		created, err := h.app.Games.Create(r.Context(), game.Game{
			ExternalID:   payload.ExternalID,
			Title:        payload.Title,
			Genre:        payload.Genre,
			Platform:     payload.Platform,
			CurrentPrice: payload.Price,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		list, err := h.app.Games.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) gameResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/games"), "/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		g, err := h.app.Games.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)

	case http.MethodPatch:
		var payload struct {
			Title    *string  `json:"title"`
			Genre    *string  `json:"genre"`
			Platform *string  `json:"platform"`
			Price    *float64 `json:"price"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		g, err := h.app.Games.Update(r.Context(), id, payload.Title, payload.Genre, payload.Platform, payload.Price)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)

	case http.MethodDelete:
		if err := h.app.Games.Delete(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// recordPrice accepts a manually observed price and runs it through the
// tracking pipeline, including watchlist evaluation.
func (h *handler) recordPrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		GameID string  `json:"game_id"`
		Price  float64 `json:"price"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.app.Tracker.Record(r.Context(), payload.GameID, payload.Price)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) priceHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/price-history"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	gameID := parts[0]

	if len(parts) == 1 {
		records, err := h.app.Pricing.History(r.Context(), gameID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
		return
	}

	switch parts[1] {
	case "latest":
		rec, err := h.app.Pricing.Latest(r.Context(), gameID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case "stats":
		stats, err := h.app.Pricing.Stats(r.Context(), gameID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) watchlistCollection(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	switch r.Method {
	case http.MethodPost:
		var payload struct {
			GameID string                  `json:"game_id"`
			Notify *watchlist.Notification `json:"notify"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		entry, err := h.app.Watchlist.Add(r.Context(), userID, payload.GameID, payload.Notify)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)

	case http.MethodGet:
		entries, err := h.app.Watchlist.ListByUser(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) watchlistResource(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	entryID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/watchlist"), "/")
	if entryID == "" || strings.Contains(entryID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		entry, err := h.app.Watchlist.Get(r.Context(), userID, entryID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)

	case http.MethodPatch:
		var payload struct {
			Enabled *bool                   `json:"enabled"`
			Notify  *watchlist.Notification `json:"notify"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		entry, err := h.app.Watchlist.UpdateSettings(r.Context(), userID, entryID, payload.Enabled, payload.Notify)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)

	case http.MethodDelete:
		if err := h.app.Watchlist.Remove(r.Context(), userID, entryID); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) nexardaProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.app.Nexarda == nil {
		writeError(w, http.StatusNotImplemented, fmt.Errorf("price aggregator not configured"))
		return
	}

	endpoint := strings.Trim(strings.TrimPrefix(r.URL.Path, "/nexarda"), "/")
	switch endpoint {
	case "games":
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		resp, err := h.app.Nexarda.Games(r.Context(), page)
		h.proxyRespond(w, "games", resp, err)

	case "search":
		resp, err := h.app.Nexarda.Search(r.Context(), r.URL.Query().Get("q"))
		h.proxyRespond(w, "search", resp, err)

	case "product":
		resp, err := h.app.Nexarda.Product(r.Context(), r.URL.Query().Get("id"))
		h.proxyRespond(w, "product", resp, err)

	case "prices":
		id := r.URL.Query().Get("id")
		resp, err := h.app.Nexarda.Prices(r.Context(), id)
		if err == nil {
			// A successful price lookup doubles as an observation: record
			// changes and fire alerts before responding.
			if _, obsErr := h.app.Tracker.Observe(r.Context(), id); obsErr != nil {
				writeServiceError(w, obsErr)
				metrics.RecordUpstreamRequest("prices", false)
				return
			}
		}
		h.proxyRespond(w, "prices", resp, err)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) proxyRespond(w http.ResponseWriter, endpoint string, data any, err error) {
	if err != nil {
		metrics.RecordUpstreamRequest(endpoint, false)
		writeServiceError(w, err)
		return
	}
	metrics.RecordUpstreamRequest(endpoint, true)
	writeJSON(w, http.StatusOK, data)
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// writeServiceError maps service errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case storage.IsNotFound(err):
		writeError(w, http.StatusNotFound, err)
	case storage.IsDuplicate(err):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, users.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, nexarda.ErrUpstream):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}
