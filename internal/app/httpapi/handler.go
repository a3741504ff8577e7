// Package httpapi exposes the intake REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	app "github.com/jessiesmp/intake/internal/app"
	"github.com/jessiesmp/intake/internal/app/domain/application"
	"github.com/jessiesmp/intake/internal/app/domain/notification"
	"github.com/jessiesmp/intake/internal/app/domain/role"
	"github.com/jessiesmp/intake/internal/app/services/applications"
	"github.com/jessiesmp/intake/internal/app/services/permissions"
	"github.com/jessiesmp/intake/internal/app/storage"
)

// maxBodyBytes bounds request bodies; the form payloads are small.
const maxBodyBytes = 1 << 20

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/application/submit", h.submit)
	mux.HandleFunc("/application/status", h.status)
	mux.HandleFunc("/admin/give-role", h.giveRole)
	mux.HandleFunc("/notifications/mark-read", h.markRead)
	mux.HandleFunc("/notifications/", h.notifications)
	mux.HandleFunc("/healthz", h.health)
	return mux
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		UserID     string `json:"userId"`
		Nickname   string `json:"nickname"`
		Age        string `json:"age"`
		Experience string `json:"experience"`
		Playstyle  string `json:"playstyle"`
		Telegram   string `json:"telegram"`
		About      string `json:"about"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeFailure(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Applications.Submit(r.Context(), payload.UserID, application.Payload{
		Nickname:   payload.Nickname,
		Age:        payload.Age,
		Experience: payload.Experience,
		Playstyle:  payload.Playstyle,
		Contact:    payload.Telegram,
		About:      payload.About,
	})
	if err != nil {
		if errors.Is(err, applications.ErrDuplicateApplication) {
			writeFailure(w, http.StatusConflict, err)
			return
		}
		writeFailure(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"applicationId": created.ID,
	})
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		UserID string `json:"userId"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	found, err := h.app.Applications.StatusOf(r.Context(), payload.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"status": false})
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      true,
		"application": found,
	})
}

func (h *handler) giveRole(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Username      string `json:"username"`
		Role          string `json:"role"`
		AdminUsername string `json:"adminUsername"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeFailure(w, http.StatusBadRequest, err)
		return
	}

	granted, err := role.Parse(payload.Role)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err)
		return
	}

	if err := h.app.Roles.Assign(r.Context(), payload.AdminUsername, payload.Username, granted); err != nil {
		if errors.Is(err, permissions.ErrForbidden) {
			writeFailure(w, http.StatusForbidden, err)
			return
		}
		writeFailure(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *handler) notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/notifications"), "/")
	if userID == "" || strings.Contains(userID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	feed, err := h.app.Notifications.ListFor(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if feed == nil {
		feed = []notification.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": feed})
}

func (h *handler) markRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		NotificationID string `json:"notificationId"`
		UserID         string `json:"userId"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.app.Notifications.MarkRead(r.Context(), payload.NotificationID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
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

// writeFailure is writeError in the {success:false, error} envelope the form
// client expects from the submit and give-role endpoints.
func writeFailure(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": err.Error()})
}
