// HTTP handlers exposing the sync subsystem to the local UI.
package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/models"
	"github.com/linkstash/linkstash/internal/netmon"
	"github.com/linkstash/linkstash/internal/store"
	syncpkg "github.com/linkstash/linkstash/internal/sync"
)

type server struct {
	engine  *syncpkg.Engine
	store   *store.Store
	monitor *netmon.Monitor
	log     *slog.Logger
}

func (s *server) routes(mux *http.ServeMux, hub *WSHub) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/items", s.handleListItems)
	mux.HandleFunc("POST /api/items", s.handleCreateItem)
	mux.HandleFunc("PATCH /api/items/{id}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /api/items/{id}", s.handleDeleteItem)
	mux.HandleFunc("POST /api/archive", s.handleArchive)
	mux.HandleFunc("POST /api/sync", s.handleFullSync)
	mux.HandleFunc("GET /api/queue", s.handleListQueue)
	mux.HandleFunc("POST /api/offline", s.handleSetOffline)
	mux.Handle("GET /ws", HandleWebSocket(hub))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses. Remote errors
// never reach here for mutations; they degrade to queued optimistic
// results inside the engine.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.ErrValidation:
		status = http.StatusBadRequest
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{
		"code":  string(apperrors.CodeOf(err)),
		"error": err.Error(),
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "linkstash"})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var lastSync *int64
	if t := s.engine.LastSync(); t != nil {
		sec := t.Unix()
		lastSync = &sec
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"online":    s.monitor.IsOnline(),
		"status":    s.engine.Status(),
		"pending":   s.engine.PendingChanges(),
		"last_sync": lastSync,
	})
}

func (s *server) handleListItems(w http.ResponseWriter, r *http.Request) {
	status := models.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = models.StatusActive
	}
	if !status.Valid() {
		writeError(w, apperrors.Newf(apperrors.ErrValidation, "invalid status: %s", status))
		return
	}
	items, err := s.store.ListByStatus(status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var fields models.Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrValidation, "invalid request body", err))
		return
	}
	item, err := s.engine.Create(r.Context(), fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var fields models.Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrValidation, "invalid request body", err))
		return
	}
	item, err := s.engine.Update(r.Context(), r.PathValue("id"), fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleArchive(w http.ResponseWriter, r *http.Request) {
	weekKey, err := s.engine.ArchiveWeek(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"week_of": weekKey})
}

func (s *server) handleFullSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.FullSync(r.Context())
	if err != nil {
		// Report partial progress alongside the failure.
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"synced": result.Synced,
			"failed": result.Failed,
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type queueEntry struct {
	QueueID   int64         `json:"queue_id"`
	Type      models.OpType `json:"type"`
	Target    string        `json:"target,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

func (s *server) handleListQueue(w http.ResponseWriter, r *http.Request) {
	ops, err := s.store.ListQueue()
	if err != nil {
		writeError(w, err)
		return
	}
	entries := make([]queueEntry, 0, len(ops))
	for _, op := range ops {
		entry := queueEntry{QueueID: op.QueueID, Type: op.Type, Timestamp: op.Timestamp}
		switch op.Type {
		case models.OpCreate:
			entry.Target = op.Create.TempID
		case models.OpArchive:
			entry.Target = op.Archive.WeekKey
		default:
			entry.Target = op.TargetID()
		}
		entries = append(entries, entry)
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleSetOffline toggles the forced-offline switch. Going back online
// triggers a drain via the monitor's transition callback.
func (s *server) handleSetOffline(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Offline bool `json:"offline"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrValidation, "invalid request body", err))
		return
	}
	s.monitor.SetOnline(!body.Offline)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"online": s.monitor.IsOnline(),
		"at":     time.Now().Unix(),
	})
}
