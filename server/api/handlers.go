// Package api implements the REST handlers that drive the task store and the
// reminder lifecycle manager.
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/nudgeapp/nudge/events"
	"github.com/nudgeapp/nudge/notify"
	"github.com/nudgeapp/nudge/task"
)

// Tapper dispatches a simulated user tap on a delivered reminder to the
// platform's tap observers.
type Tapper interface {
	Tap(reminderID string)
}

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Tasks     task.Store
	Reminders *notify.Manager
	Bus       events.Bus
	Tap       Tapper
	Logger    *slog.Logger
	Version   string

	// DisplayName is the name greeted in reminder titles.
	DisplayName string
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tasks", h.listTasks)
	mux.HandleFunc("POST /api/tasks", h.createTask)
	mux.HandleFunc("GET /api/tasks/{id}", h.getTask)
	mux.HandleFunc("PATCH /api/tasks/{id}", h.updateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", h.deleteTask)
	mux.HandleFunc("POST /api/tasks/{id}/done", h.completeTask)

	mux.HandleFunc("GET /api/reminders", h.listReminders)
	mux.HandleFunc("DELETE /api/reminders", h.cancelAllReminders)
	mux.HandleFunc("DELETE /api/reminders/{id}", h.cancelReminder)
	mux.HandleFunc("POST /api/reminders/{id}/tap", h.tapReminder)

	mux.HandleFunc("GET /api/events", h.listEvents)

	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("GET /api/version", h.version)
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Task handlers ---

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := task.Filter{}

	if d := q.Get("done"); d != "" {
		done := d == "true" || d == "1"
		filter.Done = &done
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			filter.Limit = n
		}
	}
	if o := q.Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil {
			filter.Offset = n
		}
	}

	tasks, err := h.Tasks.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// taskRequest is a task payload plus the optional display name used for the
// reminder title.
type taskRequest struct {
	task.Task
	DisplayName string `json:"display_name,omitempty"`
}

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	id, err := h.Tasks.Create(&req.Task)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	req.ID = id

	h.syncReminder(r, &req.Task, req.DisplayName)
	writeJSON(w, http.StatusCreated, req.Task)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := h.Tasks.Get(id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.Tasks.Get(id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read request body: "+err.Error())
		return
	}

	// Decode partial update over existing task
	if err := json.Unmarshal(body, existing); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	existing.ID = id // ensure ID is not overwritten

	var extra struct {
		DisplayName string `json:"display_name"`
	}
	_ = json.Unmarshal(body, &extra)

	if err := h.Tasks.Update(existing); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.syncReminder(r, existing, extra.DisplayName)
	writeJSON(w, http.StatusOK, existing)
}

func (h *Handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Tasks.Delete(id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Reminders.CancelForTask(r.Context(), id)
	h.publish(events.Event{Type: events.TypeCanceled, TaskID: id})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) completeTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := h.Tasks.Get(id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	t.Done = true
	if err := h.Tasks.Update(t); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Reminders.CancelForTask(r.Context(), id)
	h.publish(events.Event{Type: events.TypeCanceled, TaskID: id, TaskTitle: t.Title})
	writeJSON(w, http.StatusOK, t)
}

// syncReminder brings the task's reminder in line with its current due state.
// Reminder failures never fail the task request; the manager logs them.
func (h *Handlers) syncReminder(r *http.Request, t *task.Task, displayName string) {
	ctx := r.Context()
	if t.Done || !t.HasDue() {
		h.Reminders.CancelForTask(ctx, t.ID)
		return
	}
	if displayName == "" {
		displayName = h.DisplayName
	}
	reminderID, err := h.Reminders.Schedule(ctx, t, displayName)
	if err != nil || reminderID == "" {
		return
	}
	h.publish(events.Event{
		Type:       events.TypeScheduled,
		TaskID:     t.ID,
		TaskTitle:  t.Title,
		ReminderID: reminderID,
	})
}

// --- Reminder handlers ---

func (h *Handlers) listReminders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Reminders.ListScheduled(r.Context()))
}

func (h *Handlers) cancelAllReminders(w http.ResponseWriter, r *http.Request) {
	h.Reminders.CancelAll(r.Context())
	h.publish(events.Event{Type: events.TypeCanceled})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) cancelReminder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.Reminders.CancelOne(r.Context(), id)
	h.publish(events.Event{Type: events.TypeCanceled, ReminderID: id})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) tapReminder(w http.ResponseWriter, r *http.Request) {
	if h.Tap == nil {
		writeError(w, http.StatusNotImplemented, "tap dispatch not supported by this platform")
		return
	}
	h.Tap.Tap(r.PathValue("id"))
	w.WriteHeader(http.StatusAccepted)
}

// --- Event handlers ---

func (h *Handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			limit = n
		}
	}
	evs := h.Bus.History(limit)
	if evs == nil {
		evs = []events.Event{}
	}
	writeJSON(w, http.StatusOK, evs)
}

func (h *Handlers) publish(ev events.Event) {
	if h.Bus != nil {
		h.Bus.Publish(ev)
	}
}

// --- Status / version ---

func (h *Handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.Version,
	})
}

// StatusHandler returns the status handler function for external registration.
func (h *Handlers) StatusHandler() http.HandlerFunc {
	return h.status
}

func (h *Handlers) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": h.Version,
	})
}
