package handler

import (
	"bytes"
	"net/http"

	"github.com/mmeshcher/orbit-portal/internal/export"
	"github.com/mmeshcher/orbit-portal/internal/model"
	"github.com/mmeshcher/orbit-portal/internal/service"
)

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
	Unread        int                  `json:"unread"`
}

func countUnread(list []model.Notification) int {
	n := 0
	for _, item := range list {
		if service.IsUnread(item) {
			n++
		}
	}
	return n
}

// ListNotifications возвращает уведомления и число непрочитанных.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListNotifications(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, "list notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, notificationsResponse{Notifications: list, Unread: countUnread(list)})
}

// MarkNotificationRead отмечает уведомление прочитанным.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.service.MarkNotificationRead(r.Context(), actor, urlParam(r, "id")); err != nil {
		h.writeError(w, r, "mark notification read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type markAllResponse struct {
	Updated int64 `json:"updated"`
}

// MarkAllRead отмечает прочитанными все непрочитанные уведомления.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	n, err := h.service.MarkAllRead(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, "mark all read", err)
		return
	}
	writeJSON(w, http.StatusOK, markAllResponse{Updated: n})
}

// ExportNotifications отдаёт уведомления файлом CSV.
func (h *Handler) ExportNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListNotifications(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, "export notifications", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteNotifications(&buf, list); err != nil {
		h.writeError(w, r, "export notifications", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(h.now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
