package handlers

import (
	"net/http"

	"github.com/wolfman30/prescription-ai-portal/internal/notify"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

// NotificationsHandler hands queued toasts to the browser.
type NotificationsHandler struct {
	feed   notify.Feed
	logger *logging.Logger
}

func NewNotificationsHandler(feed notify.Feed, logger *logging.Logger) *NotificationsHandler {
	if feed == nil {
		panic("handlers: notification feed required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &NotificationsHandler{feed: feed, logger: logger}
}

// NotificationsResponse is the body of GET /api/notifications.
type NotificationsResponse struct {
	Notifications []notify.Notice `json:"notifications"`
}

// Drain returns and clears the session's pending notices.
// GET /api/notifications
func (h *NotificationsHandler) Drain(w http.ResponseWriter, r *http.Request) {
	m, ok := requireSession(w, r)
	if !ok {
		return
	}
	notices, err := h.feed.Drain(r.Context(), m.ID())
	if err != nil {
		h.logger.Error("failed to drain notifications", "session_id", m.ID(), "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if notices == nil {
		notices = []notify.Notice{}
	}
	writeJSON(w, http.StatusOK, NotificationsResponse{Notifications: notices})
}
