package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/wolfman30/prescription-ai-portal/internal/http/middleware"
	"github.com/wolfman30/prescription-ai-portal/internal/portal"
	"github.com/wolfman30/prescription-ai-portal/internal/session"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

// PortalHandler serves the signed-in patient views.
type PortalHandler struct {
	views         *portal.Service
	logger        *logging.Logger
	settleTimeout time.Duration
	audit         auditTrail
}

func NewPortalHandler(views *portal.Service, settleTimeout time.Duration, logger *logging.Logger) *PortalHandler {
	if views == nil {
		panic("handlers: portal service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PortalHandler{
		views:         views,
		logger:        logger,
		settleTimeout: settleTimeout,
		audit:         auditTrail{logger: logger},
	}
}

// WithAuditor records every served patient record view.
func (h *PortalHandler) WithAuditor(a Auditor) *PortalHandler {
	h.audit.auditor = a
	return h
}

// patient returns the signed-in session or writes 401.
func (h *PortalHandler) patient(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	m, ok := requireSession(w, r)
	if !ok {
		return session.Session{}, false
	}
	snap := settledSnapshot(r.Context(), m, h.settleTimeout)
	if snap.Identity == nil {
		jsonError(w, "sign in required", http.StatusUnauthorized)
		return session.Session{}, false
	}
	return snap, true
}

// GetDashboard returns the landing page cards.
// GET /api/dashboard
func (h *PortalHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.patient(w, r)
	if !ok {
		return
	}
	dash, err := h.views.Dashboard(r.Context(), snap.Identity.ID, snap.DisplayName())
	if err != nil {
		h.writeViewError(w, r, "dashboard", err)
		return
	}
	h.recordViewed(r, snap, "medications", dash.MedicationsSource)
	h.recordViewed(r, snap, "appointments", dash.AppointmentsSource)
	writeJSON(w, http.StatusOK, dash)
}

// GetMedications lists the patient's medications.
// GET /api/medications
// Query params:
//   - search: optional name or prescriber filter
func (h *PortalHandler) GetMedications(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.patient(w, r)
	if !ok {
		return
	}
	list, err := h.views.Medications(r.Context(), snap.Identity.ID, r.URL.Query().Get("search"))
	if err != nil {
		h.writeViewError(w, r, "medications", err)
		return
	}
	h.recordViewed(r, snap, "medications", list.Source)
	writeJSON(w, http.StatusOK, list)
}

// GetAppointments lists the patient's appointments.
// GET /api/appointments
func (h *PortalHandler) GetAppointments(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.patient(w, r)
	if !ok {
		return
	}
	list, err := h.views.Appointments(r.Context(), snap.Identity.ID)
	if err != nil {
		h.writeViewError(w, r, "appointments", err)
		return
	}
	h.recordViewed(r, snap, "appointments", list.Source)
	writeJSON(w, http.StatusOK, list)
}

// GetDoctors lists the doctor directory.
// GET /api/doctors
// Query params:
//   - search: optional name or specialty filter
//   - specialty: optional exact specialty, "all" for none
func (h *PortalHandler) GetDoctors(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.patient(w, r); !ok {
		return
	}
	q := portal.DoctorQuery{
		Search:    r.URL.Query().Get("search"),
		Specialty: r.URL.Query().Get("specialty"),
	}
	list, err := h.views.Doctors(r.Context(), q)
	if err != nil {
		h.writeViewError(w, r, "doctors", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetDoctor returns one doctor with available slots.
// GET /api/doctors/{doctorID}
func (h *PortalHandler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.patient(w, r); !ok {
		return
	}
	doctorID := strings.TrimSpace(chi.URLParam(r, "doctorID"))
	if doctorID == "" {
		jsonError(w, "missing doctorID", http.StatusBadRequest)
		return
	}
	doc, err := h.views.Doctor(r.Context(), doctorID)
	if err != nil {
		h.writeViewError(w, r, "doctor", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *PortalHandler) recordViewed(r *http.Request, snap session.Session, resource string, source portal.Source) {
	sessionID := ""
	if m, ok := httpmiddleware.SessionFromContext(r.Context()); ok {
		sessionID = m.ID()
	}
	h.audit.recordViewed(r.Context(), sessionID, snap.Identity.ID, resource, string(source))
}

func (h *PortalHandler) writeViewError(w http.ResponseWriter, r *http.Request, view string, err error) {
	var fetchErr *session.FetchError
	switch {
	case errors.Is(err, portal.ErrDoctorNotFound):
		jsonError(w, "doctor not found", http.StatusNotFound)
	case errors.Is(err, portal.ErrPatientRequired):
		jsonError(w, "sign in required", http.StatusUnauthorized)
	case errors.As(err, &fetchErr):
		h.logger.Error("view fetch failed", "view", view, "collection", fetchErr.Collection, "error", fetchErr.Err)
		if m, ok := httpmiddleware.SessionFromContext(r.Context()); ok {
			m.ReportFetchError(r.Context(), fetchErr)
		}
		jsonError(w, "unable to load "+fetchErr.Collection, http.StatusBadGateway)
	default:
		h.logger.Error("view failed", "view", view, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
