package reminder

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/clinicdesk/platform/internal/patient"
	"github.com/clinicdesk/platform/internal/shared/errors"
	"github.com/clinicdesk/platform/internal/shared/metrics"
	"github.com/clinicdesk/platform/internal/shared/validate"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP handlers for appointment and reminder endpoints
type Handler struct {
	repo *patient.Repository
}

// NewHandler creates a new reminder handler
func NewHandler(repo *patient.Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes registers the appointment, reminder and notification routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/appointments", func(r chi.Router) {
		r.Get("/upcoming", h.ListUpcomingAppointments)
	})

	r.Route("/reminders", func(r chi.Router) {
		r.Get("/appointments", h.AppointmentReminders)
		r.Get("/payments", h.PaymentReminders)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Post("/link", h.ComposeLink)
	})

	return r
}

// ListUpcomingAppointments lists ongoing patients with an appointment inside
// the fixed lookahead window, soonest first
func (h *Handler) ListUpcomingAppointments(w http.ResponseWriter, r *http.Request) {
	from, to := WindowBounds(time.Now())

	patients, err := h.repo.ListUpcomingAppointments(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  patients,
		"total": len(patients),
	})
}

// ReminderItem pairs a patient with a ready-to-open notification link
type ReminderItem struct {
	Patient patient.Patient `json:"patient"`
	Message string          `json:"message"`
	Link    string          `json:"link"`
}

// AppointmentReminders returns upcoming-appointment patients with composed
// reminder links
func (h *Handler) AppointmentReminders(w http.ResponseWriter, r *http.Request) {
	from, to := WindowBounds(time.Now())

	patients, err := h.repo.ListUpcomingAppointments(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	items, err := buildItems(patients, TemplateAppointmentReminder)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  items,
		"total": len(items),
	})
}

// PaymentReminders returns patients with an outstanding balance and composed
// payment reminder links
func (h *Handler) PaymentReminders(w http.ResponseWriter, r *http.Request) {
	patients, err := h.repo.ListPendingPayments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	items, err := buildItems(patients, TemplatePaymentReminder)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  items,
		"total": len(items),
	})
}

func buildItems(patients []patient.Patient, kind TemplateKind) ([]ReminderItem, error) {
	items := make([]ReminderItem, 0, len(patients))
	for i := range patients {
		p := patients[i]
		message, err := RenderMessage(kind, &p)
		if err != nil {
			return nil, err
		}
		items = append(items, ReminderItem{
			Patient: p,
			Message: message,
			Link:    ComposeLink(p.PhoneNo, message),
		})
		metrics.RecordReminderLink(string(kind))
	}
	return items, nil
}

// ComposeLinkRequest is the request to compose a notification link
type ComposeLinkRequest struct {
	PhoneNo string `json:"phone_no" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// ComposeLink composes a WhatsApp deep link for an arbitrary phone number
// and message
func (h *Handler) ComposeLink(w http.ResponseWriter, r *http.Request) {
	var req ComposeLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if verr := validate.Struct(req); verr != nil {
		writeError(w, verr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"link": ComposeLink(req.PhoneNo, req.Message),
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
