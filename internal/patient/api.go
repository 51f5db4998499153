package patient

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/clinicdesk/platform/internal/shared/errors"
	"github.com/clinicdesk/platform/internal/shared/metrics"
	"github.com/clinicdesk/platform/internal/shared/types"
	"github.com/clinicdesk/platform/internal/shared/validate"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP handlers for the patient module
type Handler struct {
	repo *Repository
}

// NewHandler creates a new patient handler
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes registers the patient routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListPatients)
	r.Post("/", h.CreatePatient)
	r.Get("/pending-payments", h.ListPendingPayments)

	r.Route("/{patientID}", func(r chi.Router) {
		r.Get("/", h.GetPatient)
		r.Put("/", h.UpdatePatient)

		r.Route("/visits", func(r chi.Router) {
			r.Get("/", h.ListVisits)
			r.Post("/", h.RecordVisit)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.GetPaymentHistory)
			r.Post("/", h.RecordPayment)
		})
	})

	return r
}

// ListPatients lists patients, newest first
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	filter := ListPatientsFilter{
		Search: r.URL.Query().Get("search"),
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			filter.Limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil {
			filter.Offset = n
		}
	}

	patients, total, err := h.repo.ListPatients(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  patients,
		"total": total,
	})
}

// CreatePatient registers a new patient
func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if verr := validate.Struct(req); verr != nil {
		writeError(w, verr)
		return
	}

	p, initial, err := NewPatient(req, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.repo.CreatePatient(r.Context(), p, initial); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordPatientRegistered()
	if initial != nil {
		metrics.RecordPayment(string(initial.PaymentMethod), initial.AmountPaid)
	}

	writeJSON(w, http.StatusCreated, p)
}

// GetPatient returns a patient with their visit history and payment summary
func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	p, err := h.repo.GetPatient(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	visits, err := h.repo.ListVisits(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	payments, err := h.repo.ListPayments(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"patient": p,
		"visits":  visits,
		"summary": p.Summary(payments),
	})
}

// UpdatePatient applies a partial update to a patient
func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	p, err := h.repo.GetPatient(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req UpdatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if err := p.ApplyUpdate(req, time.Now()); err != nil {
		writeError(w, err)
		return
	}

	if err := h.repo.UpdatePatient(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// ListPendingPayments lists ongoing patients with an outstanding balance
func (h *Handler) ListPendingPayments(w http.ResponseWriter, r *http.Request) {
	patients, err := h.repo.ListPendingPayments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  patients,
		"total": len(patients),
	})
}

// ListVisits lists a patient's visits, newest first
func (h *Handler) ListVisits(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	// Resolve the patient first so a bad ID is a 404, not an empty list
	if _, err := h.repo.GetPatient(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	visits, err := h.repo.ListVisits(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  visits,
		"total": len(visits),
	})
}

// RecordVisit records a clinical visit, with an optional payment
func (h *Handler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	p, err := h.repo.GetPatient(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req RecordVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	visit, err := p.RecordVisit(req, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.repo.SaveVisit(r.Context(), p, visit); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordVisit()
	if visit.AmountPaid > 0 {
		metrics.RecordPayment(string(visit.PaymentMethod), visit.AmountPaid)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"patient": p,
		"visit":   visit,
	})
}

// GetPaymentHistory returns a patient's financial summary and payment ledger
func (h *Handler) GetPaymentHistory(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	p, err := h.repo.GetPatient(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	payments, err := h.repo.ListPayments(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary":  p.Summary(payments),
		"payments": payments,
	})
}

// RecordPayment records a payment against a patient's outstanding balance
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	p, err := h.repo.GetPatient(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	visit, err := p.RecordPayment(req, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.repo.SaveVisit(r.Context(), p, visit); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordPayment(string(visit.PaymentMethod), visit.AmountPaid)

	writeJSON(w, http.StatusCreated, map[string]any{
		"patient": p,
		"visit":   visit,
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
