package patient

import (
	"fmt"
	"strings"
	"time"

	"github.com/clinicdesk/platform/internal/shared/errors"
	"github.com/clinicdesk/platform/internal/shared/types"
)

// InitialConsultationTreatment labels the synthetic visit created when a
// patient registers with a day-one payment, so that initial payments appear
// in the ledger alongside later ones.
const InitialConsultationTreatment = "Initial consultation"

// derivePaymentStatus computes the patient-level payment status from the two
// stored amounts. A zero total means nothing has been agreed yet, so the
// status stays pending even though nothing is owed.
func derivePaymentStatus(totalAmount, restAmount float64) PaymentStatus {
	switch {
	case totalAmount <= 0:
		return PaymentStatusPending
	case restAmount == 0:
		return PaymentStatusPaid
	case restAmount < totalAmount:
		return PaymentStatusPartial
	default:
		return PaymentStatusPending
	}
}

// validateAmounts checks the creation-time amount invariants
func validateAmounts(totalAmount, restAmount float64) error {
	if totalAmount < 0 {
		return errors.InvalidAmount("total amount cannot be negative")
	}
	if restAmount < 0 {
		return errors.InvalidAmount("rest amount cannot be negative")
	}
	if restAmount > totalAmount {
		return errors.InvalidAmount("rest amount cannot exceed total amount")
	}
	return nil
}

// recompute re-derives PaidAmount and PaymentStatus from the stored amounts.
// Every mutation path funnels through here; callers never set the derived
// fields directly.
func (p *Patient) recompute() {
	p.PaidAmount = p.TotalAmount - p.RestAmount
	p.PaymentStatus = derivePaymentStatus(p.TotalAmount, p.RestAmount)
}

// NewPatient builds a patient record from a registration request. The
// registration number is assigned later by the repository. When the request
// carries a day-one payment (rest below total), the returned initial visit
// captures it; otherwise the visit is nil.
func NewPatient(req CreatePatientRequest, now time.Time) (*Patient, *Visit, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.PhoneNo = strings.TrimSpace(req.PhoneNo)
	req.Address = strings.TrimSpace(req.Address)
	req.DateOfBirth = strings.TrimSpace(req.DateOfBirth)
	req.DoctorName = strings.TrimSpace(req.DoctorName)
	req.Prescription = strings.TrimSpace(req.Prescription)
	req.Disease = strings.TrimSpace(req.Disease)

	details := make(map[string]string)
	for field, value := range map[string]string{
		"name":          req.Name,
		"phone_no":      req.PhoneNo,
		"address":       req.Address,
		"date_of_birth": req.DateOfBirth,
		"doctor_name":   req.DoctorName,
		"prescription":  req.Prescription,
		"disease":       req.Disease,
	} {
		if value == "" {
			details[field] = field + " is required"
		}
	}
	if req.NextAppointmentDate.IsZero() {
		details["next_appointment_date"] = "next_appointment_date is required"
	}
	if len(details) > 0 {
		return nil, nil, errors.Validation("validation failed", details)
	}

	if err := validateAmounts(req.TotalAmount, req.RestAmount); err != nil {
		return nil, nil, err
	}

	p := &Patient{
		ID:                  types.NewID(),
		Name:                req.Name,
		PhoneNo:             req.PhoneNo,
		Address:             req.Address,
		DateOfBirth:         req.DateOfBirth,
		DoctorName:          req.DoctorName,
		Prescription:        req.Prescription,
		Disease:             req.Disease,
		DateOfJoining:       now,
		NextAppointmentDate: req.NextAppointmentDate,
		LastVisitDate:       now,
		TreatmentStatus:     TreatmentStatusOngoing,
		TotalAmount:         req.TotalAmount,
		RestAmount:          req.RestAmount,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	p.recompute()

	var initial *Visit
	if p.PaidAmount > 0 {
		initial = &Visit{
			ID:            types.NewID(),
			PatientID:     p.ID,
			VisitDate:     now,
			Treatment:     InitialConsultationTreatment,
			Notes:         "Advance payment recorded at registration",
			Prescription:  p.Prescription,
			AmountPaid:    p.PaidAmount,
			PaymentMethod: PaymentMethodCash,
			PaymentStatus: VisitPaymentCompleted,
			CreatedAt:     now,
		}
	}

	return p, initial, nil
}

// applyPayment reduces the outstanding rest amount by a strictly positive
// payment and re-derives the payment fields.
func (p *Patient) applyPayment(amount float64) error {
	if amount <= 0 {
		return errors.InvalidAmount("amount paid must be greater than zero")
	}
	newRest := p.RestAmount - amount
	if newRest < 0 {
		return errors.InvalidAmount("amount paid cannot exceed rest amount")
	}
	p.RestAmount = newRest
	p.recompute()
	return nil
}

// RecordPayment applies a payment against the patient's outstanding amount
// and returns the ledger visit capturing it. The caller persists both in one
// transaction.
func (p *Patient) RecordPayment(req RecordPaymentRequest, now time.Time) (*Visit, error) {
	method := req.PaymentMethod
	if method == "" {
		method = PaymentMethodCash
	}
	if !method.Valid() {
		return nil, errors.BadRequest(fmt.Sprintf("unknown payment method %q", req.PaymentMethod))
	}

	if err := p.applyPayment(req.AmountPaid); err != nil {
		return nil, err
	}

	notes := strings.TrimSpace(req.Notes)
	if notes == "" {
		notes = fmt.Sprintf("Payment of %.2f received, %.2f remaining", req.AmountPaid, p.RestAmount)
	}

	p.LastVisitDate = now
	p.UpdatedAt = now

	return &Visit{
		ID:            types.NewID(),
		PatientID:     p.ID,
		VisitDate:     now,
		Treatment:     "Payment",
		Notes:         notes,
		AmountPaid:    req.AmountPaid,
		PaymentMethod: method,
		PaymentStatus: VisitPaymentCompleted,
		CreatedAt:     now,
	}, nil
}

// RecordVisit records a clinical visit, applying any accompanying payment
// first. Treatment and prescription default to the patient's current
// prescription; a supplied prescription or next appointment date also
// propagates back onto the patient.
func (p *Patient) RecordVisit(req RecordVisitRequest, now time.Time) (*Visit, error) {
	if req.AmountPaid < 0 {
		return nil, errors.InvalidAmount("amount paid cannot be negative")
	}

	method := req.PaymentMethod
	if method == "" {
		method = PaymentMethodCash
	}
	if !method.Valid() {
		return nil, errors.BadRequest(fmt.Sprintf("unknown payment method %q", req.PaymentMethod))
	}

	if req.AmountPaid > 0 {
		if err := p.applyPayment(req.AmountPaid); err != nil {
			return nil, err
		}
	}

	treatment := strings.TrimSpace(req.Treatment)
	if treatment == "" {
		treatment = p.Prescription
	}
	prescription := strings.TrimSpace(req.Prescription)
	if prescription == "" {
		prescription = p.Prescription
	} else {
		p.Prescription = prescription
	}

	if req.NextAppointmentDate != nil {
		p.NextAppointmentDate = *req.NextAppointmentDate
	}
	p.LastVisitDate = now
	p.UpdatedAt = now

	visitStatus := VisitPaymentPending
	if req.AmountPaid > 0 {
		visitStatus = VisitPaymentCompleted
	}

	return &Visit{
		ID:                  types.NewID(),
		PatientID:           p.ID,
		VisitDate:           now,
		Treatment:           treatment,
		Notes:               strings.TrimSpace(req.Notes),
		Prescription:        prescription,
		NextAppointmentDate: req.NextAppointmentDate,
		AmountPaid:          req.AmountPaid,
		PaymentMethod:       method,
		PaymentStatus:       visitStatus,
		CreatedAt:           now,
	}, nil
}

// ApplyUpdate applies a partial update. An explicit total amount change keeps
// the already-paid amount fixed and re-derives the rest.
func (p *Patient) ApplyUpdate(req UpdatePatientRequest, now time.Time) error {
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return errors.Validation("validation failed", map[string]string{"name": "name cannot be empty"})
		}
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.PhoneNo != nil {
		if strings.TrimSpace(*req.PhoneNo) == "" {
			return errors.Validation("validation failed", map[string]string{"phone_no": "phone_no cannot be empty"})
		}
		p.PhoneNo = strings.TrimSpace(*req.PhoneNo)
	}
	if req.Address != nil {
		p.Address = strings.TrimSpace(*req.Address)
	}
	if req.DateOfBirth != nil {
		p.DateOfBirth = strings.TrimSpace(*req.DateOfBirth)
	}
	if req.DoctorName != nil {
		p.DoctorName = strings.TrimSpace(*req.DoctorName)
	}
	if req.Prescription != nil {
		p.Prescription = strings.TrimSpace(*req.Prescription)
	}
	if req.Disease != nil {
		p.Disease = strings.TrimSpace(*req.Disease)
	}
	if req.NextAppointmentDate != nil {
		p.NextAppointmentDate = *req.NextAppointmentDate
	}
	if req.TreatmentStatus != nil {
		if !req.TreatmentStatus.Valid() {
			return errors.BadRequest(fmt.Sprintf("unknown treatment status %q", *req.TreatmentStatus))
		}
		p.TreatmentStatus = *req.TreatmentStatus
	}
	if req.TotalAmount != nil {
		if err := p.setTotalAmount(*req.TotalAmount); err != nil {
			return err
		}
	}

	p.UpdatedAt = now
	return nil
}

// setTotalAmount changes the agreed treatment cost. Payments already made are
// kept; the outstanding rest absorbs the difference.
func (p *Patient) setTotalAmount(newTotal float64) error {
	if newTotal < 0 {
		return errors.InvalidAmount("total amount cannot be negative")
	}
	if newTotal < p.PaidAmount {
		return errors.InvalidAmount("total amount cannot be less than amount already paid")
	}
	p.TotalAmount = newTotal
	p.RestAmount = newTotal - p.PaidAmount
	p.recompute()
	return nil
}

// Summary builds the derived financial view from the patient and their
// payment ledger.
func (p *Patient) Summary(payments []Visit) PaymentSummary {
	summary := PaymentSummary{
		TotalAmount:   p.TotalAmount,
		PaidAmount:    p.PaidAmount,
		RestAmount:    p.RestAmount,
		PaymentStatus: p.PaymentStatus,
		PaymentCount:  len(payments),
	}
	for i := range payments {
		v := payments[i]
		if summary.LastPaymentDate == nil || v.VisitDate.After(*summary.LastPaymentDate) {
			d := v.VisitDate
			summary.LastPaymentDate = &d
		}
	}
	return summary
}
