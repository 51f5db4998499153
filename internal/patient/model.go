package patient

import (
	"time"

	"github.com/clinicdesk/platform/internal/shared/types"
)

// TreatmentStatus defines the state of a patient's treatment
type TreatmentStatus string

const (
	TreatmentStatusOngoing   TreatmentStatus = "ongoing"
	TreatmentStatusCompleted TreatmentStatus = "completed"
	TreatmentStatusCancelled TreatmentStatus = "cancelled"
)

// Valid reports whether the treatment status is a known value
func (s TreatmentStatus) Valid() bool {
	switch s {
	case TreatmentStatusOngoing, TreatmentStatusCompleted, TreatmentStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus summarizes how much of the treatment cost has been paid
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// PaymentMethod defines how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodUPI          PaymentMethod = "upi"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// Valid reports whether the payment method is a known value
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodUPI, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// VisitPaymentStatus is the per-visit payment state, distinct from the
// patient-level PaymentStatus
type VisitPaymentStatus string

const (
	VisitPaymentPending   VisitPaymentStatus = "pending"
	VisitPaymentCompleted VisitPaymentStatus = "completed"
)

// Patient is the primary record of a person under treatment
type Patient struct {
	ID             types.ID `json:"id"`
	RegistrationNo string   `json:"registration_no"`

	Name        string `json:"name"`
	PhoneNo     string `json:"phone_no"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth"`

	DoctorName   string `json:"doctor_name"`
	Prescription string `json:"prescription"`
	Disease      string `json:"disease"`

	DateOfJoining       time.Time       `json:"date_of_joining"`
	NextAppointmentDate time.Time       `json:"next_appointment_date"`
	LastVisitDate       time.Time       `json:"last_visit_date"`
	TreatmentStatus     TreatmentStatus `json:"treatment_status"`

	// Financials. TotalAmount and RestAmount are the stored source of truth;
	// PaidAmount and PaymentStatus are derived and must only change through
	// the billing functions.
	TotalAmount   float64       `json:"total_amount"`
	RestAmount    float64       `json:"rest_amount"`
	PaidAmount    float64       `json:"paid_amount"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Visit is one append-only clinical or payment event tied to a patient
type Visit struct {
	ID        types.ID `json:"id"`
	PatientID types.ID `json:"patient_id"`

	VisitDate    time.Time `json:"visit_date"`
	Treatment    string    `json:"treatment"`
	Notes        string    `json:"notes,omitempty"`
	Prescription string    `json:"prescription,omitempty"`

	NextAppointmentDate *time.Time `json:"next_appointment_date,omitempty"`

	AmountPaid    float64            `json:"amount_paid"`
	PaymentMethod PaymentMethod      `json:"payment_method"`
	PaymentStatus VisitPaymentStatus `json:"payment_status"`

	CreatedAt time.Time `json:"created_at"`
}

// PaymentSummary is the derived financial view returned alongside a patient
type PaymentSummary struct {
	TotalAmount     float64       `json:"total_amount"`
	PaidAmount      float64       `json:"paid_amount"`
	RestAmount      float64       `json:"rest_amount"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	PaymentCount    int           `json:"payment_count"`
	LastPaymentDate *time.Time    `json:"last_payment_date,omitempty"`
}

// CreatePatientRequest is the request to register a patient
type CreatePatientRequest struct {
	Name                string    `json:"name" validate:"required"`
	PhoneNo             string    `json:"phone_no" validate:"required"`
	Address             string    `json:"address" validate:"required"`
	DateOfBirth         string    `json:"date_of_birth" validate:"required"`
	DoctorName          string    `json:"doctor_name" validate:"required"`
	Prescription        string    `json:"prescription" validate:"required"`
	Disease             string    `json:"disease" validate:"required"`
	NextAppointmentDate time.Time `json:"next_appointment_date" validate:"required"`
	TotalAmount         float64   `json:"total_amount" validate:"gte=0"`
	RestAmount          float64   `json:"rest_amount" validate:"gte=0"`
}

// UpdatePatientRequest is the request to update a patient. TotalAmount is the
// only financial field a caller may set; the derived fields are recomputed.
type UpdatePatientRequest struct {
	Name                *string          `json:"name,omitempty"`
	PhoneNo             *string          `json:"phone_no,omitempty"`
	Address             *string          `json:"address,omitempty"`
	DateOfBirth         *string          `json:"date_of_birth,omitempty"`
	DoctorName          *string          `json:"doctor_name,omitempty"`
	Prescription        *string          `json:"prescription,omitempty"`
	Disease             *string          `json:"disease,omitempty"`
	NextAppointmentDate *time.Time       `json:"next_appointment_date,omitempty"`
	TreatmentStatus     *TreatmentStatus `json:"treatment_status,omitempty"`
	TotalAmount         *float64         `json:"total_amount,omitempty"`
}

// RecordVisitRequest is the request to record a clinical visit
type RecordVisitRequest struct {
	Treatment           string        `json:"treatment"`
	Notes               string        `json:"notes"`
	Prescription        string        `json:"prescription"`
	NextAppointmentDate *time.Time    `json:"next_appointment_date,omitempty"`
	AmountPaid          float64       `json:"amount_paid"`
	PaymentMethod       PaymentMethod `json:"payment_method"`
}

// RecordPaymentRequest is the request to record a payment
type RecordPaymentRequest struct {
	AmountPaid    float64       `json:"amount_paid" validate:"required"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Notes         string        `json:"notes"`
}

// ListPatientsFilter defines filters for listing patients
type ListPatientsFilter struct {
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}
