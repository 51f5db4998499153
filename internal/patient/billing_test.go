package patient

import (
	"testing"
	"time"

	"github.com/clinicdesk/platform/internal/shared/errors"
)

func testCreateRequest() CreatePatientRequest {
	return CreatePatientRequest{
		Name:                "Asha Verma",
		PhoneNo:             "+91 98765-43210",
		Address:             "12 MG Road, Pune",
		DateOfBirth:         "1988-04-02",
		DoctorName:          "Mehta",
		Prescription:        "Physiotherapy, twice a week",
		Disease:             "Lower back pain",
		NextAppointmentDate: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		TotalAmount:         5000,
		RestAmount:          5000,
	}
}

func TestDerivePaymentStatus(t *testing.T) {
	tests := []struct {
		name  string
		total float64
		rest  float64
		want  PaymentStatus
	}{
		{"zero total", 0, 0, PaymentStatusPending},
		{"nothing paid", 5000, 5000, PaymentStatusPending},
		{"partially paid", 5000, 2000, PaymentStatusPartial},
		{"fully paid", 5000, 0, PaymentStatusPaid},
		{"small remainder", 5000, 0.01, PaymentStatusPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := derivePaymentStatus(tt.total, tt.rest)
			if got != tt.want {
				t.Errorf("derivePaymentStatus(%v, %v) = %v, want %v", tt.total, tt.rest, got, tt.want)
			}
		})
	}
}

func TestValidateAmounts(t *testing.T) {
	tests := []struct {
		name    string
		total   float64
		rest    float64
		wantErr bool
	}{
		{"valid", 5000, 2000, false},
		{"both zero", 0, 0, false},
		{"rest equals total", 5000, 5000, false},
		{"negative total", -1, 0, true},
		{"negative rest", 5000, -1, true},
		{"rest exceeds total", 5000, 5001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAmounts(tt.total, tt.rest)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAmounts(%v, %v) error = %v, wantErr %v", tt.total, tt.rest, err, tt.wantErr)
			}
			if err != nil {
				appErr, ok := err.(*errors.AppError)
				if !ok || appErr.Code != "INVALID_AMOUNT" {
					t.Errorf("expected INVALID_AMOUNT error, got %v", err)
				}
			}
		})
	}
}

func TestNewPatientDerivedFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("nothing paid at registration", func(t *testing.T) {
		p, initial, err := NewPatient(testCreateRequest(), now)
		if err != nil {
			t.Fatalf("NewPatient() error = %v", err)
		}
		if initial != nil {
			t.Errorf("expected no initial visit, got %+v", initial)
		}
		if p.PaidAmount != 0 {
			t.Errorf("PaidAmount = %v, want 0", p.PaidAmount)
		}
		if p.PaymentStatus != PaymentStatusPending {
			t.Errorf("PaymentStatus = %v, want pending", p.PaymentStatus)
		}
		if p.TreatmentStatus != TreatmentStatusOngoing {
			t.Errorf("TreatmentStatus = %v, want ongoing", p.TreatmentStatus)
		}
		if !p.LastVisitDate.Equal(now) || !p.DateOfJoining.Equal(now) {
			t.Errorf("joining/last visit dates not set to now")
		}
	})

	t.Run("full payment at registration", func(t *testing.T) {
		req := testCreateRequest()
		req.RestAmount = 0

		p, initial, err := NewPatient(req, now)
		if err != nil {
			t.Fatalf("NewPatient() error = %v", err)
		}
		if p.PaidAmount != 5000 {
			t.Errorf("PaidAmount = %v, want 5000", p.PaidAmount)
		}
		if p.PaymentStatus != PaymentStatusPaid {
			t.Errorf("PaymentStatus = %v, want paid", p.PaymentStatus)
		}
		if initial == nil {
			t.Fatal("expected an initial visit for the day-one payment")
		}
		if initial.AmountPaid != 5000 {
			t.Errorf("initial visit AmountPaid = %v, want 5000", initial.AmountPaid)
		}
		if initial.Treatment != InitialConsultationTreatment {
			t.Errorf("initial visit Treatment = %q, want %q", initial.Treatment, InitialConsultationTreatment)
		}
		if initial.PaymentStatus != VisitPaymentCompleted {
			t.Errorf("initial visit PaymentStatus = %v, want completed", initial.PaymentStatus)
		}
		if initial.PatientID != p.ID {
			t.Errorf("initial visit PatientID = %v, want %v", initial.PatientID, p.ID)
		}
	})

	t.Run("partial payment at registration", func(t *testing.T) {
		req := testCreateRequest()
		req.RestAmount = 2000

		p, initial, err := NewPatient(req, now)
		if err != nil {
			t.Fatalf("NewPatient() error = %v", err)
		}
		if p.PaidAmount != 3000 {
			t.Errorf("PaidAmount = %v, want 3000", p.PaidAmount)
		}
		if p.PaymentStatus != PaymentStatusPartial {
			t.Errorf("PaymentStatus = %v, want partial", p.PaymentStatus)
		}
		if initial == nil || initial.AmountPaid != 3000 {
			t.Errorf("expected initial visit of 3000, got %+v", initial)
		}
	})

	t.Run("rest exceeding total rejected", func(t *testing.T) {
		req := testCreateRequest()
		req.RestAmount = 6000

		if _, _, err := NewPatient(req, now); err == nil {
			t.Error("expected error for rest exceeding total")
		}
	})
}

func TestNewPatientValidation(t *testing.T) {
	now := time.Now()

	t.Run("whitespace-only fields rejected", func(t *testing.T) {
		req := testCreateRequest()
		req.Name = "   "
		req.Disease = "\t"

		_, _, err := NewPatient(req, now)
		if err == nil {
			t.Fatal("expected validation error")
		}
		appErr, ok := err.(*errors.AppError)
		if !ok || appErr.Code != "VALIDATION_ERROR" {
			t.Fatalf("expected VALIDATION_ERROR, got %v", err)
		}
		if _, found := appErr.Details["name"]; !found {
			t.Error("expected a detail for name")
		}
		if _, found := appErr.Details["disease"]; !found {
			t.Error("expected a detail for disease")
		}
	})

	t.Run("missing appointment date rejected", func(t *testing.T) {
		req := testCreateRequest()
		req.NextAppointmentDate = time.Time{}

		_, _, err := NewPatient(req, now)
		if err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("fields are trimmed", func(t *testing.T) {
		req := testCreateRequest()
		req.Name = "  Asha Verma  "
		req.PhoneNo = " +91 98765-43210 "

		p, _, err := NewPatient(req, now)
		if err != nil {
			t.Fatalf("NewPatient() error = %v", err)
		}
		if p.Name != "Asha Verma" {
			t.Errorf("Name = %q, not trimmed", p.Name)
		}
		if p.PhoneNo != "+91 98765-43210" {
			t.Errorf("PhoneNo = %q, not trimmed", p.PhoneNo)
		}
	})
}

func TestRecordPayment(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	later := now.Add(48 * time.Hour)

	newPartialPatient := func(t *testing.T) *Patient {
		t.Helper()
		req := testCreateRequest()
		req.RestAmount = 2000
		p, _, err := NewPatient(req, now)
		if err != nil {
			t.Fatalf("NewPatient() error = %v", err)
		}
		return p
	}

	t.Run("payment reduces rest and flips status when cleared", func(t *testing.T) {
		p := newPartialPatient(t)

		visit, err := p.RecordPayment(RecordPaymentRequest{AmountPaid: 2000}, later)
		if err != nil {
			t.Fatalf("RecordPayment() error = %v", err)
		}
		if p.RestAmount != 0 {
			t.Errorf("RestAmount = %v, want 0", p.RestAmount)
		}
		if p.PaidAmount != 5000 {
			t.Errorf("PaidAmount = %v, want 5000", p.PaidAmount)
		}
		if p.PaymentStatus != PaymentStatusPaid {
			t.Errorf("PaymentStatus = %v, want paid", p.PaymentStatus)
		}
		if !p.LastVisitDate.Equal(later) {
			t.Errorf("LastVisitDate not advanced")
		}
		if visit.Treatment != "Payment" || visit.AmountPaid != 2000 {
			t.Errorf("unexpected ledger visit: %+v", visit)
		}
		if visit.PaymentMethod != PaymentMethodCash {
			t.Errorf("PaymentMethod = %v, want cash default", visit.PaymentMethod)
		}
	})

	t.Run("overpayment rejected and state unchanged", func(t *testing.T) {
		p := newPartialPatient(t)

		_, err := p.RecordPayment(RecordPaymentRequest{AmountPaid: 2500}, later)
		if err == nil {
			t.Fatal("expected error for overpayment")
		}
		appErr, ok := err.(*errors.AppError)
		if !ok || appErr.Code != "INVALID_AMOUNT" {
			t.Errorf("expected INVALID_AMOUNT, got %v", err)
		}
		if p.RestAmount != 2000 || p.PaidAmount != 3000 || p.PaymentStatus != PaymentStatusPartial {
			t.Errorf("state changed after rejected payment: rest=%v paid=%v status=%v",
				p.RestAmount, p.PaidAmount, p.PaymentStatus)
		}
	})

	t.Run("non-positive amounts rejected", func(t *testing.T) {
		for _, amount := range []float64{0, -100} {
			p := newPartialPatient(t)
			if _, err := p.RecordPayment(RecordPaymentRequest{AmountPaid: amount}, later); err == nil {
				t.Errorf("expected error for amount %v", amount)
			}
		}
	})

	t.Run("unknown payment method rejected", func(t *testing.T) {
		p := newPartialPatient(t)
		_, err := p.RecordPayment(RecordPaymentRequest{AmountPaid: 500, PaymentMethod: "cheque"}, later)
		if err == nil {
			t.Error("expected error for unknown payment method")
		}
	})

	t.Run("rest never goes negative across a series", func(t *testing.T) {
		p := newPartialPatient(t)

		for _, amount := range []float64{500, 500, 500, 500} {
			if _, err := p.RecordPayment(RecordPaymentRequest{AmountPaid: amount}, later); err != nil {
				t.Fatalf("RecordPayment(%v) error = %v", amount, err)
			}
			if p.RestAmount < 0 {
				t.Fatalf("RestAmount went negative: %v", p.RestAmount)
			}
			if p.PaidAmount+p.RestAmount != p.TotalAmount {
				t.Fatalf("paid + rest != total: %v + %v != %v", p.PaidAmount, p.RestAmount, p.TotalAmount)
			}
		}
		if _, err := p.RecordPayment(RecordPaymentRequest{AmountPaid: 1}, later); err == nil {
			t.Error("expected error once balance cleared")
		}
	})
}

func TestRecordVisit(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	later := now.Add(24 * time.Hour)

	newPatient := func(t *testing.T) *Patient {
		t.Helper()
		req := testCreateRequest()
		req.RestAmount = 2000
		p, _, err := NewPatient(req, now)
		if err != nil {
			t.Fatalf("NewPatient() error = %v", err)
		}
		return p
	}

	t.Run("visit without payment stays pending", func(t *testing.T) {
		p := newPatient(t)

		visit, err := p.RecordVisit(RecordVisitRequest{Treatment: "Follow-up check"}, later)
		if err != nil {
			t.Fatalf("RecordVisit() error = %v", err)
		}
		if visit.PaymentStatus != VisitPaymentPending {
			t.Errorf("visit PaymentStatus = %v, want pending", visit.PaymentStatus)
		}
		if p.RestAmount != 2000 {
			t.Errorf("RestAmount changed without a payment: %v", p.RestAmount)
		}
		if !p.LastVisitDate.Equal(later) {
			t.Error("LastVisitDate not advanced")
		}
	})

	t.Run("visit with payment applies it", func(t *testing.T) {
		p := newPatient(t)

		visit, err := p.RecordVisit(RecordVisitRequest{
			Treatment:     "Session 2",
			AmountPaid:    1000,
			PaymentMethod: PaymentMethodUPI,
		}, later)
		if err != nil {
			t.Fatalf("RecordVisit() error = %v", err)
		}
		if visit.PaymentStatus != VisitPaymentCompleted {
			t.Errorf("visit PaymentStatus = %v, want completed", visit.PaymentStatus)
		}
		if p.RestAmount != 1000 {
			t.Errorf("RestAmount = %v, want 1000", p.RestAmount)
		}
		if p.PaymentStatus != PaymentStatusPartial {
			t.Errorf("PaymentStatus = %v, want partial", p.PaymentStatus)
		}
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		p := newPatient(t)
		if _, err := p.RecordVisit(RecordVisitRequest{AmountPaid: -1}, later); err == nil {
			t.Error("expected error for negative amount")
		}
	})

	t.Run("treatment defaults to current prescription", func(t *testing.T) {
		p := newPatient(t)

		visit, err := p.RecordVisit(RecordVisitRequest{}, later)
		if err != nil {
			t.Fatalf("RecordVisit() error = %v", err)
		}
		if visit.Treatment != p.Prescription {
			t.Errorf("Treatment = %q, want prescription default %q", visit.Treatment, p.Prescription)
		}
	})

	t.Run("new prescription and appointment propagate to patient", func(t *testing.T) {
		p := newPatient(t)
		next := later.Add(7 * 24 * time.Hour)

		_, err := p.RecordVisit(RecordVisitRequest{
			Prescription:        "Heat therapy, daily stretches",
			NextAppointmentDate: &next,
		}, later)
		if err != nil {
			t.Fatalf("RecordVisit() error = %v", err)
		}
		if p.Prescription != "Heat therapy, daily stretches" {
			t.Errorf("Prescription not updated: %q", p.Prescription)
		}
		if !p.NextAppointmentDate.Equal(next) {
			t.Errorf("NextAppointmentDate not updated: %v", p.NextAppointmentDate)
		}
	})
}

func TestApplyUpdate(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	newPatient := func(t *testing.T) *Patient {
		t.Helper()
		req := testCreateRequest()
		req.RestAmount = 2000
		p, _, err := NewPatient(req, now)
		if err != nil {
			t.Fatalf("NewPatient() error = %v", err)
		}
		return p
	}

	t.Run("partial update only touches supplied fields", func(t *testing.T) {
		p := newPatient(t)
		name := "Asha V. Kulkarni"

		if err := p.ApplyUpdate(UpdatePatientRequest{Name: &name}, later); err != nil {
			t.Fatalf("ApplyUpdate() error = %v", err)
		}
		if p.Name != name {
			t.Errorf("Name = %q, want %q", p.Name, name)
		}
		if p.PhoneNo != "+91 98765-43210" {
			t.Errorf("PhoneNo changed unexpectedly: %q", p.PhoneNo)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		p := newPatient(t)
		empty := "  "
		if err := p.ApplyUpdate(UpdatePatientRequest{Name: &empty}, later); err == nil {
			t.Error("expected error for empty name")
		}
	})

	t.Run("unknown treatment status rejected", func(t *testing.T) {
		p := newPatient(t)
		bad := TreatmentStatus("paused")
		if err := p.ApplyUpdate(UpdatePatientRequest{TreatmentStatus: &bad}, later); err == nil {
			t.Error("expected error for unknown treatment status")
		}
	})

	t.Run("raising total keeps paid and grows rest", func(t *testing.T) {
		p := newPatient(t) // total 5000, paid 3000, rest 2000
		newTotal := 8000.0

		if err := p.ApplyUpdate(UpdatePatientRequest{TotalAmount: &newTotal}, later); err != nil {
			t.Fatalf("ApplyUpdate() error = %v", err)
		}
		if p.TotalAmount != 8000 || p.PaidAmount != 3000 || p.RestAmount != 5000 {
			t.Errorf("amounts = total %v paid %v rest %v, want 8000/3000/5000",
				p.TotalAmount, p.PaidAmount, p.RestAmount)
		}
		if p.PaymentStatus != PaymentStatusPartial {
			t.Errorf("PaymentStatus = %v, want partial", p.PaymentStatus)
		}
	})

	t.Run("total below amount already paid rejected", func(t *testing.T) {
		p := newPatient(t)
		newTotal := 2500.0

		if err := p.ApplyUpdate(UpdatePatientRequest{TotalAmount: &newTotal}, later); err == nil {
			t.Error("expected error when total drops below paid")
		}
		if p.TotalAmount != 5000 {
			t.Errorf("TotalAmount changed after rejected update: %v", p.TotalAmount)
		}
	})

	t.Run("lowering total to exactly paid clears the balance", func(t *testing.T) {
		p := newPatient(t)
		newTotal := 3000.0

		if err := p.ApplyUpdate(UpdatePatientRequest{TotalAmount: &newTotal}, later); err != nil {
			t.Fatalf("ApplyUpdate() error = %v", err)
		}
		if p.RestAmount != 0 || p.PaymentStatus != PaymentStatusPaid {
			t.Errorf("rest = %v status = %v, want 0/paid", p.RestAmount, p.PaymentStatus)
		}
	})
}

func TestSummary(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	req := testCreateRequest()
	req.RestAmount = 2000

	p, initial, err := NewPatient(req, now)
	if err != nil {
		t.Fatalf("NewPatient() error = %v", err)
	}

	later := now.Add(72 * time.Hour)
	visit, err := p.RecordPayment(RecordPaymentRequest{AmountPaid: 1000}, later)
	if err != nil {
		t.Fatalf("RecordPayment() error = %v", err)
	}

	summary := p.Summary([]Visit{*initial, *visit})
	if summary.PaymentCount != 2 {
		t.Errorf("PaymentCount = %d, want 2", summary.PaymentCount)
	}
	if summary.PaidAmount != 4000 || summary.RestAmount != 1000 {
		t.Errorf("paid/rest = %v/%v, want 4000/1000", summary.PaidAmount, summary.RestAmount)
	}
	if summary.PaymentStatus != PaymentStatusPartial {
		t.Errorf("PaymentStatus = %v, want partial", summary.PaymentStatus)
	}
	if summary.LastPaymentDate == nil || !summary.LastPaymentDate.Equal(later) {
		t.Errorf("LastPaymentDate = %v, want %v", summary.LastPaymentDate, later)
	}

	empty := p.Summary(nil)
	if empty.PaymentCount != 0 || empty.LastPaymentDate != nil {
		t.Errorf("empty ledger summary = %+v", empty)
	}
}
