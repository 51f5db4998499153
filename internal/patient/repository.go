package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clinicdesk/platform/internal/shared/errors"
	"github.com/clinicdesk/platform/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for patients and visits
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new patient repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const patientColumns = `id, registration_no, name, phone_no, address, date_of_birth,
		doctor_name, prescription, disease,
		date_of_joining, next_appointment_date, last_visit_date, treatment_status,
		total_amount, rest_amount, paid_amount, payment_status,
		created_at, updated_at`

const visitColumns = `id, patient_id, visit_date, treatment, notes, prescription,
		next_appointment_date, amount_paid, payment_method, payment_status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*Patient, error) {
	p := &Patient{}
	err := row.Scan(
		&p.ID, &p.RegistrationNo, &p.Name, &p.PhoneNo, &p.Address, &p.DateOfBirth,
		&p.DoctorName, &p.Prescription, &p.Disease,
		&p.DateOfJoining, &p.NextAppointmentDate, &p.LastVisitDate, &p.TreatmentStatus,
		&p.TotalAmount, &p.RestAmount, &p.PaidAmount, &p.PaymentStatus,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanVisit(row rowScanner) (*Visit, error) {
	v := &Visit{}
	err := row.Scan(
		&v.ID, &v.PatientID, &v.VisitDate, &v.Treatment, &v.Notes, &v.Prescription,
		&v.NextAppointmentDate, &v.AmountPaid, &v.PaymentMethod, &v.PaymentStatus, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// --- Patient Operations ---

// CreatePatient allocates a registration number and inserts the patient,
// together with the initial payment visit when one exists, in a single
// transaction. Collisions on the registration number unique index trigger a
// bounded number of re-allocations before surfacing a conflict.
func (r *Repository) CreatePatient(ctx context.Context, p *Patient, initial *Visit) error {
	for attempt := 0; attempt < maxRegistrationAttempts; attempt++ {
		p.RegistrationNo = newRegistrationNo()

		// Cheap pre-check; the unique index is the real guarantee.
		exists, err := r.registrationNoExists(ctx, p.RegistrationNo)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		err = r.insertPatient(ctx, p, initial)
		if err == nil {
			return nil
		}
		if isDuplicateKey(err, "registration_no") {
			continue
		}
		return err
	}

	return errors.Conflict("could not allocate a unique registration number")
}

func (r *Repository) registrationNoExists(ctx context.Context, registrationNo string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE registration_no = $1)`,
		registrationNo,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check registration number")
	}
	return exists, nil
}

func (r *Repository) insertPatient(ctx context.Context, p *Patient, initial *Visit) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO patients (
			id, registration_no, name, phone_no, address, date_of_birth,
			doctor_name, prescription, disease,
			date_of_joining, next_appointment_date, last_visit_date, treatment_status,
			total_amount, rest_amount, paid_amount, payment_status,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17,
			$18, $19
		)`

	_, err = tx.Exec(ctx, query,
		p.ID, p.RegistrationNo, p.Name, p.PhoneNo, p.Address, p.DateOfBirth,
		p.DoctorName, p.Prescription, p.Disease,
		p.DateOfJoining, p.NextAppointmentDate, p.LastVisitDate, p.TreatmentStatus,
		p.TotalAmount, p.RestAmount, p.PaidAmount, p.PaymentStatus,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return err
		}
		return errors.Wrap(err, "failed to create patient")
	}

	if initial != nil {
		if err := insertVisitTx(ctx, tx, initial); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// GetPatient retrieves a patient by ID
func (r *Repository) GetPatient(ctx context.Context, id types.ID) (*Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE id = $1`, patientColumns)

	p, err := scanPatient(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("patient", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get patient")
	}

	return p, nil
}

// UpdatePatient persists a patient update
func (r *Repository) UpdatePatient(ctx context.Context, p *Patient) error {
	result, err := r.pool.Exec(ctx, updatePatientQuery, updatePatientArgs(p)...)
	if err != nil {
		return errors.Wrap(err, "failed to update patient")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("patient", p.ID.String())
	}

	return nil
}

const updatePatientQuery = `
	UPDATE patients SET
		name = $2, phone_no = $3, address = $4, date_of_birth = $5,
		doctor_name = $6, prescription = $7, disease = $8,
		next_appointment_date = $9, last_visit_date = $10, treatment_status = $11,
		total_amount = $12, rest_amount = $13, paid_amount = $14, payment_status = $15,
		updated_at = $16
	WHERE id = $1`

func updatePatientArgs(p *Patient) []any {
	return []any{
		p.ID, p.Name, p.PhoneNo, p.Address, p.DateOfBirth,
		p.DoctorName, p.Prescription, p.Disease,
		p.NextAppointmentDate, p.LastVisitDate, p.TreatmentStatus,
		p.TotalAmount, p.RestAmount, p.PaidAmount, p.PaymentStatus,
		p.UpdatedAt,
	}
}

// ListPatients lists patients in reverse creation order with optional search
func (r *Repository) ListPatients(ctx context.Context, filter ListPatientsFilter) ([]Patient, int, error) {
	var conditions []string
	var args []any
	argNum := 1

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(name ILIKE $%d OR phone_no ILIKE $%d OR registration_no ILIKE $%d)", argNum, argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Get total count
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM patients %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count patients")
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 200 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM patients
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, patientColumns, whereClause, argNum, argNum+1)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list patients")
	}
	defer rows.Close()

	var patients []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan patient")
		}
		patients = append(patients, *p)
	}

	return patients, total, nil
}

// ListUpcomingAppointments returns ongoing patients whose next appointment
// falls within [from, to] inclusive, soonest first
func (r *Repository) ListUpcomingAppointments(ctx context.Context, from, to time.Time) ([]Patient, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM patients
		WHERE treatment_status = $1
		  AND next_appointment_date >= $2
		  AND next_appointment_date <= $3
		ORDER BY next_appointment_date ASC`, patientColumns)

	rows, err := r.pool.Query(ctx, query, TreatmentStatusOngoing, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list upcoming appointments")
	}
	defer rows.Close()

	var patients []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan patient")
		}
		patients = append(patients, *p)
	}

	return patients, nil
}

// ListPendingPayments returns ongoing patients who still owe money
func (r *Repository) ListPendingPayments(ctx context.Context) ([]Patient, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM patients
		WHERE treatment_status = $1 AND rest_amount > 0
		ORDER BY rest_amount DESC`, patientColumns)

	rows, err := r.pool.Query(ctx, query, TreatmentStatusOngoing)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending payments")
	}
	defer rows.Close()

	var patients []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan patient")
		}
		patients = append(patients, *p)
	}

	return patients, nil
}

// --- Visit Operations ---

// SaveVisit persists an updated patient and the visit produced by the same
// mutation in one transaction, so the ledger never drifts from the aggregate.
func (r *Repository) SaveVisit(ctx context.Context, p *Patient, v *Visit) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, updatePatientQuery, updatePatientArgs(p)...)
	if err != nil {
		return errors.Wrap(err, "failed to update patient")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("patient", p.ID.String())
	}

	if err := insertVisitTx(ctx, tx, v); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

func insertVisitTx(ctx context.Context, tx pgx.Tx, v *Visit) error {
	query := `
		INSERT INTO visits (
			id, patient_id, visit_date, treatment, notes, prescription,
			next_appointment_date, amount_paid, payment_method, payment_status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		v.ID, v.PatientID, v.VisitDate, v.Treatment, v.Notes, v.Prescription,
		v.NextAppointmentDate, v.AmountPaid, v.PaymentMethod, v.PaymentStatus, v.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert visit")
	}

	return nil
}

// ListVisits returns a patient's visit history, newest first
func (r *Repository) ListVisits(ctx context.Context, patientID types.ID) ([]Visit, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM visits
		WHERE patient_id = $1
		ORDER BY visit_date DESC`, visitColumns)

	rows, err := r.pool.Query(ctx, query, patientID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list visits")
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan visit")
		}
		visits = append(visits, *v)
	}

	return visits, nil
}

// ListPayments returns the visits that carry a payment, newest first
func (r *Repository) ListPayments(ctx context.Context, patientID types.ID) ([]Visit, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM visits
		WHERE patient_id = $1 AND amount_paid > 0
		ORDER BY visit_date DESC`, visitColumns)

	rows, err := r.pool.Query(ctx, query, patientID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list payments")
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan visit")
		}
		visits = append(visits, *v)
	}

	return visits, nil
}

func isDuplicateKey(err error, column string) bool {
	return err != nil &&
		strings.Contains(err.Error(), "duplicate key") &&
		strings.Contains(err.Error(), column)
}
