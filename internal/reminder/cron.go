package reminder

import (
	"context"
	"log"
	"time"

	"github.com/clinicdesk/platform/internal/patient"
	"github.com/clinicdesk/platform/internal/shared/metrics"
	"github.com/go-co-op/gocron"
)

// Sweeper runs the daily reminder sweep: it selects patients with an
// appointment inside the lookahead window and logs a composed link for each,
// for the front desk to work through. Sending stays manual.
type Sweeper struct {
	repo      *patient.Repository
	scheduler *gocron.Scheduler
}

// NewSweeper creates a new reminder sweeper
func NewSweeper(repo *patient.Repository) *Sweeper {
	return &Sweeper{repo: repo}
}

// Start schedules the sweep once a day at the given local time ("HH:MM")
func (s *Sweeper) Start(at string) error {
	s.scheduler = gocron.NewScheduler(time.Local)

	_, err := s.scheduler.Every(1).Day().At(at).Do(func() {
		if err := s.Run(context.Background()); err != nil {
			log.Printf("reminder sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Printf("reminder sweep scheduled daily at %s", at)

	return nil
}

// Stop stops the scheduler
func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Run performs one sweep over the appointment window
func (s *Sweeper) Run(ctx context.Context) error {
	from, to := WindowBounds(time.Now())

	patients, err := s.repo.ListUpcomingAppointments(ctx, from, to)
	if err != nil {
		return err
	}

	for i := range patients {
		p := patients[i]
		message, err := RenderMessage(TemplateAppointmentReminder, &p)
		if err != nil {
			return err
		}

		log.Printf("reminder due: %s (%s) on %s -> %s",
			p.Name, p.RegistrationNo,
			p.NextAppointmentDate.Format("2006-01-02"),
			ComposeLink(p.PhoneNo, message),
		)
		metrics.RecordReminderLink(string(TemplateAppointmentReminder))
	}

	metrics.RecordReminderSweep()
	log.Printf("reminder sweep done, %d patient(s) in window", len(patients))

	return nil
}
