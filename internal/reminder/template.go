package reminder

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/clinicdesk/platform/internal/patient"
	"github.com/clinicdesk/platform/internal/shared/errors"
)

// AppointmentWindow is the fixed lookahead used to select patients for
// reminder outreach. It is a business rule, not configuration.
const AppointmentWindow = 10 * 24 * time.Hour

// WindowBounds returns the inclusive [from, to] bounds of the appointment
// window anchored at now.
func WindowBounds(now time.Time) (time.Time, time.Time) {
	return now, now.Add(AppointmentWindow)
}

// InWindow reports whether an appointment falls inside the window, bounds
// inclusive.
func InWindow(now, appointment time.Time) bool {
	return !appointment.Before(now) && !appointment.After(now.Add(AppointmentWindow))
}

// TemplateKind selects one of the fixed message templates
type TemplateKind string

const (
	TemplateThankYou            TemplateKind = "thank_you"
	TemplateAppointmentReminder TemplateKind = "appointment_reminder"
	TemplatePaymentReminder     TemplateKind = "payment_reminder"
)

// templates is the registry of message builders keyed by template kind.
// Each builds a message from patient fields only; delivery stays manual.
var templates = map[TemplateKind]func(p *patient.Patient) string{
	TemplateThankYou: func(p *patient.Patient) string {
		return fmt.Sprintf(
			"Dear %s, thank you for visiting Dr. %s's clinic. We wish you a speedy recovery!",
			p.Name, p.DoctorName,
		)
	},
	TemplateAppointmentReminder: func(p *patient.Patient) string {
		return fmt.Sprintf(
			"Dear %s, this is a reminder for your appointment with Dr. %s on %s. Please arrive 10 minutes early.",
			p.Name, p.DoctorName, p.NextAppointmentDate.Format("Mon, 02 Jan 2006"),
		)
	},
	TemplatePaymentReminder: func(p *patient.Patient) string {
		return fmt.Sprintf(
			"Dear %s, a balance of %.2f is pending for your treatment. Kindly clear it on your next visit.",
			p.Name, p.RestAmount,
		)
	},
}

// RenderMessage builds the message for a template kind from patient fields
func RenderMessage(kind TemplateKind, p *patient.Patient) (string, error) {
	build, ok := templates[kind]
	if !ok {
		return "", errors.BadRequest(fmt.Sprintf("unknown template %q", kind))
	}
	return build(p), nil
}

// NormalizePhone strips every non-digit character from a phone number
func NormalizePhone(phoneNo string) string {
	var b strings.Builder
	for _, r := range phoneNo {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ComposeLink builds a WhatsApp deep link for a phone number and message.
// The operator opens the link to complete the send; no delivery is implied.
func ComposeLink(phoneNo, message string) string {
	return "https://wa.me/" + NormalizePhone(phoneNo) + "?text=" + url.QueryEscape(message)
}
