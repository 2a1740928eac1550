package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pafrisco/clinic-booking/pkg/logging"
)

// ErrNoRecipient is returned when a notification has no destination address.
var ErrNoRecipient = errors.New("notify: recipient email required")

// Confirmation carries the appointment details shown to the patient.
type Confirmation struct {
	FirstName       string
	LastName        string
	ProviderName    string
	Reason          string
	AppointmentTime time.Time
}

// ConfirmationNotifier emails appointment confirmations to patients.
type ConfirmationNotifier struct {
	sender     EmailSender
	clinicName string
	location   *time.Location
	logger     *logging.Logger
}

// ConfirmationConfig controls how confirmations are rendered.
type ConfirmationConfig struct {
	ClinicName string
	// Location is used to display the appointment time; UTC when nil.
	Location *time.Location
}

// NewConfirmationNotifier wires an EmailSender into a ConfirmationNotifier.
func NewConfirmationNotifier(sender EmailSender, cfg ConfirmationConfig, logger *logging.Logger) *ConfirmationNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ClinicName == "" {
		cfg.ClinicName = DefaultFromName
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ConfirmationNotifier{
		sender:     sender,
		clinicName: cfg.ClinicName,
		location:   cfg.Location,
		logger:     logger,
	}
}

type confirmationView struct {
	FirstName    string
	LastName     string
	ProviderName string
	Reason       string
	When         string
	ClinicName   string
	Year         int
}

// SendAppointmentConfirmation renders and sends the confirmation email.
func (n *ConfirmationNotifier) SendAppointmentConfirmation(ctx context.Context, to string, c Confirmation) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrNoRecipient
	}
	if n.sender == nil {
		return fmt.Errorf("notify: email sender not configured")
	}

	msg, err := n.BuildConfirmation(to, c)
	if err != nil {
		return err
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: send confirmation: %w", err)
	}
	n.logger.Info("appointment confirmation sent", "to", to, "provider", c.ProviderName)
	return nil
}

// BuildConfirmation renders the confirmation message without sending it.
func (n *ConfirmationNotifier) BuildConfirmation(to string, c Confirmation) (EmailMessage, error) {
	when := c.AppointmentTime.In(n.location)
	view := confirmationView{
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		ProviderName: c.ProviderName,
		Reason:       c.Reason,
		When:         when.Format("1/2/2006, 3:04:05 PM MST"),
		ClinicName:   n.clinicName,
		Year:         when.Year(),
	}
	html, err := renderHTML(confirmationHTMLTmpl, view)
	if err != nil {
		return EmailMessage{}, err
	}
	text, err := renderText(confirmationTextTmpl, view)
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		To:       to,
		ToName:   strings.TrimSpace(c.FirstName + " " + c.LastName),
		Subject:  fmt.Sprintf("Appointment Confirmation with %s", c.ProviderName),
		Body:     text,
		HTML:     html,
		Category: CategoryConfirmation,
	}, nil
}
