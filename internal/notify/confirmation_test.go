package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pafrisco/clinic-booking/pkg/logging"
)

type mockEmailSender struct {
	mu      sync.Mutex
	sent    []EmailMessage
	failOn  string // fail if To matches this
	callErr error
}

func (m *mockEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callErr != nil {
		return m.callErr
	}
	if m.failOn != "" && msg.To == m.failOn {
		return errors.New("mock email error")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func testLogger() *logging.Logger {
	return logging.New("error")
}

func TestConfirmationNotifier_Send(t *testing.T) {
	sender := &mockEmailSender{}
	n := NewConfirmationNotifier(sender, ConfirmationConfig{}, testLogger())

	err := n.SendAppointmentConfirmation(context.Background(), " ann@example.com ", Confirmation{
		FirstName:       "Ann",
		LastName:        "Lee",
		ProviderName:    "Dr. Jane Doe",
		Reason:          "checkup",
		AppointmentTime: time.Date(2025, 3, 4, 15, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "ann@example.com" {
		t.Errorf("expected trimmed recipient, got %q", msg.To)
	}
	if msg.Subject != "Appointment Confirmation with Dr. Jane Doe" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if msg.Category != CategoryConfirmation {
		t.Errorf("unexpected category %q", msg.Category)
	}
	for _, want := range []string{"Ann Lee", "Dr. Jane Doe", "checkup", "3/4/2025, 3:30:00 PM UTC", DefaultFromName} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("html body missing %q", want)
		}
		if !strings.Contains(msg.Body, want) {
			t.Errorf("text body missing %q", want)
		}
	}
}

func TestConfirmationNotifier_UsesClinicLocation(t *testing.T) {
	loc := time.FixedZone("CST", -6*60*60)
	n := NewConfirmationNotifier(&mockEmailSender{}, ConfirmationConfig{ClinicName: "Frisco Pediatrics", Location: loc}, testLogger())

	msg, err := n.BuildConfirmation("ann@example.com", Confirmation{
		ProviderName:    "Dr. John Smith",
		AppointmentTime: time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msg.Body, "12/31/2024, 9:00:00 PM CST") {
		t.Errorf("expected local time in body, got %q", msg.Body)
	}
	if !strings.Contains(msg.HTML, "Frisco Pediatrics") {
		t.Error("expected clinic name in html")
	}
}

func TestConfirmationNotifier_EscapesHTML(t *testing.T) {
	n := NewConfirmationNotifier(&mockEmailSender{}, ConfirmationConfig{}, testLogger())

	msg, err := n.BuildConfirmation("ann@example.com", Confirmation{
		FirstName:    "<script>alert(1)</script>",
		ProviderName: "Dr. Jane Doe",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(msg.HTML, "<script>") {
		t.Error("expected patient name to be escaped in html")
	}
}

func TestConfirmationNotifier_Errors(t *testing.T) {
	n := NewConfirmationNotifier(&mockEmailSender{}, ConfirmationConfig{}, testLogger())
	if err := n.SendAppointmentConfirmation(context.Background(), "  ", Confirmation{}); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}

	failing := NewConfirmationNotifier(&mockEmailSender{callErr: errors.New("smtp down")}, ConfirmationConfig{}, testLogger())
	if err := failing.SendAppointmentConfirmation(context.Background(), "ann@example.com", Confirmation{}); err == nil {
		t.Fatal("expected send error")
	}

	unconfigured := NewConfirmationNotifier(nil, ConfirmationConfig{}, testLogger())
	if err := unconfigured.SendAppointmentConfirmation(context.Background(), "ann@example.com", Confirmation{}); err == nil {
		t.Fatal("expected error without sender")
	}
}
